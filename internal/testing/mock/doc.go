// Package mock provides an in-memory ALPACA Operator API for tests.
//
// The server speaks the same REST dialect as the real product for the
// endpoints alpaca uses: login, agents, groups, systems with their agent,
// variable and command sub-resources, global variables and the process tree.
// Every authenticated request is recorded so tests can assert exactly which
// calls a reconciliation issued.
//
//	srv := mock.NewServer(t)
//	agentID := srv.AddAgent("agent01", mock.Record{"location": "virtual"})
//	c := client.New(conn, client.WithBaseURL(srv.APIURL()))
//	...
//	assert.Empty(t, srv.Mutations())
//
// Seed state can also be loaded from a YAML fixture with LoadFixture.
// FailNext, ExpireTokens and LagUnassign inject the failure modes the real
// server is known for.
package mock
