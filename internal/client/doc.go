// Package client talks to the ALPACA Operator REST API.
//
// A Client is created from a Connection and logs in lazily: the first request
// posts the credentials to /api/auth/login and every following request
// carries the returned bearer token. Concurrent first requests share a single
// login. When the server rejects an expired token the client logs in again
// once and retries the request.
//
//	c := client.New(client.Connection{
//	    Host:     "alpaca.example.com",
//	    Port:     8443,
//	    Protocol: "https",
//	    Username: "admin",
//	    Password: os.Getenv("ALPACA_PASSWORD"),
//	})
//	agent, err := c.Lookup(ctx, "agents", "hostname", "agent01")
//
// Responses are decoded with json.Number so identifiers and counters keep
// their exact representation when they are written back.
//
// Non-2xx responses are returned as *APIError. A failed login is returned as
// *AuthError.
package client
