package cmd

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpaca/internal/client"
	alpacactx "alpaca/internal/context"
	"alpaca/internal/testing/mock"
)

// execute runs the command tree with args against configDir and returns
// what was written to stdout and stderr.
func execute(t *testing.T, configDir string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(alpacactx.ContextEnvVar, "")

	rootCmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append(args, "--config-path", configDir))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mockConnection returns a connection pointing at srv.
func mockConnection(t *testing.T, srv *mock.Server) client.Connection {
	t.Helper()
	u, err := url.Parse(srv.APIURL())
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return client.Connection{
		Host:     u.Hostname(),
		Port:     port,
		Protocol: u.Scheme,
		Username: mock.Username,
		Password: mock.Password,
	}
}

// useMockContext stores a current context named "mock" that points at srv.
func useMockContext(t *testing.T, configDir string, srv *mock.Server) {
	t.Helper()
	storage := alpacactx.NewStorageWithPath(configDir)
	require.NoError(t, storage.AddContext("mock", mockConnection(t, srv), nil))
	require.NoError(t, storage.SetCurrentContext("mock"))
}

func TestRootCommand(t *testing.T) {
	rootCmd := newRootCmd()

	assert.Equal(t, "alpaca", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)

	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"version", "apply", "get", "merge", "csv", "context"} {
		assert.True(t, found[name], "missing subcommand %s", name)
	}

	for _, flag := range []string{"output", "quiet", "debug", "config-path", "context"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestVersionTemplate(t *testing.T) {
	SetVersion("1.0.0")
	t.Cleanup(func() { SetVersion("dev") })

	rootCmd := newRootCmd()
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"--version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "alpaca version 1.0.0\n", stdout.String())
}

func TestUnknownOutputFormat(t *testing.T) {
	_, _, err := execute(t, t.TempDir(), "get", "groups", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
