package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpaca/internal/client"
	"alpaca/internal/config"
	alpacactx "alpaca/internal/context"
	"alpaca/internal/formatting"
)

func newExecutor(t *testing.T, dir string, opts ExecutorOptions, env map[string]string) *Executor {
	t.Helper()
	t.Setenv(alpacactx.ContextEnvVar, env[alpacactx.ContextEnvVar])
	opts.ConfigPath = dir
	opts.Stdout = &bytes.Buffer{}
	opts.Stderr = &bytes.Buffer{}
	e, err := NewExecutor(opts)
	require.NoError(t, err)
	e.getenv = func(key string) string { return env[key] }
	return e
}

func seedContexts(t *testing.T, dir string) {
	t.Helper()
	off := false
	s := alpacactx.NewStorageWithPath(dir)
	require.NoError(t, s.AddContext("prod", client.Connection{Host: "prod.example.com", Username: "ops"}, &alpacactx.ContextSettings{Output: "table"}))
	require.NoError(t, s.AddContext("lab", client.Connection{Host: "lab.example.com", TLSVerify: &off}, nil))
	require.NoError(t, s.SetCurrentContext("prod"))
}

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestResolveConnection_Defaults(t *testing.T) {
	e := newExecutor(t, t.TempDir(), ExecutorOptions{}, nil)

	conn, err := e.ResolveConnection(nil)
	require.NoError(t, err)
	assert.Equal(t, client.DefaultHost, conn.Host)
	assert.Equal(t, client.DefaultPort, conn.Port)
	assert.Equal(t, client.DefaultProtocol, conn.Protocol)
	assert.True(t, conn.VerifyTLS())
	assert.Empty(t, conn.Password)
}

func TestResolveConnection_Precedence(t *testing.T) {
	dir := t.TempDir()
	seedContexts(t, dir)
	writeConfigFile(t, dir, "defaultConnection:\n  host: config.example.com\n  username: admin\n  password: from-config\n  port: 9443\n")

	tests := []struct {
		name     string
		flag     string
		env      map[string]string
		override *client.Connection
		wantHost string
		wantUser string
		wantTLS  bool
	}{
		{name: "current context", wantHost: "prod.example.com", wantUser: "ops", wantTLS: true},
		{name: "env context", env: map[string]string{alpacactx.ContextEnvVar: "lab"}, wantHost: "lab.example.com", wantUser: "admin", wantTLS: false},
		{name: "flag beats env", flag: "prod", env: map[string]string{alpacactx.ContextEnvVar: "lab"}, wantHost: "prod.example.com", wantUser: "ops", wantTLS: true},
		{name: "manifest beats context", override: &client.Connection{Host: "manifest.example.com"}, wantHost: "manifest.example.com", wantUser: "ops", wantTLS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExecutor(t, dir, ExecutorOptions{Context: tt.flag}, tt.env)
			conn, err := e.ResolveConnection(tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, conn.Host)
			assert.Equal(t, tt.wantUser, conn.Username)
			assert.Equal(t, tt.wantTLS, conn.VerifyTLS())
			assert.Equal(t, 9443, conn.Port)
			assert.Equal(t, "from-config", conn.Password)
		})
	}
}

func TestResolveConnection_PasswordFromEnv(t *testing.T) {
	e := newExecutor(t, t.TempDir(), ExecutorOptions{}, map[string]string{config.PasswordEnvVar: "s3cret"})
	conn, err := e.ResolveConnection(&client.Connection{Host: "h"})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", conn.Password)

	conn, err = e.ResolveConnection(&client.Connection{Host: "h", Password: "explicit"})
	require.NoError(t, err)
	assert.Equal(t, "explicit", conn.Password)
}

func TestResolveConnection_UnknownContext(t *testing.T) {
	dir := t.TempDir()
	seedContexts(t, dir)
	e := newExecutor(t, dir, ExecutorOptions{Context: "staging"}, nil)

	_, err := e.ResolveConnection(nil)
	var notFound *alpacactx.ContextNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestExecutor_Format(t *testing.T) {
	dir := t.TempDir()
	seedContexts(t, dir)
	writeConfigFile(t, dir, "output: yaml\n")

	assert.Equal(t, formatting.FormatJSON, newExecutor(t, dir, ExecutorOptions{Format: formatting.FormatJSON}, nil).Format())
	assert.Equal(t, formatting.FormatTable, newExecutor(t, dir, ExecutorOptions{}, nil).Format(), "context settings beat config")
	assert.Equal(t, formatting.FormatYAML, newExecutor(t, dir, ExecutorOptions{Context: "lab"}, nil).Format())
	assert.Equal(t, formatting.FormatConsole, newExecutor(t, t.TempDir(), ExecutorOptions{}, nil).Format())
}

func TestNewExecutor_BadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "output: xml\n")

	_, err := NewExecutor(ExecutorOptions{ConfigPath: dir})
	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestExecutor_Spin(t *testing.T) {
	e := newExecutor(t, t.TempDir(), ExecutorOptions{Quiet: true}, nil)
	called := false
	err := e.Spin("Working", func() error { called = true; return errors.New("boom") })
	assert.True(t, called)
	assert.EqualError(t, err, "boom")
}
