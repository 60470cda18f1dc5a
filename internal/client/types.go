package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"alpaca/internal/reconciler"
)

// Record is a JSON object as returned by the API.
type Record = reconciler.Record

// Connection describes how to reach an ALPACA Operator instance.
type Connection struct {
	Host      string `yaml:"host,omitempty" json:"host,omitempty"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	Protocol  string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	Username  string `yaml:"username,omitempty" json:"username,omitempty"`
	Password  string `yaml:"password,omitempty" json:"password,omitempty"`
	TLSVerify *bool  `yaml:"tls_verify,omitempty" json:"tls_verify,omitempty"`
}

// Default connection values.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 8443
	DefaultProtocol = "https"
)

// BaseURL returns <protocol>://<host>:<port>/api.
func (c Connection) BaseURL() string {
	protocol := c.Protocol
	if protocol == "" {
		protocol = DefaultProtocol
	}
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s://%s/api", protocol, hostPort(host, port))
}

func hostPort(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(port)
}

// VerifyTLS reports whether server certificates are verified. Verification
// is on unless explicitly disabled.
func (c Connection) VerifyTLS() bool {
	return c.TLSVerify == nil || *c.TLSVerify
}

// String identifies the connection without exposing the password.
func (c Connection) String() string {
	user := c.Username
	if user == "" {
		user = "<anonymous>"
	}
	return user + "@" + c.BaseURL()
}

// Path joins API path segments, escaping each one. Numeric identifiers are
// rendered without exponent notation.
//
//	Path("systems", json.Number("12"), "agents") == "/systems/12/agents"
func Path(segments ...any) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(reconciler.String(s)))
	}
	return b.String()
}
