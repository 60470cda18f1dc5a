package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"alpaca/internal/client"
	"alpaca/internal/config"
	alpacactx "alpaca/internal/context"
	"alpaca/internal/merge"
	"alpaca/internal/resource"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitValidation = 2
	ExitAuthFailed = 3
)

// ExitError carries an explicit exit code through cobra.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// UsageError marks invalid command-line input.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var authErr *client.AuthError
	if errors.As(err, &authErr) && authErr.StatusCode != 0 {
		return ExitAuthFailed
	}
	if client.HasStatus(err, http.StatusUnauthorized) || client.HasStatus(err, http.StatusForbidden) {
		return ExitAuthFailed
	}

	var (
		validationErr *resource.ValidationError
		configErr     *config.ConfigurationError
		notFoundCtx   *alpacactx.ContextNotFoundError
		missingName   *merge.MissingNameError
		usageErr      *UsageError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &configErr),
		errors.As(err, &notFoundCtx),
		errors.As(err, &missingName),
		errors.As(err, &usageErr):
		return ExitValidation
	}
	return ExitGeneral
}

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates that the ALPACA Operator API could not be
// reached.
type ConnectionError struct {
	// Endpoint is the API base URL.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

// Error returns the failure with a hint on what to check.
func (e *ConnectionError) Error() string {
	switch e.Type {
	case ConnectionErrorTLS:
		return fmt.Sprintf(`TLS certificate verification failed for %s: %v

Self-signed certificates are common on ALPACA Operator installations.
Set tls_verify: false in the context or apiConnection to skip verification.`, e.Endpoint, e.Reason)
	case ConnectionErrorNetwork:
		return fmt.Sprintf(`Connection failed to %s: %v

Check that the host and port are correct and that the server is reachable.`, e.Endpoint, e.Reason)
	case ConnectionErrorTimeout:
		return fmt.Sprintf("Connection to %s timed out: %v", e.Endpoint, e.Reason)
	case ConnectionErrorDNS:
		return fmt.Sprintf("DNS resolution failed for %s: %v", e.Endpoint, e.Reason)
	default:
		return fmt.Sprintf("Connection failed to %s: %v", e.Endpoint, e.Reason)
	}
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to match any ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	_, ok := target.(*ConnectionError)
	return ok
}

// ClassifyConnectionError analyzes an error and returns a ConnectionError with the appropriate type.
// If the error is nil, returns nil.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	connErr := &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnknown, Reason: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		connErr.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		connErr.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		connErr.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		connErr.Type = ConnectionErrorNetwork
	}
	return connErr
}

// DescribeError replaces transport failures with a classified
// ConnectionError and leaves every other error untouched.
func DescribeError(err error, endpoint string) error {
	var urlErr *url.Error
	if err == nil || !errors.As(err, &urlErr) {
		return err
	}
	return ClassifyConnectionError(err, endpoint)
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
		"EOF",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
