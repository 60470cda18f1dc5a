package client

// Secret wraps a credential so that it never shows up in log messages,
// error strings or serialized output.
//
//	token := client.NewSecret("eyJhbGciOi...")
//	fmt.Println(token)      // prints: [REDACTED]
//	header := token.Value() // the real value, for the Authorization header
type Secret struct {
	value string
}

// NewSecret wraps value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Value returns the wrapped credential. Never log the result.
func (s Secret) Value() string {
	return s.value
}

// IsEmpty reports whether no credential is held.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return "[REDACTED]"
}

func (s Secret) GoString() string {
	return "client.Secret{[REDACTED]}"
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}
