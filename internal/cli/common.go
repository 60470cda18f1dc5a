package cli

import (
	"context"
	"fmt"

	"alpaca/internal/client"
)

// CheckConnection logs in once so that connectivity and credential problems
// are reported before any work starts.
func CheckConnection(ctx context.Context, c *client.Client) error {
	if err := c.Login(ctx); err != nil {
		return DescribeError(err, c.BaseURL())
	}
	return nil
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
