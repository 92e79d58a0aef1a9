package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a provider failure into the fixed taxonomy the UI layers
// present. Unrecognized provider errors map to KindUnclassified with the raw
// message preserved.
type Kind string

const (
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindEmailNotConfirmed     Kind = "email_not_confirmed"
	KindAccountAlreadyExists  Kind = "account_already_exists"
	KindOAuthNotConfigured    Kind = "oauth_not_configured"
	KindOAuthRedirectMismatch Kind = "oauth_redirect_mismatch"
	KindSessionExchangeFailed Kind = "session_exchange_failed"
	KindProvisioningFailed    Kind = "provisioning_failed"
	KindUnclassified          Kind = "unclassified"
)

// Error is a classified authentication error with a user-presentable message.
type Error struct {
	Kind    Kind
	Message string // safe to show to the user
	Raw     string // provider's raw message, kept for logs
}

func (e *Error) Error() string {
	if e.Raw != "" && e.Raw != e.Message {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Raw)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a classified error with an explicit kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Raw: message}
}

// KindOf extracts the classification from err, or KindUnclassified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnclassified
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// Classify maps a raw provider error message to a typed Error. The substring
// matches follow the provider's known message set; anything else falls back
// to KindUnclassified with the raw message preserved verbatim.
func Classify(raw string) *Error {
	msg := strings.TrimSpace(raw)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid login credentials"):
		return &Error{
			Kind:    KindInvalidCredentials,
			Message: "Invalid email or password. Please check your credentials and try again.",
			Raw:     msg,
		}
	case strings.Contains(lower, "email not confirmed"):
		return &Error{
			Kind:    KindEmailNotConfirmed,
			Message: "Please check your email and click the confirmation link before signing in. Don't forget to check your spam folder!",
			Raw:     msg,
		}
	case strings.Contains(lower, "user already registered"):
		return &Error{
			Kind:    KindAccountAlreadyExists,
			Message: "An account with this email already exists. Please try signing in instead.",
			Raw:     msg,
		}
	case strings.Contains(lower, "invalid provider"), strings.Contains(lower, "not configured"), strings.Contains(lower, "client_id"):
		return &Error{
			Kind:    KindOAuthNotConfigured,
			Message: "OAuth is not configured for this provider. Please contact support or use email/password login.",
			Raw:     msg,
		}
	case strings.Contains(lower, "redirect_uri"):
		return &Error{
			Kind:    KindOAuthRedirectMismatch,
			Message: "OAuth redirect URL mismatch. Please check the provider configuration.",
			Raw:     msg,
		}
	}
	return &Error{Kind: KindUnclassified, Message: msg, Raw: msg}
}
