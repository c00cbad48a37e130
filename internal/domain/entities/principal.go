package entities

import (
	"strings"

	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
)

// Principal is an opaque, already-authenticated identity handle
type Principal string

// AnonymousPrincipal is the sentinel the runtime hands out for unauthenticated callers
const AnonymousPrincipal Principal = "2vxsx-fae"

const maxPrincipalLength = 63

// ParsePrincipal validates the textual form of a principal
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperrors.NewValidationError("principal is required")
	}
	if len(s) > maxPrincipalLength {
		return "", apperrors.NewValidationErrorf("principal exceeds %d characters", maxPrincipalLength)
	}
	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return "", apperrors.NewValidationErrorf("principal contains invalid character %q", c)
		}
	}
	return Principal(s), nil
}

func (p Principal) String() string { return string(p) }

// IsAnonymous reports whether p is empty or the anonymous sentinel
func (p Principal) IsAnonymous() bool {
	return p == "" || p == AnonymousPrincipal
}

// RequireCaller rejects the anonymous sentinel; every mutating operation starts with it
func RequireCaller(p Principal) error {
	if p.IsAnonymous() {
		return apperrors.NewAuthError("anonymous callers are not allowed")
	}
	return nil
}
