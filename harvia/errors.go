package harvia

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError reports a request parameter rejected before any network
// traffic happened.
type ValidationError struct {
	Param   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Message)
}

// AuthError means the backend rejected the credentials themselves. Retrying
// with the same username and password will not succeed.
type AuthError struct {
	Op  string
	Err error
}

func (e AuthError) Error() string {
	return fmt.Sprintf("harvia auth %s: credentials rejected: %v", e.Op, e.Err)
}

func (e AuthError) Unwrap() error { return e.Err }

// TransientAuthError is trouble reaching or talking to the identity
// provider. The credentials may still be fine.
type TransientAuthError struct {
	Op  string
	Err error
}

func (e TransientAuthError) Error() string {
	return fmt.Sprintf("harvia auth %s: %v", e.Op, e.Err)
}

func (e TransientAuthError) Unwrap() error { return e.Err }

// DiscoveryError is a failed endpoint lookup. Nothing is cached for the
// kind, so the next call performs the lookup again.
type DiscoveryError struct {
	Kind EndpointKind
	Err  error
}

func (e DiscoveryError) Error() string {
	return fmt.Sprintf("harvia %s endpoint discovery: %v", e.Kind, e.Err)
}

func (e DiscoveryError) Unwrap() error { return e.Err }

// AmbiguousDeviceError means an empty device id could not be resolved:
// the account has either no devices or more than one.
type AmbiguousDeviceError struct {
	IDs []string
}

func (e AmbiguousDeviceError) Error() string {
	if len(e.IDs) == 0 {
		return "no devices registered on this account"
	}
	return fmt.Sprintf("multiple devices found: %s (pass a device id)", strings.Join(e.IDs, ", "))
}

// BackendError is a GraphQL-level or HTTP-level failure reported by the
// cloud backend itself.
type BackendError struct {
	Type    string
	Message string
}

func (e BackendError) Error() string {
	return fmt.Sprintf("harvia api error %s: %s", e.Type, e.Message)
}

// IsTransient reports whether err is worth retrying: identity-provider
// hiccups, failed endpoint lookups, and plain transport errors. Rejected
// credentials, validation failures and backend rejections are not.
func IsTransient(err error) bool {
	var transientAuth TransientAuthError
	if errors.As(err, &transientAuth) {
		return true
	}
	var discovery DiscoveryError
	if errors.As(err, &discovery) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
