package provisioner

import (
	"errors"

	"demodesk/internal/directory"
	"demodesk/internal/genclient"
	"demodesk/internal/identity"
	"demodesk/internal/script"
)

// Kind classifies every failure a public operation can report. The
// set is closed so the error surface stays enumerable.
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindAuthentication Kind = "authentication_failure"
	KindNotFound       Kind = "not_found" // internal outcome, not surfaced to callers
	KindTransport      Kind = "transport_error"
	KindValidation     Kind = "validation_failure"
	KindConfiguration  Kind = "configuration_error"
)

// Classify maps a lower-level error onto the taxonomy. Anything
// unrecognized is treated as a transport-level failure of whichever
// remote call produced it.
func Classify(err error) Kind {
	var (
		transportErr *directory.TransportError
		parseErr     *script.ParseError
		schemaErr    *script.SchemaError
	)
	switch {
	case errors.Is(err, identity.ErrMalformedEmail):
		return KindInvalidInput
	case errors.Is(err, directory.ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, directory.ErrNotFound):
		return KindNotFound
	case errors.Is(err, genclient.ErrNoAPIKey):
		return KindConfiguration
	case errors.As(err, &parseErr), errors.As(err, &schemaErr):
		return KindValidation
	case errors.As(err, &transportErr):
		return KindTransport
	default:
		return KindTransport
	}
}
