// Package neo6err defines the stable error taxonomy shared by every layer of
// the proxy: the router, listeners, admin socket and TN3270 pipeline all
// speak this vocabulary instead of ad hoc string matching.
package neo6err

import "net/http"

// Kind is a stable, machine-readable error classification. The numeric
// values are not part of any wire contract (JSON always carries the string
// Code), but the set of Kinds itself must not change meaning across
// releases.
type Kind int

const (
	OK Kind = iota
	InvalidArgs
	ProtocolError
	BackendUnavailable
	Timeout
	Internal

	ConfigInvalid
	PluginInvalid
	TransactionUnknown
	ProtocolUnavailable
	ParamsInvalid
	CircuitOpen

	TemplateUnbalancedTag
	TemplatePositionOutOfRange
	TemplateFieldsOverlap

	FieldNonNumeric
	FieldProtectedWrite
)

var codes = map[Kind]string{
	OK:                         "OK",
	InvalidArgs:                "INVALID_ARGS",
	ProtocolError:              "PROTOCOL_ERROR",
	BackendUnavailable:         "BACKEND_UNAVAILABLE",
	Timeout:                    "TIMEOUT",
	Internal:                   "INTERNAL",
	ConfigInvalid:              "CONFIG_INVALID",
	PluginInvalid:              "PLUGIN_INVALID",
	TransactionUnknown:         "TRANSACTION_UNKNOWN",
	ProtocolUnavailable:        "PROTOCOL_UNAVAILABLE",
	ParamsInvalid:              "PARAMS_INVALID",
	CircuitOpen:                "CIRCUIT_OPEN",
	TemplateUnbalancedTag:      "TEMPLATE_UNBALANCED_TAG",
	TemplatePositionOutOfRange: "TEMPLATE_POSITION_OUT_OF_RANGE",
	TemplateFieldsOverlap:      "TEMPLATE_FIELDS_OVERLAP",
	FieldNonNumeric:            "FIELD_NON_NUMERIC",
	FieldProtectedWrite:        "FIELD_PROTECTED_WRITE",
}

var httpStatus = map[Kind]int{
	TransactionUnknown:  http.StatusBadRequest,
	ProtocolUnavailable: http.StatusServiceUnavailable,
	ParamsInvalid:       http.StatusBadRequest,
	Timeout:             http.StatusRequestTimeout,
	BackendUnavailable:  http.StatusServiceUnavailable,
	CircuitOpen:         http.StatusServiceUnavailable,
	ProtocolError:       http.StatusInternalServerError,
	Internal:            http.StatusInternalServerError,
	InvalidArgs:         http.StatusBadRequest,
}

// Code returns the stable machine-readable string for k.
func (k Kind) Code() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return "INTERNAL"
}

// HTTPStatus maps k onto the REST listener's status code per §7.
func (k Kind) HTTPStatus() int {
	if s, ok := httpStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the router should attempt a retry for k, per
// the retry policy in §4.5 (only backend unavailability and timeouts).
func (k Kind) Retryable() bool {
	return k == BackendUnavailable || k == Timeout
}

// Error is the concrete error type carried across component boundaries. It
// keeps the offending field name for PARAMS_INVALID and an optional
// underlying cause for logging without leaking it into the wire response.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Kind.Code() + ": " + e.Message + " (field=" + e.Field + ")"
	}
	return e.Kind.Code() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no field/cause attached.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithField attaches the offending parameter name, used for PARAMS_INVALID.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// Wrap builds an *Error carrying cause as the underlying reason, logged but
// never surfaced verbatim to callers.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// As extracts an *Error from err, defaulting to Internal if err is not one
// of ours — every boundary that talks to plugin code needs this fallback.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e
	}
	return Wrap(Internal, "unclassified error", err)
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
