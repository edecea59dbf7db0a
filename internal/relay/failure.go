package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors matched with errors.Is against a *Failure.
var (
	ErrValidation = errors.New("relay: validation failed")
	ErrConfig     = errors.New("relay: server misconfigured")
	ErrUpstream   = errors.New("relay: upstream returned an error")
	ErrNetwork    = errors.New("relay: upstream unreachable")
)

// Kind classifies a relay failure.
type Kind string

// Failure kinds.
const (
	KindValidation Kind = "validation"
	KindConfig     Kind = "config"
	KindUpstream   Kind = "upstream"
	KindNetwork    Kind = "network"
)

// MsgTokenMissing is the fixed ConfigError message.
const MsgTokenMissing = "Telegram bot token is not configured"

// Failure is a classified relay outcome that must not be reported as success.
type Failure struct {
	Kind    Kind
	Status  int
	Message string

	// Fields lists missing or invalid request fields (KindValidation).
	Fields []string

	// Body and ContentType carry the upstream reply verbatim (KindUpstream).
	Body        []byte
	ContentType string

	// Err is the underlying cause, if any.
	Err error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("relay: %s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("relay: %s: %s", f.Kind, f.Message)
}

// Unwrap exposes both the kind sentinel and the cause.
func (f *Failure) Unwrap() []error {
	errs := []error{f.sentinel()}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

func (f *Failure) sentinel() error {
	switch f.Kind {
	case KindValidation:
		return ErrValidation
	case KindConfig:
		return ErrConfig
	case KindUpstream:
		return ErrUpstream
	default:
		return ErrNetwork
	}
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// MissingToken is the ConfigError returned when no bot token is configured.
func MissingToken() *Failure {
	return &Failure{Kind: KindConfig, Status: http.StatusInternalServerError, Message: MsgTokenMissing}
}

func missingFields(fields []string) *Failure {
	return &Failure{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: requiredMessage(fields),
		Fields:  fields,
	}
}

// InvalidBody reports a request body that could not be decoded.
func InvalidBody(err error) *Failure {
	return &Failure{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: "request body must be a JSON object",
		Err:     err,
	}
}

func requiredMessage(fields []string) string {
	switch len(fields) {
	case 0:
		return "required fields missing"
	case 1:
		return fields[0] + " is required"
	case 2:
		return "Both " + fields[0] + " and " + fields[1] + " are required"
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1] + " are required"
	}
}

// Detail is the client-facing explanation used outside production.
func (f *Failure) Detail() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return f.Message
}
