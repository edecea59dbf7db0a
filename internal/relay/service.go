package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgrelay/internal/telegram"
)

// TracerName identifies spans emitted by this package.
const TracerName = "github.com/flemzord/tgrelay/internal/relay"

// OutcomeSuccess is the outcome label for a relayed 2xx reply.
const OutcomeSuccess = "success"

// Caller issues one Bot API call. *telegram.Client satisfies it.
type Caller interface {
	HasToken() bool
	Call(ctx context.Context, method string, payload any) (*telegram.Response, error)
}

// Observer receives one observation per handled action. Outcome is
// OutcomeSuccess or a Kind.
type Observer interface {
	ObserveRelay(method, outcome string, elapsed time.Duration)
}

// Result is a successful upstream reply, passed through unchanged.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Service validates actions and relays them upstream, one call each.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	caller   Caller
	validate *validator.Validate
	tracer   trace.Tracer
	observer Observer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithTracer overrides the globally registered tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service calling upstream through caller.
func NewService(caller Caller, opts ...Option) *Service {
	s := &Service{
		caller:   caller,
		validate: newValidator(),
		tracer:   otel.Tracer(TracerName),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "relay")
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Configured reports whether upstream credentials are present.
func (s *Service) Configured() bool {
	return s.caller.HasToken()
}

// Handle validates action and performs exactly one upstream call. Any
// non-success outcome is returned as a *Failure.
func (s *Service) Handle(ctx context.Context, action Action) (*Result, error) {
	method := action.Method()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "relay."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("telegram.method", method)),
	)
	defer span.End()

	res, err := s.handle(ctx, action)

	outcome := OutcomeSuccess
	if f, ok := AsFailure(err); ok {
		outcome = string(f.Kind)
		span.SetAttributes(attribute.Int("http.response.status_code", f.Status))
		span.SetStatus(codes.Error, string(f.Kind))
		if f.Err != nil {
			span.RecordError(f.Err)
		}
	} else if res != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
	}
	s.Observe(method, outcome, time.Since(start))

	s.logger.Debug("action relayed", "method", method, "outcome", outcome, "duration", time.Since(start))
	return res, err
}

// Observe forwards an observation to the configured observer, if any.
func (s *Service) Observe(method, outcome string, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveRelay(method, outcome, elapsed)
	}
}

func (s *Service) handle(ctx context.Context, action Action) (*Result, error) {
	if !s.caller.HasToken() {
		return nil, MissingToken()
	}

	if err := s.validate.Struct(action); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, InvalidBody(err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return nil, missingFields(fields)
	}

	resp, err := s.caller.Call(ctx, action.Method(), action.Payload())
	if err != nil {
		if errors.Is(err, telegram.ErrNoToken) {
			return nil, MissingToken()
		}
		if errors.Is(err, telegram.ErrEncode) {
			return nil, &Failure{
				Kind:    KindValidation,
				Status:  http.StatusBadRequest,
				Message: "request body could not be encoded for the Bot API",
				Err:     err,
			}
		}
		return nil, &Failure{
			Kind:    KindNetwork,
			Status:  http.StatusInternalServerError,
			Message: "Telegram API request failed",
			Err:     err,
		}
	}

	if !resp.OK() {
		return nil, &Failure{
			Kind:        KindUpstream,
			Status:      resp.StatusCode,
			Message:     http.StatusText(resp.StatusCode),
			Body:        resp.Body,
			ContentType: resp.Header.Get("Content-Type"),
		}
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
