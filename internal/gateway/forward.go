package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/relay"
	"github.com/flemzord/tgrelay/internal/telegram"
)

// GenericForward proxies POST requests under the prefix to the Bot API
// with the prefix stripped. Upstream replies are streamed back untouched.
type GenericForward struct {
	prefix    string
	client    *telegram.Client
	relay     *relay.Service
	resp      *responder
	stripAuth bool
	tracer    trace.Tracer
	proxy     *httputil.ReverseProxy
}

type forwardKey struct{}

// forwardState travels with one proxied request.
type forwardState struct {
	target  *url.URL
	status  int
	outcome string
}

func newGenericForward(prefix string, client *telegram.Client, svc *relay.Service, rs *responder, stripAuth bool) *GenericForward {
	f := &GenericForward{
		prefix:    prefix,
		client:    client,
		relay:     svc,
		resp:      rs,
		stripAuth: stripAuth,
		tracer:    otel.Tracer(relay.TracerName),
	}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:        f.rewrite,
		ModifyResponse: f.modifyResponse,
		ErrorHandler:   f.errorHandler,
	}
	return f
}

// Name implements Strategy.
func (f *GenericForward) Name() string { return config.ModeForward }

// Mount implements Strategy. Only POST is routed; other methods fall
// through to the not-found handler.
func (f *GenericForward) Mount(r chi.Router) {
	r.Post(f.prefix+"/*", f.ServeHTTP)
}

func (f *GenericForward) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fw := relay.RawForward{Path: strings.TrimPrefix(r.URL.Path, f.prefix), Method: r.Method}
	if !fw.Forwardable() {
		f.resp.notFound(w, r)
		return
	}
	method := fw.APIMethod()
	start := time.Now()

	target, err := f.client.ForwardURL(fw.Path, r.URL.RawQuery)
	if err != nil {
		if errors.Is(err, telegram.ErrNoToken) {
			err = relay.MissingToken()
		}
		f.relay.Observe(method, outcomeOf(err), time.Since(start))
		f.resp.failure(w, r, err, titleProxy)
		return
	}

	ctx, span := f.tracer.Start(r.Context(), "relay.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("telegram.method", method)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, f.client.Timeout())
	defer cancel()

	st := &forwardState{target: target}
	f.proxy.ServeHTTP(w, r.WithContext(context.WithValue(ctx, forwardKey{}, st)))

	if st.status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", st.status))
	}
	if st.outcome != relay.OutcomeSuccess {
		span.SetStatus(codes.Error, st.outcome)
	}
	f.relay.Observe(method, st.outcome, time.Since(start))
}

func (f *GenericForward) rewrite(pr *httputil.ProxyRequest) {
	st := pr.In.Context().Value(forwardKey{}).(*forwardState)

	target := *st.target
	pr.Out.URL = &target
	pr.Out.Host = ""

	pr.Out.Header.Set("Accept", "application/json")
	pr.Out.Header.Set("X-Forwarded-For", forwardedFor(pr.In))
	if f.stripAuth {
		// The relay's own credentials are not the caller's to forward.
		pr.Out.Header.Del("Authorization")
	}
}

func (f *GenericForward) modifyResponse(resp *http.Response) error {
	st := resp.Request.Context().Value(forwardKey{}).(*forwardState)
	st.status = resp.StatusCode
	st.outcome = relay.OutcomeSuccess
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		st.outcome = string(relay.KindUpstream)
	}
	return nil
}

func (f *GenericForward) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	st := r.Context().Value(forwardKey{}).(*forwardState)
	st.status = http.StatusInternalServerError
	st.outcome = string(relay.KindNetwork)

	f.resp.failure(w, r, &relay.Failure{
		Kind:    relay.KindNetwork,
		Status:  http.StatusInternalServerError,
		Message: "proxy request failed",
		Err:     err,
	}, titleProxy)
}

// forwardedFor appends the caller address to any inbound X-Forwarded-For.
func forwardedFor(r *http.Request) string {
	client := r.RemoteAddr
	if host, _, err := net.SplitHostPort(client); err == nil {
		client = host
	}
	if prior := r.Header.Values("X-Forwarded-For"); len(prior) > 0 {
		return strings.Join(prior, ", ") + ", " + client
	}
	return client
}

func outcomeOf(err error) string {
	if f, ok := relay.AsFailure(err); ok {
		return string(f.Kind)
	}
	return string(relay.KindNetwork)
}
