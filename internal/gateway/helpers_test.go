package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/relay"
	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/internal/telegram"
)

const testToken = "123456789:AAGupQg3jBQc9a_RgBprzLXUvQN-TaxA9MY"

func testResponder() *responder {
	return &responder{
		redactor: security.NewRedactor(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		Version:     "1",
		Environment: "development",
		Server: config.ServerConfig{
			Bind:            "127.0.0.1:0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
			CORS: config.CORSConfig{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
			},
		},
		Telegram: config.TelegramConfig{Token: testToken, Timeout: 5 * time.Second},
		Relay:    config.RelayConfig{Mode: mode, Prefix: "/api/telegram"},
		Metrics:  config.MetricsConfig{Path: "/metrics"},
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// upstreamRequest is what the fake Bot API saw.
type upstreamRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type harness struct {
	gw      *Gateway
	metrics *Metrics
	logs    *syncBuffer

	hits atomic.Int64
	mu   sync.Mutex
	seen []upstreamRequest
}

type harnessOpts struct {
	mode     string
	upstream http.HandlerFunc // nil: upstream unreachable
	mutate   func(*config.Config)
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()

	h := &harness{logs: &syncBuffer{}}

	var upstreamURL string
	if opts.upstream != nil {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			h.hits.Add(1)
			h.mu.Lock()
			h.seen = append(h.seen, upstreamRequest{
				Method: r.Method,
				Path:   r.URL.Path,
				Query:  r.URL.RawQuery,
				Header: r.Header.Clone(),
				Body:   body,
			})
			h.mu.Unlock()
			r.Body = io.NopCloser(bytes.NewReader(body))
			opts.upstream(w, r)
		}))
		t.Cleanup(srv.Close)
		upstreamURL = srv.URL
	} else {
		srv := httptest.NewServer(http.NotFoundHandler())
		upstreamURL = srv.URL
		srv.Close()
	}

	mode := opts.mode
	if mode == "" {
		mode = config.ModeTyped
	}
	cfg := testConfig(mode)
	cfg.Telegram.APIURL = upstreamURL
	if opts.mutate != nil {
		opts.mutate(cfg)
	}

	redactor := security.NewRedactor()
	redactor.AddLiteral(cfg.Telegram.Token)
	logger := slog.New(security.NewRedactingHandler(slog.NewTextHandler(h.logs, nil), redactor))

	client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL, cfg.Telegram.Timeout)
	h.metrics = NewMetrics()
	svc := relay.NewService(client, relay.WithObserver(h.metrics), relay.WithLogger(logger))

	gw, err := New(cfg, Deps{
		Relay:    svc,
		Client:   client,
		Metrics:  h.metrics,
		Redactor: redactor,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.gw = gw
	return h
}

func (h *harness) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.gw.Handler().ServeHTTP(rr, req)
	return rr
}

func (h *harness) lastUpstream(t *testing.T) upstreamRequest {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.seen) == 0 {
		t.Fatal("upstream was never called")
	}
	return h.seen[len(h.seen)-1]
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body
}

func telegramOK(result string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":`+result+`}`)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
