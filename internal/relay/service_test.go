package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/flemzord/tgrelay/internal/telegram"
)

type call struct {
	method  string
	payload []byte
}

// fakeCaller records calls and replies with a canned response or error.
type fakeCaller struct {
	token bool
	resp  *telegram.Response
	err   error

	mu    sync.Mutex
	calls []call
}

func (f *fakeCaller) HasToken() bool { return f.token }

func (f *fakeCaller) Call(_ context.Context, method string, payload any) (*telegram.Response, error) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, payload: data})
	f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeCaller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type observation struct {
	method, outcome string
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveRelay(method, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, outcome})
}

func okResponse(body string) *telegram.Response {
	return &telegram.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func TestHandle_SendMessageSuccess(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{token: true, resp: okResponse(`{"ok":true,"result":{"message_id":1}}`)}
	obs := &recordingObserver{}
	svc := NewService(caller, WithObserver(obs))

	res, err := svc.Handle(context.Background(), SendMessage{ChatID: "42", Text: "hi"})
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if string(res.Body) != `{"ok":true,"result":{"message_id":1}}` {
		t.Errorf("Body = %s, want upstream body", res.Body)
	}
	if caller.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", caller.callCount())
	}
	if caller.calls[0].method != "sendMessage" {
		t.Errorf("method = %q, want sendMessage", caller.calls[0].method)
	}
	if got := string(caller.calls[0].payload); got != `{"chat_id":42,"text":"hi"}` {
		t.Errorf("payload = %s, want only chat_id and text", got)
	}
	if want := []observation{{"sendMessage", OutcomeSuccess}}; !reflect.DeepEqual(obs.obs, want) {
		t.Errorf("observations = %v, want %v", obs.obs, want)
	}
}

func TestHandle_OptionalFieldsForwarded(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{token: true, resp: okResponse(`{"ok":true}`)}
	svc := NewService(caller)

	if _, err := svc.Handle(context.Background(), SendPhoto{ChatID: "@chan", Photo: "https://x/y.png", Caption: "look"}); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if got := string(caller.calls[0].payload); got != `{"chat_id":"@chan","photo":"https://x/y.png","caption":"look"}` {
		t.Errorf("payload = %s", got)
	}
}

func TestHandle_ValidationFailsBeforeCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action Action
		fields []string
		msg    string
	}{
		{"message missing both", SendMessage{}, []string{"chat_id", "text"}, "Both chat_id and text are required"},
		{"message missing text", SendMessage{ChatID: "1"}, []string{"text"}, "text is required"},
		{"message missing chat", SendMessage{Text: "x"}, []string{"chat_id"}, "chat_id is required"},
		{"photo missing photo", SendPhoto{ChatID: "1"}, []string{"photo"}, "photo is required"},
		{"photo missing both", SendPhoto{Caption: "c"}, []string{"chat_id", "photo"}, "Both chat_id and photo are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			caller := &fakeCaller{token: true, resp: okResponse(`{}`)}
			_, err := NewService(caller).Handle(context.Background(), tt.action)

			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			f, _ := AsFailure(err)
			if f.Status != http.StatusBadRequest {
				t.Errorf("Status = %d, want 400", f.Status)
			}
			if !reflect.DeepEqual(f.Fields, tt.fields) {
				t.Errorf("Fields = %v, want %v", f.Fields, tt.fields)
			}
			if f.Message != tt.msg {
				t.Errorf("Message = %q, want %q", f.Message, tt.msg)
			}
			if caller.callCount() != 0 {
				t.Errorf("upstream called %d times, want 0", caller.callCount())
			}
		})
	}
}

func TestHandle_MissingTokenIsConfigError(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{token: false}
	_, err := NewService(caller).Handle(context.Background(), SendMessage{})

	if !errors.Is(err, ErrConfig) {
		t.Fatalf("error = %v, want ErrConfig", err)
	}
	f, _ := AsFailure(err)
	if f.Status != http.StatusInternalServerError || f.Message != MsgTokenMissing {
		t.Errorf("Failure = %+v", f)
	}
	if caller.callCount() != 0 {
		t.Error("upstream called without credentials")
	}
}

func TestHandle_UpstreamErrorMirrored(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{token: true, resp: &telegram.Response{
		StatusCode: http.StatusBadRequest,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"ok":false,"description":"Bad Request"}`),
	}}
	obs := &recordingObserver{}
	_, err := NewService(caller, WithObserver(obs)).Handle(context.Background(), SendMessage{ChatID: "1", Text: "x"})

	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	f, _ := AsFailure(err)
	if f.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", f.Status)
	}
	if string(f.Body) != `{"ok":false,"description":"Bad Request"}` {
		t.Errorf("Body = %s, want verbatim", f.Body)
	}
	if f.ContentType != "application/json" {
		t.Errorf("ContentType = %q", f.ContentType)
	}
	if obs.obs[0].outcome != string(KindUpstream) {
		t.Errorf("outcome = %q, want %q", obs.obs[0].outcome, KindUpstream)
	}
}

func TestHandle_TransportErrorIsNetworkFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	caller := &fakeCaller{token: true, err: cause}
	_, err := NewService(caller).Handle(context.Background(), SendPhoto{ChatID: "1", Photo: "p"})

	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error does not wrap cause")
	}
	f, _ := AsFailure(err)
	if f.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", f.Status)
	}
	if f.Detail() != cause.Error() {
		t.Errorf("Detail() = %q, want %q", f.Detail(), cause.Error())
	}
}

func TestHandle_EncodeErrorIsValidationFailure(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{token: true, err: fmt.Errorf("%w sendMessage: bad chat_id", telegram.ErrEncode)}
	obs := &recordingObserver{}
	_, err := NewService(caller, WithObserver(obs)).Handle(context.Background(), SendMessage{ChatID: "1", Text: "x"})

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want no ErrNetwork", err)
	}
	f, _ := AsFailure(err)
	if f.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", f.Status)
	}
	if obs.obs[0].outcome != string(KindValidation) {
		t.Errorf("outcome = %q, want %q", obs.obs[0].outcome, KindValidation)
	}
}

func TestHandle_ZeroPaddedChatIDStaysString(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode upstream body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := telegram.NewClient("1:abc", srv.URL, time.Second)
	if _, err := NewService(client).Handle(context.Background(), SendMessage{ChatID: "007", Text: "x"}); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if got["chat_id"] != "007" {
		t.Errorf("chat_id = %#v, want string 007", got["chat_id"])
	}
}

func TestHandle_EmitsSpan(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	caller := &fakeCaller{token: true, resp: okResponse(`{"ok":true}`)}
	svc := NewService(caller, WithTracer(tp.Tracer(TracerName)))
	if _, err := svc.Handle(context.Background(), SendMessage{ChatID: "1", Text: "x"}); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "relay.sendMessage" {
		t.Errorf("span name = %q, want relay.sendMessage", spans[0].Name())
	}
}

func TestHandle_ThroughRealClient(t *testing.T) {
	t.Parallel()

	// A closed port yields a transport failure from the real client.
	client := telegram.NewClient("1:abc", "http://127.0.0.1:1", time.Second)
	_, err := NewService(client).Handle(context.Background(), SendMessage{ChatID: "1", Text: "x"})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
}
