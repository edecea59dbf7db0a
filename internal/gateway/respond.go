package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/flemzord/tgrelay/internal/relay"
	"github.com/flemzord/tgrelay/internal/security"
)

// Client-facing error titles.
const (
	titleNotFound      = "Not Found"
	titleServerError   = "Server Error"
	titleMissingFields = "Missing required fields"
	titleInvalidBody   = "Invalid request body"
	titleConfig        = "Server configuration error"
	titleTelegram      = "Telegram API Error"
	titleProxy         = "Proxy Server Error"
	titleUnauthorized  = "Unauthorized"

	msgNotFound = "The requested resource does not exist."
	msgInternal = "Internal Server Error"
)

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

type successBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// responder renders every client-facing response so the production gate
// and redaction apply in one place.
type responder struct {
	production bool
	redactor   *security.Redactor
	logger     *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// detail hides msg in production and redacts it otherwise.
func (rs *responder) detail(msg string) string {
	if rs.production {
		return msgInternal
	}
	return rs.redactor.Redact(msg)
}

func (rs *responder) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: titleNotFound, Message: msgNotFound})
}

func (rs *responder) serverError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: titleServerError, Message: rs.detail(msg)})
}

func (rs *responder) success(w http.ResponseWriter, res *relay.Result) {
	var data any = json.RawMessage(res.Body)
	if !json.Valid(res.Body) {
		data = string(res.Body)
	}
	writeJSON(w, http.StatusOK, successBody{Success: true, Data: data})
}

// failure renders err. networkTitle names transport failures, which differ
// between the typed and forward strategies.
func (rs *responder) failure(w http.ResponseWriter, r *http.Request, err error, networkTitle string) {
	f, ok := relay.AsFailure(err)
	if !ok {
		rs.logger.Error("unclassified relay error", "path", rs.redactor.Redact(r.URL.Path), "error", err)
		rs.serverError(w, err.Error())
		return
	}

	switch f.Kind {
	case relay.KindValidation:
		if len(f.Fields) > 0 {
			writeJSON(w, f.Status, errorBody{Error: titleMissingFields, Message: f.Message, Fields: f.Fields})
			return
		}
		writeJSON(w, f.Status, errorBody{Error: titleInvalidBody, Message: f.Message})

	case relay.KindConfig:
		rs.logger.Error("relay request rejected: bot token missing", "path", r.URL.Path)
		writeJSON(w, f.Status, errorBody{Error: titleConfig, Message: f.Message})

	case relay.KindUpstream:
		ct := f.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(f.Status)
		_, _ = w.Write(f.Body)

	default:
		rs.logger.Warn("upstream unreachable", "path", rs.redactor.Redact(r.URL.Path), "error", f.Err)
		writeJSON(w, f.Status, errorBody{Error: networkTitle, Message: rs.detail(f.Detail())})
	}
}
