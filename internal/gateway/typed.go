package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/relay"
	"github.com/flemzord/tgrelay/internal/security"
)

const maxBodyBytes = 1 << 20

// TypedAction exposes one handler per supported Bot API method and relays
// through relay.Service, wrapping successes in {"success":true,"data":...}.
type TypedAction struct {
	prefix string
	relay  *relay.Service
	resp   *responder
}

// Name implements Strategy.
func (s *TypedAction) Name() string { return config.ModeTyped }

// Mount implements Strategy.
func (s *TypedAction) Mount(r chi.Router) {
	sendMessage := handleAction[relay.SendMessage](s)
	sendPhoto := handleAction[relay.SendPhoto](s)

	r.Post(s.prefix+"/sendMessage", sendMessage)
	r.Post(s.prefix+"/sendPhoto", sendPhoto)

	// Short lowercase aliases kept for existing clients.
	r.Post("/sendmessage", sendMessage)
	r.Post("/sendphoto", sendPhoto)
}

func handleAction[T relay.Action](s *TypedAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var action T
		// Missing credentials outrank a bad body: with no token the zero
		// action goes through Handle and comes back as a config failure.
		if err := decodeBody(w, r, &action); err != nil && s.relay.Configured() {
			s.resp.failure(w, r, relay.InvalidBody(err), titleTelegram)
			return
		}

		res, err := s.relay.Handle(r.Context(), action)
		if err != nil {
			s.resp.failure(w, r, err, titleTelegram)
			return
		}
		s.resp.success(w, res)
	}
}

// decodeBody reads a JSON object into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := security.CheckJSONDepth(data, security.DefaultMaxJSONDepth); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
