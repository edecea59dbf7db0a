// Package relay turns validated client actions into single Bot API calls
// and classifies the outcome. It knows nothing about HTTP routing.
package relay

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/flemzord/tgrelay/internal/telegram"
)

// methodName bounds the label values derived from client paths.
var methodName = regexp.MustCompile(`^[A-Za-z]{1,64}$`)

// Action is a typed outbound Telegram call.
type Action interface {
	// Method is the Bot API method name, e.g. "sendMessage".
	Method() string
	// Payload is the JSON body sent upstream.
	Payload() any
}

// SendMessage sends a text message. Clients may spell fields in snake_case
// or camelCase; snake_case wins when both are present.
type SendMessage struct {
	ChatID    telegram.ChatID `json:"chat_id" validate:"required"`
	Text      string          `json:"text" validate:"required"`
	ParseMode string          `json:"parse_mode,omitempty"`
}

// Method implements Action.
func (SendMessage) Method() string { return "sendMessage" }

// Payload implements Action.
func (a SendMessage) Payload() any {
	return telegram.SendMessageRequest{ChatID: a.ChatID, Text: a.Text, ParseMode: a.ParseMode}
}

// UnmarshalJSON accepts chat_id/chatId and parse_mode/parseMode. A
// botToken field is tolerated and dropped.
func (a *SendMessage) UnmarshalJSON(b []byte) error {
	var in struct {
		ChatID       telegram.ChatID `json:"chat_id"`
		ChatIDAlt    telegram.ChatID `json:"chatId"`
		Text         string          `json:"text"`
		ParseMode    string          `json:"parse_mode"`
		ParseModeAlt string          `json:"parseMode"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*a = SendMessage{
		ChatID:    firstID(in.ChatID, in.ChatIDAlt),
		Text:      in.Text,
		ParseMode: strings.TrimSpace(first(in.ParseMode, in.ParseModeAlt)),
	}
	return nil
}

// SendPhoto sends a photo by URL or file_id.
type SendPhoto struct {
	ChatID  telegram.ChatID `json:"chat_id" validate:"required"`
	Photo   string          `json:"photo" validate:"required"`
	Caption string          `json:"caption,omitempty"`
}

// Method implements Action.
func (SendPhoto) Method() string { return "sendPhoto" }

// Payload implements Action.
func (a SendPhoto) Payload() any {
	return telegram.SendPhotoRequest{ChatID: a.ChatID, Photo: a.Photo, Caption: a.Caption}
}

// UnmarshalJSON accepts chat_id/chatId and photo/photoUrl.
func (a *SendPhoto) UnmarshalJSON(b []byte) error {
	var in struct {
		ChatID    telegram.ChatID `json:"chat_id"`
		ChatIDAlt telegram.ChatID `json:"chatId"`
		Photo     string          `json:"photo"`
		PhotoURL  string          `json:"photoUrl"`
		Caption   string          `json:"caption"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*a = SendPhoto{
		ChatID:  firstID(in.ChatID, in.ChatIDAlt),
		Photo:   strings.TrimSpace(first(in.Photo, in.PhotoURL)),
		Caption: in.Caption,
	}
	return nil
}

// RawForward describes a request passed through to the Bot API untouched.
// Path has the routing prefix already stripped.
type RawForward struct {
	Path   string
	Method string
}

// Forwardable reports whether the request may be relayed. Only POST is.
func (f RawForward) Forwardable() bool {
	return f.Method == http.MethodPost
}

// APIMethod returns the Bot API method named by the last path segment, or
// "unknown" when the segment does not look like a method name.
func (f RawForward) APIMethod() string {
	p := strings.TrimRight(f.Path, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	if !methodName.MatchString(p) {
		return "unknown"
	}
	return p
}

func first(primary, alt string) string {
	if primary != "" {
		return primary
	}
	return alt
}

func firstID(primary, alt telegram.ChatID) telegram.ChatID {
	if primary != "" {
		return primary
	}
	return alt
}
