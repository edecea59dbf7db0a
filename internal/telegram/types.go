package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID    ChatID `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SendPhotoRequest is the request body for the sendPhoto method.
type SendPhotoRequest struct {
	ChatID  ChatID `json:"chat_id"`
	Photo   string `json:"photo"`
	Caption string `json:"caption,omitempty"`
}

// User represents a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// APIResponse is the generic envelope returned by the Bot API.
type APIResponse[T any] struct {
	OK          bool                `json:"ok"`
	Result      T                   `json:"result"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters contains information about why a request was unsuccessful.
type ResponseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// APIError represents an error returned by the Bot API.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: API error %d: %s", e.Code, e.Description)
}

// ChatID identifies a chat either by numeric id or by @username. Clients
// send it as a JSON number or string; both decode to the same value.
type ChatID string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (c *ChatID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*c = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ChatID(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("telegram: chat_id must be a number or string: %w", err)
		}
		id, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("telegram: chat_id %s is not an integer", n)
		}
		*c = ChatID(strconv.FormatInt(id, 10))
		return nil
	}
}

// MarshalJSON emits canonical integer ids as numbers and everything else,
// including zero-padded digits like "007", as strings.
func (c ChatID) MarshalJSON() ([]byte, error) {
	if id, err := strconv.ParseInt(string(c), 10, 64); err == nil && strconv.FormatInt(id, 10) == string(c) {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}
