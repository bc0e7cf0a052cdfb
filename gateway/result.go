package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const maxRawMessage = 200

// Result is the outcome of one gateway call. Err is nil only for 2xx
// responses; otherwise it is a *Error.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
	RequestID  string
	Duration   time.Duration
}

func (r *Result) Success() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Unauthorized reports whether the call ended in a 401.
func (r *Result) Unauthorized() bool {
	return KindOf(r.Err) == KindAuthorization
}

// Message returns the user facing error message, or "" on success.
func (r *Result) Message() string {
	if r.Err == nil {
		return ""
	}
	if gwErr, ok := r.Err.(*Error); ok && gwErr.Message != "" {
		return gwErr.Message
	}
	return r.Err.Error()
}

// Decode unmarshals a successful result. A body that does not fit T is a
// KindShape error; a failed result returns its own error.
func Decode[T any](r *Result) (T, error) {
	var v T
	if r.Err != nil {
		return v, r.Err
	}
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return v, &Error{Kind: KindShape, StatusCode: r.StatusCode, Message: "unexpected response from server", Err: err}
	}
	return v, nil
}

// errorMessage pulls a message out of an error body. Backends report errors
// as {"detail": ...}, {"message": ...} or {"error": ...}; anything else is
// returned as text.
func errorMessage(statusCode int, body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if msg := messageFrom(fields[key]); msg != "" {
				return msg
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxRawMessage {
		text = text[:maxRawMessage] + "..."
	}
	if text == "" {
		text = http.StatusText(statusCode)
	}
	return text
}

// messageFrom accepts a string or a list of validation errors
// ([{"msg": "..."}]).
func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
