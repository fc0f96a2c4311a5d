package job

import (
	"encoding/json"
	"errors"
	"strings"
)

const TypeWelcomeEmail = "welcome_email"

var ErrInvalidPayload = errors.New("invalid job payload")

// WelcomeEmailPayload greets a freshly registered user. Keep it minimal and
// ID-based; the worker reloads anything else it needs from the store.
type WelcomeEmailPayload struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func (p WelcomeEmailPayload) Encode() (json.RawMessage, error) {
	if p.UserID <= 0 || strings.TrimSpace(p.Email) == "" {
		return nil, ErrInvalidPayload
	}

	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}

	return json.RawMessage(b), nil
}

func DecodeWelcomeEmail(j Job) (WelcomeEmailPayload, error) {
	var p WelcomeEmailPayload

	if len(j.Payload) == 0 {
		return p, ErrInvalidPayload
	}

	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, ErrInvalidPayload
	}

	if p.UserID <= 0 || strings.TrimSpace(p.Email) == "" {
		return p, ErrInvalidPayload
	}

	return p, nil
}
