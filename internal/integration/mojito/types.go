package mojito

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ExternalID is a Mojito360 ticket id. The API emits it as a number or a string.
type ExternalID string

// UnmarshalJSON accepts numbers and strings.
func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ExternalID(n.String())
	return nil
}

// String returns the id as text.
func (id ExternalID) String() string {
	return string(id)
}

// IsNumeric reports whether the id is a positive integer.
func (id ExternalID) IsNumeric() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && n > 0
}

// WebhookPayload is the ticket document Mojito360 posts to the webhook.
type WebhookPayload struct {
	ID          ExternalID      `json:"id" validate:"required"`
	Subject     string          `json:"subject" validate:"max=500"`
	Description string          `json:"description"`
	Status      string          `json:"status" validate:"max=64"`
	Company     string          `json:"company" validate:"max=255"`
	Category    string          `json:"category" validate:"max=255"`
	UserEmail   string          `json:"user_email" validate:"omitempty,email"`
	URL         string          `json:"url" validate:"omitempty,url"`
	Message     *WebhookMessage `json:"message,omitempty"`
	Attachments []string        `json:"attachments" validate:"omitempty,dive,url"`
}

// WebhookMessage is the latest thread message included with a webhook call.
type WebhookMessage struct {
	Content     string `json:"content"`
	AuthorEmail string `json:"author_email" validate:"omitempty,email"`
}

// SenderEmail is the address the change is attributed to: the message author when
// a message is present, otherwise the ticket's user.
func (p WebhookPayload) SenderEmail() string {
	if p.Message != nil && strings.TrimSpace(p.Message.AuthorEmail) != "" {
		return strings.TrimSpace(p.Message.AuthorEmail)
	}
	return strings.TrimSpace(p.UserEmail)
}

// TicketFields are the form fields sent on create and update.
type TicketFields struct {
	Subject     string
	Description string
	Category    string
	Company     string
	UserEmail   string
	Status      string
}

type ticketDocument struct {
	ID          ExternalID `json:"id"`
	ExternalKey string     `json:"external_key"`
	Subject     string     `json:"subject"`
	UserEmail   string     `json:"user_email"`
}

// createResponse covers both the flat and the enveloped create responses.
type createResponse struct {
	ID   ExternalID `json:"id"`
	Data *struct {
		ID ExternalID `json:"id"`
	} `json:"data"`
}

func (r createResponse) externalID() ExternalID {
	if r.ID != "" {
		return r.ID
	}
	if r.Data != nil {
		return r.Data.ID
	}
	return ""
}
