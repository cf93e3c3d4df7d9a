// Package audit provides the append-only submission log: one JSON record
// per processed submission, capturing what was relayed and whether delivery
// succeeded.
package audit

import (
	"time"

	"github.com/onnwee/formgate/internal/telegram"
)

// Record is a single audit entry. Free-text fields are stored escaped,
// exactly as they were embedded in the outbound message, so the log can be
// tailed or diffed without re-sanitizing.
type Record struct {
	Timestamp    string `json:"timestamp"`
	FormType     string `json:"form_type"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Service      string `json:"service"`
	Message      string `json:"message"`
	IP           string `json:"ip"`
	UserAgent    string `json:"user_agent"`
	TelegramSent bool   `json:"telegram_sent"`
}

// NewRecord builds a Record from a sanitized inquiry and request metadata.
func NewRecord(inq telegram.Inquiry, ip, userAgent string, delivered bool) Record {
	return Record{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		FormType:     inq.FormType,
		Name:         inq.Name,
		Phone:        inq.Phone,
		Email:        inq.Email,
		Service:      inq.Service,
		Message:      inq.Message,
		IP:           ip,
		UserAgent:    userAgent,
		TelegramSent: delivered,
	}
}
