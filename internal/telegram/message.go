// Package telegram formats contact inquiries and delivers them through the
// Telegram Bot API.
package telegram

import (
	"strings"

	"github.com/onnwee/formgate/internal/validate"
)

// Placeholders rendered for absent optional fields. The email field is the
// exception: it is omitted from the message entirely when absent.
const (
	PlaceholderName    = "not specified"
	PlaceholderPhone   = "not specified"
	PlaceholderService = "not selected"
	PlaceholderMessage = "no message"
	DefaultFormType    = "Order"
)

// Inquiry is a sanitized contact submission: every field is already
// escaped against markup injection and ready to embed in the outbound
// message and the audit record.
type Inquiry struct {
	FormType string
	Name     string
	Phone    string
	Email    string // empty when the sender gave none
	Service  string
	Message  string
}

// NewInquiry sanitizes raw form fields into an Inquiry. Free-text fields
// are escaped; absent optional fields get their placeholder. An email that
// fails validation is kept, flagged, so the recipient can still see what
// the sender typed.
func NewInquiry(formType, name, phone, email, service, message string) Inquiry {
	inq := Inquiry{
		FormType: validate.FieldOrDefault(formType, DefaultFormType),
		Name:     validate.FieldOrDefault(name, PlaceholderName),
		Phone:    validate.FieldOrDefault(phone, PlaceholderPhone),
		Service:  validate.FieldOrDefault(service, PlaceholderService),
		Message:  validate.FieldOrDefault(message, PlaceholderMessage),
	}

	if trimmed := strings.TrimSpace(email); trimmed != "" {
		normalized, err := validate.Email(trimmed)
		if err != nil {
			inq.Email = "invalid email: " + validate.EscapeField(trimmed)
		} else {
			inq.Email = normalized
		}
	}

	return inq
}

// Format renders the inquiry into the notification text. The destination
// renders Markdown, which is why the fields were escaped.
func Format(inq Inquiry) string {
	var b strings.Builder

	b.WriteString("📌 *New inquiry: " + inq.FormType + "*\n\n")
	b.WriteString("👤 *Name:* " + inq.Name + "\n")
	b.WriteString("📱 *Phone:* " + inq.Phone + "\n")
	if inq.Email != "" {
		b.WriteString("📧 *Email:* " + inq.Email + "\n")
	}
	b.WriteString("🔧 *Service:* " + inq.Service + "\n\n")
	b.WriteString("✉️ *Message:*\n" + inq.Message)

	return b.String()
}
