package telegram

import (
	"strings"
	"testing"
)

func TestNewInquiry_EscapesFields(t *testing.T) {
	inq := NewInquiry("Order", "<b>Ann</b>", "+1000", "", "3D print", "<script>alert(1)</script>")

	if inq.Name != "&lt;b&gt;Ann&lt;/b&gt;" {
		t.Errorf("name not escaped: %q", inq.Name)
	}
	if inq.Message != "&lt;script&gt;alert(1)&lt;/script&gt;" {
		t.Errorf("message not escaped: %q", inq.Message)
	}
	if inq.Phone != "+1000" {
		t.Errorf("unexpected phone: %q", inq.Phone)
	}
}

func TestNewInquiry_Placeholders(t *testing.T) {
	inq := NewInquiry("", "", "", "", "", "")

	if inq.FormType != DefaultFormType {
		t.Errorf("expected default form type, got %q", inq.FormType)
	}
	if inq.Name != PlaceholderName {
		t.Errorf("expected name placeholder, got %q", inq.Name)
	}
	if inq.Phone != PlaceholderPhone {
		t.Errorf("expected phone placeholder, got %q", inq.Phone)
	}
	if inq.Service != PlaceholderService {
		t.Errorf("expected service placeholder, got %q", inq.Service)
	}
	if inq.Message != PlaceholderMessage {
		t.Errorf("expected message placeholder, got %q", inq.Message)
	}
	if inq.Email != "" {
		t.Errorf("expected empty email, got %q", inq.Email)
	}
}

func TestNewInquiry_Email(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"valid normalized", " User@Example.com ", "user@example.com"},
		{"absent stays empty", "", ""},
		{"invalid flagged and escaped", "not<an>email", "invalid email: not&lt;an&gt;email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inq := NewInquiry("", "", "", tt.email, "", "")
			if inq.Email != tt.want {
				t.Errorf("email = %q, want %q", inq.Email, tt.want)
			}
		})
	}
}

func TestFormat_FullInquiry(t *testing.T) {
	inq := NewInquiry("Order", "Ann", "+1000", "ann@example.com", "3D print", "please call me")
	text := Format(inq)

	for _, want := range []string{
		"*New inquiry: Order*",
		"*Name:* Ann",
		"*Phone:* +1000",
		"*Email:* ann@example.com",
		"*Service:* 3D print",
		"*Message:*\nplease call me",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted message missing %q:\n%s", want, text)
		}
	}
}

func TestFormat_OmitsAbsentEmail(t *testing.T) {
	inq := NewInquiry("", "Ann", "+1000", "", "", "")
	text := Format(inq)

	if strings.Contains(text, "Email") {
		t.Errorf("expected no email line for absent email:\n%s", text)
	}
	if !strings.Contains(text, PlaceholderService) {
		t.Errorf("expected service placeholder in message:\n%s", text)
	}
}

func TestFormat_EscapedMarkupReachesMessage(t *testing.T) {
	inq := NewInquiry("", "Ann", "+1000", "", "3D print", "<script>")
	text := Format(inq)

	if !strings.Contains(text, "&lt;script&gt;") {
		t.Errorf("expected escaped markup in message:\n%s", text)
	}
	if strings.Contains(text, "<script>") {
		t.Errorf("raw markup leaked into message:\n%s", text)
	}
}
