package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/onnwee/formgate/internal/audit"
	"github.com/onnwee/formgate/internal/gate"
	"github.com/onnwee/formgate/internal/middleware"
	"github.com/onnwee/formgate/internal/telegram"
	"github.com/onnwee/formgate/internal/verify"
)

// SubmitTimeHeader carries the client-reported form render time (epoch
// seconds) for the minimum-latency spam heuristic.
const SubmitTimeHeader = "X-Form-Submit-Time"

// maxBodyBytes caps the request body. Contact forms are tiny; anything
// near this limit is abuse.
const maxBodyBytes = 10 << 20

// Client-facing messages. Provider error detail never appears here.
const (
	msgSent                = "Your request has been sent successfully!"
	msgInvalidBody         = "Invalid request body."
	msgMethodNotAllowed    = "Method not allowed."
	msgTokenMissing        = "reCAPTCHA token not provided."
	msgVerificationFailed  = "Robot verification failed. Please try again."
	msgVerifyUnreachable   = "Could not reach the verification service. Please try again later."
	msgDeliveryFailed      = "Could not send your request. Please try again later."
)

// Verifier is the bot-score verification step.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Sender is the message dispatch step.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// ContactHandlers holds dependencies for the contact relay endpoint.
type ContactHandlers struct {
	gate     *gate.Gate
	verifier Verifier
	sender   Sender
	audit    audit.Logger
	metrics  *middleware.Metrics // optional
}

// NewContactHandlers creates a ContactHandlers instance. metrics may be nil.
func NewContactHandlers(g *gate.Gate, verifier Verifier, sender Sender, auditLog audit.Logger, metrics *middleware.Metrics) *ContactHandlers {
	return &ContactHandlers{
		gate:     g,
		verifier: verifier,
		sender:   sender,
		audit:    auditLog,
		metrics:  metrics,
	}
}

// submission is the explicit input schema for the endpoint. Both field
// generations are accepted: `contact` aliases `phone`, `description`
// aliases `message`. Unknown fields are ignored.
type submission struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Contact           string `json:"contact"`
	Email             string `json:"email"`
	Service           string `json:"service"`
	Message           string `json:"message"`
	Description       string `json:"description"`
	FormType          string `json:"form_type"`
	Website           string `json:"website"` // honeypot, never rendered to real users
	RecaptchaResponse string `json:"recaptcha_response"`
}

// phoneField resolves the phone/contact alias pair.
func (s *submission) phoneField() string {
	if strings.TrimSpace(s.Phone) != "" {
		return s.Phone
	}
	return s.Contact
}

// messageField resolves the message/description alias pair.
func (s *submission) messageField() string {
	if strings.TrimSpace(s.Message) != "" {
		return s.Message
	}
	return s.Description
}

// HandleSendTelegram processes one contact-form submission.
// POST /includes/send-telegram
//
// Pipeline: gate (origin, honeypot, timing) -> token check -> bot-score
// verification -> format -> dispatch -> audit -> respond. A submission
// rejected at any stage produces exactly one response and, once it reaches
// the dispatch stage, exactly one audit record.
func (h *ContactHandlers) HandleSendTelegram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	sub, err := parseSubmission(w, r)
	if err != nil {
		h.countOutcome("malformed")
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidBody)
		return
	}

	decision := h.gate.Check(r.Referer(), sub.Website, submitTime(r))
	switch decision.Outcome {
	case gate.Rejected:
		h.countOutcome(decision.Code)
		WriteError(w, ctx, decision.Status, decision.Code, decision.Message)
		return
	case gate.FakeAdmitted:
		// Honeypot fired: answer like a success so the bot learns nothing.
		slog.InfoContext(ctx, "honeypot triggered, submission dropped", "ip", middleware.ClientIP(r))
		h.countOutcome("honeypot")
		WriteSuccess(w, msgSent)
		return
	}

	if strings.TrimSpace(sub.RecaptchaResponse) == "" {
		h.countOutcome("missing_token")
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingToken, msgTokenMissing)
		return
	}

	clientIP := middleware.ClientIP(r)

	if err := h.verifier.Verify(ctx, sub.RecaptchaResponse, clientIP); err != nil {
		if errors.Is(err, verify.ErrUnavailable) {
			slog.ErrorContext(ctx, "verification service unavailable", "error", err)
			h.countOutcome("verification_unavailable")
			WriteError(w, ctx, http.StatusBadGateway, ErrCodeVerificationUnavailable, msgVerifyUnreachable)
			return
		}
		h.countOutcome("verification_failed")
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeVerificationFailed, msgVerificationFailed)
		return
	}

	inq := telegram.NewInquiry(sub.FormType, sub.Name, sub.phoneField(), sub.Email, sub.Service, sub.messageField())

	delivered := true
	if err := h.sender.SendMessage(ctx, telegram.Format(inq)); err != nil {
		delivered = false
		slog.ErrorContext(ctx, "dispatch failed", "error", err)
	}

	// One audit record per submission that reached dispatch, regardless of
	// outcome. Audit failures must never change the response.
	if err := h.audit.Log(audit.NewRecord(inq, clientIP, r.UserAgent(), delivered)); err != nil {
		slog.ErrorContext(ctx, "failed to write audit record", "error", err)
	}

	if !delivered {
		h.countOutcome("delivery_failed")
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeDeliveryFailed, msgDeliveryFailed)
		return
	}

	h.countOutcome("delivered")
	WriteSuccess(w, msgSent)
}

func (h *ContactHandlers) countOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.SubmissionOutcomeInc(outcome)
	}
}

// parseSubmission decodes the request body as JSON or form-encoded data,
// depending on Content-Type, with the body size capped.
func parseSubmission(w http.ResponseWriter, r *http.Request) (*submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	contentType := r.Header.Get("Content-Type")
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	if mediaType == "application/json" {
		var sub submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			return nil, err
		}
		return &sub, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &submission{
		Name:              r.PostFormValue("name"),
		Phone:             r.PostFormValue("phone"),
		Contact:           r.PostFormValue("contact"),
		Email:             r.PostFormValue("email"),
		Service:           r.PostFormValue("service"),
		Message:           r.PostFormValue("message"),
		Description:       r.PostFormValue("description"),
		FormType:          r.PostFormValue("form_type"),
		Website:           r.PostFormValue("website"),
		RecaptchaResponse: r.PostFormValue("recaptcha_response"),
	}, nil
}

// submitTime parses the optional client submit-time header. Absent or
// non-numeric values disable the timing check for this request.
func submitTime(r *http.Request) int64 {
	raw := r.Header.Get(SubmitTimeHeader)
	if raw == "" {
		return 0
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ts < 0 {
		return 0
	}
	return ts
}
