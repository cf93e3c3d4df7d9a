// Package gate implements the submission gatekeeper: cheap, local admission
// checks that run before any external call is made. A submission that fails
// here never reaches the verification service or the dispatch API.
package gate

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Outcome is the gatekeeper's verdict for one submission.
type Outcome int

const (
	// Admitted means the submission may proceed to the relay pipeline.
	Admitted Outcome = iota
	// Rejected means the submission is refused with the attached status and message.
	Rejected
	// FakeAdmitted means the honeypot fired: the caller must be answered
	// with a genuine-looking success, and nothing else may happen.
	FakeAdmitted
)

// Decision carries the outcome and, for rejections, the client-facing
// status, machine error code, and message.
type Decision struct {
	Outcome Outcome
	Status  int
	Code    string
	Message string
}

// Error codes attached to rejections, consumed by the logging middleware.
const (
	CodeForbidden = "origin_forbidden"
	CodeTooFast   = "submitted_too_fast"
)

// Gate holds the static configuration for the admission checks.
// It is safe for concurrent use; Check has no side effects.
type Gate struct {
	allowedHosts   map[string]bool
	minSubmitDelay time.Duration

	// now is stubbed in tests.
	now func() time.Time
}

// New creates a Gate. allowedHosts is the origin allow-list (hostnames,
// already including any development entries). minSubmitSeconds below 1
// disables the timing check.
func New(allowedHosts []string, minSubmitSeconds int) *Gate {
	hosts := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts[h] = true
		}
	}
	return &Gate{
		allowedHosts:   hosts,
		minSubmitDelay: time.Duration(minSubmitSeconds) * time.Second,
		now:            time.Now,
	}
}

// Check runs the admission checks in order: origin, honeypot, timing.
// referer is the raw Referer header; honeypot the trap field value;
// submittedAt the client-reported submit time in epoch seconds (0 = absent).
//
// A missing or unparseable Referer is always rejected: the allow-list is
// the endpoint's only CSRF defense, so there is no lenient mode.
func (g *Gate) Check(referer, honeypot string, submittedAt int64) Decision {
	if !g.originAllowed(referer) {
		return Decision{
			Outcome: Rejected,
			Status:  http.StatusForbidden,
			Code:    CodeForbidden,
			Message: "Access denied.",
		}
	}

	// A non-empty trap field marks a bot. Answer with a convincing success
	// so the defense is not signaled; the caller must not process further.
	if strings.TrimSpace(honeypot) != "" {
		return Decision{Outcome: FakeAdmitted}
	}

	if g.minSubmitDelay > 0 && submittedAt > 0 {
		elapsed := g.now().Sub(time.Unix(submittedAt, 0))
		if elapsed < g.minSubmitDelay {
			return Decision{
				Outcome: Rejected,
				Status:  http.StatusTooManyRequests,
				Code:    CodeTooFast,
				Message: "Form submitted too quickly.",
			}
		}
	}

	return Decision{Outcome: Admitted}
}

// originAllowed extracts the hostname from the Referer value and checks it
// against the allow-list.
func (g *Gate) originAllowed(referer string) bool {
	if referer == "" {
		return false
	}
	u, err := url.Parse(referer)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	return g.allowedHosts[host]
}
