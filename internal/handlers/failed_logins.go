package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mssola/useragent"

	"github.com/mdavison/bastion/internal/services"
	pkghttp "github.com/mdavison/bastion/pkg/http"
)

// FailedLoginHandler exposes the failed-login ledger to administrators
type FailedLoginHandler struct {
	ledger services.FailureLedger
}

func NewFailedLoginHandler(ledger services.FailureLedger) *FailedLoginHandler {
	return &FailedLoginHandler{ledger: ledger}
}

// FailedLoginEntry is one ledger record with the user agent summarized for
// human review
type FailedLoginEntry struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Client    string    `json:"client"`
	CreatedAt time.Time `json:"created_at"`
}

// FailedLoginListResponse wraps the ledger listing
type FailedLoginListResponse struct {
	FailedLogins []FailedLoginEntry `json:"failed_logins"`
	Total        int                `json:"total"`
}

// List returns every recorded failed login, newest data included
func (h *FailedLoginHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.ListAll(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	entries := make([]FailedLoginEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, FailedLoginEntry{
			ID:        rec.ID,
			Email:     rec.Email,
			IP:        rec.IP,
			UserAgent: rec.UserAgent,
			Client:    summarizeUserAgent(rec.UserAgent),
			CreatedAt: rec.CreatedAt,
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, FailedLoginListResponse{
		FailedLogins: entries,
		Total:        len(entries),
	})
}

// summarizeUserAgent renders "Browser x.y on OS" for display, or "unknown"
// when the string is empty or unparseable.
func summarizeUserAgent(raw string) string {
	if raw == "" {
		return "unknown"
	}

	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}

	summary := name
	if version != "" {
		summary = fmt.Sprintf("%s %s", name, version)
	}
	if os := ua.OS(); os != "" {
		summary = fmt.Sprintf("%s on %s", summary, os)
	}
	if ua.Bot() {
		summary = fmt.Sprintf("%s (bot)", summary)
	}
	return summary
}
