// Package contact accepts the public contact form.
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/jmoiron/sqlx"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/crypto"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/notify"
	"github.com/admitai/admitai-korea/internal/safego"
	"github.com/admitai/admitai-korea/internal/telemetry"
)

const notifyTimeout = 30 * time.Second

// Handlers handles contact form submissions
type Handlers struct {
	cfg         *config.Config
	contactRepo *repositories.ContactRepository
	cipher      *crypto.FieldCipher
	mailer      notify.Mailer
}

// NewHandlers creates a new Handlers instance. cipher may be nil, in which
// case phone numbers are discarded rather than stored in clear text.
func NewHandlers(cfg *config.Config, db *sqlx.DB, cipher *crypto.FieldCipher, mailer notify.Mailer) *Handlers {
	return &Handlers{
		cfg:         cfg,
		contactRepo: repositories.NewContactRepository(db),
		cipher:      cipher,
		mailer:      mailer,
	}
}

// SubmitRequest is the body of POST /api/contact
type SubmitRequest struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Role               string `json:"role"`
	School             string `json:"school"`
	Grade              string `json:"grade"`
	TargetUniversities string `json:"targetUniversities"`
	Message            string `json:"message"`
	HowDidYouHear      string `json:"howDidYouHear"`
	AgreeToContact     bool   `json:"agreeToContact"`
	AgreeToTerms       bool   `json:"agreeToTerms"`
}

type emailField struct {
	Email string `binding:"required,email"`
}

func validEmail(s string) bool {
	return binding.Validator.ValidateStruct(emailField{Email: s}) == nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// validate trims the request in place and returns the first problem found.
func (r *SubmitRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Message = strings.TrimSpace(r.Message)

	switch {
	case r.Name == "" || r.Email == "" || r.Message == "":
		return "Missing required fields"
	case !validEmail(r.Email):
		return "Invalid email address"
	case !r.AgreeToTerms:
		return "Terms must be accepted"
	}
	return ""
}

// @Summary      Submit contact form
// @Description  Store a contact request. The phone number is encrypted at rest and the team inbox is notified when email is configured.
// @Tags         Contact
// @Accept       json
// @Produce      json
// @Param        body  body  SubmitRequest  true  "Contact form"
// @Success      201  {object}  map[string]interface{}  "data: {id}"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Router       /api/contact [post]
// SubmitHandler stores a contact form submission
// POST /api/contact
func (h *Handlers) SubmitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		if msg := req.validate(); msg != "" {
			_ = c.Error(apierr.Validation(msg))
			return
		}

		sub := &models.ContactSubmission{
			Name:               req.Name,
			Email:              req.Email,
			Role:               optional(req.Role),
			School:             optional(req.School),
			Grade:              optional(req.Grade),
			TargetUniversities: optional(req.TargetUniversities),
			Message:            req.Message,
			HowDidYouHear:      optional(req.HowDidYouHear),
			AgreeToContact:     req.AgreeToContact,
		}
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			if h.cipher == nil {
				slog.Warn("discarding contact phone number: no encryption key configured")
			} else {
				sealed, err := h.cipher.Seal(phone)
				if err != nil {
					_ = c.Error(apierr.Internal("Failed to save contact request", err))
					return
				}
				sub.PhoneEncrypted = &sealed
			}
		}

		if err := h.contactRepo.CreateSubmission(c.Request.Context(), sub); err != nil {
			_ = c.Error(apierr.Internal("Failed to save contact request", err))
			return
		}
		telemetry.ContactSubmissionsTotal.Inc()
		slog.Info("contact request received", "id", sub.ID, "has_phone", sub.PhoneEncrypted != nil)

		h.notifyInbox(sub)
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"id": sub.ID}})
	}
}

// notifyInbox emails the submission to the team inbox in the background.
// Failures are logged only.
func (h *Handlers) notifyInbox(sub *models.ContactSubmission) {
	inbox := h.cfg.Notifications.ContactInbox
	if h.mailer == nil || !h.mailer.Enabled() || inbox == "" {
		return
	}
	msg := notify.Message{
		To:      []string{inbox},
		Subject: fmt.Sprintf("New contact request from %s", sub.Name),
		Body:    formatSubmission(sub),
	}
	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := h.mailer.Send(ctx, msg); err != nil {
			slog.Warn("failed to email contact request", "id", sub.ID, "error", err)
		}
	})
}

func formatSubmission(sub *models.ContactSubmission) string {
	var b strings.Builder
	line := func(label string, v *string) {
		if v != nil {
			fmt.Fprintf(&b, "%s: %s\n", label, *v)
		}
	}
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\n", sub.Name, sub.Email)
	if sub.PhoneEncrypted != nil {
		b.WriteString("Phone: on file\n")
	}
	line("Role", sub.Role)
	line("School", sub.School)
	line("Grade", sub.Grade)
	line("Target universities", sub.TargetUniversities)
	line("Heard about us", sub.HowDidYouHear)
	fmt.Fprintf(&b, "Agrees to be contacted: %t\n\n%s\n", sub.AgreeToContact, sub.Message)
	return b.String()
}
