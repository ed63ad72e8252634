// Package accounts serves sign-up, sign-in and the user endpoints under
// /api/auth and /api/users.
package accounts

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/admitai/admitai-korea/internal/auth"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/db/repositories"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Handlers handles account endpoints
type Handlers struct {
	cfg          *config.Config
	tokens       *auth.TokenManager
	userRepo     *repositories.UserRepository
	auditRepo    *repositories.AuditRepository
	storyRepo    *repositories.StoryRepository
	timelineRepo *repositories.TimelineRepository
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, db *sqlx.DB, tokens *auth.TokenManager) *Handlers {
	return &Handlers{
		cfg:          cfg,
		tokens:       tokens,
		userRepo:     repositories.NewUserRepository(db.DB),
		auditRepo:    repositories.NewAuditRepository(db),
		storyRepo:    repositories.NewStoryRepository(db),
		timelineRepo: repositories.NewTimelineRepository(db),
		now:          time.Now,
	}
}

// RegisterAuth mounts /register, /login and /verify. requireAuth guards /verify.
func (h *Handlers) RegisterAuth(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("/register", h.RegisterHandler())
	rg.POST("/login", h.LoginHandler())
	rg.GET("/verify", requireAuth, h.VerifyHandler())
}

// RegisterUsers mounts the user routes on an authenticated group. admin
// guards the listing endpoints.
func (h *Handlers) RegisterUsers(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/me", h.MeHandler())
	rg.GET("/me/dashboard", h.DashboardHandler())
	rg.GET("", admin, h.ListUsersHandler())
	rg.GET("/audit-logs", admin, h.ListAuditLogsHandler())
}

// pagination reads page and per_page, clamping them to sane bounds.
func pagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func okJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}
