package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/auth"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/locale"
	"github.com/admitai/admitai-korea/internal/middleware"
)

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Language  string `json:"language"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login
type SessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type emailField struct {
	Email string `binding:"required,email"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *RegisterRequest) validate() string {
	r.Email = normalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	r.Language = strings.ToUpper(strings.TrimSpace(r.Language))

	switch {
	case r.Email == "" || r.Password == "" || r.FirstName == "" || r.LastName == "" || r.Role == "":
		return "Missing required fields"
	case binding.Validator.ValidateStruct(emailField{Email: r.Email}) != nil:
		return "Invalid email address"
	case len(r.Password) < auth.MinPasswordLength:
		return "Password must be at least 6 characters"
	case !models.IsSelfRegistrableRole(r.Role):
		return "Invalid role"
	case r.Language != "" && !models.IsValidLanguage(r.Language):
		return "Invalid language"
	}
	return ""
}

func (h *Handlers) session(c *gin.Context, status int, user *models.User) {
	token, err := h.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		_ = c.Error(apierr.Internal("Failed to create session", err))
		return
	}
	okJSON(c, status, SessionResponse{User: user, Token: token})
}

// @Summary      Register
// @Description  Create a STUDENT, PARENT or MENTOR account. Without language the Accept-Language header decides between KO and EN.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  RegisterRequest  true  "New account"
// @Success      201  {object}  map[string]interface{}  "data: SessionResponse"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      409  {object}  map[string]interface{}  "User already exists"
// @Router       /api/auth/register [post]
// RegisterHandler creates an account and signs it in
// POST /api/auth/register
func (h *Handlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		if msg := req.validate(); msg != "" {
			_ = c.Error(apierr.Validation(msg))
			return
		}

		ctx := c.Request.Context()
		existing, err := h.userRepo.GetUserByEmail(ctx, req.Email)
		if err != nil {
			_ = c.Error(apierr.Internal("Failed to check user", err))
			return
		}
		if existing != nil {
			_ = c.Error(apierr.Conflict("User already exists"))
			return
		}

		hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
		if err != nil {
			_ = c.Error(apierr.Internal("Failed to create user", err))
			return
		}
		user := &models.User{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         req.Role,
			Language:     locale.Resolve(req.Language, c.GetHeader("Accept-Language")),
		}
		err = h.userRepo.CreateUser(ctx, user)
		if errors.Is(err, repositories.ErrDuplicate) {
			_ = c.Error(apierr.Conflict("User already exists"))
			return
		}
		if err != nil {
			_ = c.Error(apierr.Internal("Failed to create user", err))
			return
		}

		slog.Info("user registered", "user_id", user.ID, "role", user.Role, "language", user.Language)
		h.session(c, http.StatusCreated, user)
	}
}

// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  map[string]interface{}  "data: SessionResponse"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Router       /api/auth/login [post]
// LoginHandler exchanges credentials for a session token
// POST /api/auth/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		email := normalizeEmail(req.Email)
		if email == "" || req.Password == "" {
			_ = c.Error(apierr.Validation("Missing required fields"))
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			_ = c.Error(apierr.Internal("Failed to look up user", err))
			return
		}
		if user == nil {
			_ = c.Error(apierr.Unauthorized("Invalid credentials"))
			return
		}
		ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
		if err != nil {
			slog.Warn("stored password hash is unusable", "user_id", user.ID, "error", err)
		}
		if !ok {
			_ = c.Error(apierr.Unauthorized("Invalid credentials"))
			return
		}

		h.session(c, http.StatusOK, user)
	}
}

// @Summary      Verify session
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data: {user}"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/auth/verify [get]
// VerifyHandler returns the user behind the session token
// GET /api/auth/verify
func (h *Handlers) VerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := h.currentUser(c)
		if !ok {
			return
		}
		okJSON(c, http.StatusOK, gin.H{"user": user})
	}
}

// currentUser loads the signed-in caller, writing the error when it cannot.
func (h *Handlers) currentUser(c *gin.Context) (*models.User, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		_ = c.Error(apierr.Unauthorized(""))
		return nil, false
	}
	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(apierr.Internal("Failed to fetch user", err))
		return nil, false
	}
	if user == nil {
		_ = c.Error(apierr.NotFound("User not found"))
		return nil, false
	}
	return user, true
}
