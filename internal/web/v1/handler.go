package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/twinning-project/twinning-api/internal/core/domain"
	logicv1 "github.com/twinning-project/twinning-api/internal/logic/v1"
	"github.com/twinning-project/twinning-api/middleware"
)

// SessionService is the slice of the session token service the handlers use.
type SessionService interface {
	SessionValidator
	Issue(ctx context.Context, email, password string) (string, error)
	Revoke(ctx context.Context, key string) error
}

// AccountService covers registration, activation, and the password-reset flow.
type AccountService interface {
	Register(ctx context.Context, req logicv1.RegisterRequest) (*domain.User, error)
	Activate(ctx context.Context, key string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, key, newPassword string) error
}

// Handler groups the HTTP handlers of the authentication API.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	sessions SessionService
	accounts AccountService
}

// NewHandler creates a Handler with the given services.
func NewHandler(sessions SessionService, accounts AccountService) *Handler {
	return &Handler{sessions: sessions, accounts: accounts}
}

// RegisterRoutes registers the API routes on the given router group. The
// authentication gate runs for every route; RequireAuth marks the ones that
// refuse anonymous callers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(AuthenticationGate(h.sessions))

	rg.POST("/authentication", h.Login)
	rg.DELETE("/authentication/:key", RequireAuth(), h.Logout)
	rg.POST("/users", h.Register)
	rg.POST("/users/activate", h.Activate)
	rg.GET("/profile", RequireAuth(), h.Profile)
	rg.POST("/reset_password", h.ResetPassword)
	rg.POST("/change_password", h.ChangePassword)
}

// loginRequest is the credential exchange payload. The username field
// carries the account email; the field name is kept for compatibility with
// existing clients.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type activateRequest struct {
	ActivationToken string `json:"activation_token" binding:"required"`
}

type resetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type changePasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// userResponse is the public shape of a user.
type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `json:"is_active"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
	}
}

// Login exchanges credentials for a session key.
// POST /authentication
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.login", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	key, err := h.sessions.Issue(ctx, req.Username, req.Password)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, logicv1.ErrInvalidCredentials) {
			logger.Warn().Msg("Login rejected")
			c.JSON(http.StatusBadRequest, gin.H{
				"non_field_errors": []string{"Unable to log in with provided credentials."},
			})
			return
		}
		logger.Error().Err(err).Msg("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": key})
}

// Logout revokes the caller's own session.
// DELETE /authentication/:key
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.logout", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	// A session may only revoke itself; other keys are invisible.
	own, _ := currentSessionKey(c)
	if c.Param("key") != own {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}

	if err := h.sessions.Revoke(ctx, own); err != nil {
		span.RecordError(err)
		zerolog.Ctx(ctx).Error().Err(err).Msg("Session revocation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Register creates an inactive account and triggers activation delivery.
// POST /users
func (h *Handler) Register(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.register", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.accounts.Register(ctx, logicv1.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrUserExists):
			c.JSON(http.StatusBadRequest, gin.H{
				"email": []string{"An account for the specified email address already exists."},
			})
		case errors.Is(err, logicv1.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"password": []string{err.Error()}})
		default:
			logger.Error().Err(err).Msg("Registration failed")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		}
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("User registered")
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Activate redeems an account_activation token.
// POST /users/activate
func (h *Handler) Activate(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.activate", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.accounts.Activate(ctx, req.ActivationToken)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrActionTokenNotFound),
			errors.Is(err, logicv1.ErrActionTokenTypeMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid activation token."})
		case errors.Is(err, logicv1.ErrActionTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Activation token has expired."})
		default:
			logger.Error().Err(err).Msg("Activation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		}
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("User activated")
	c.JSON(http.StatusOK, toUserResponse(user))
}

// Profile returns the authenticated principal.
// GET /profile
func (h *Handler) Profile(c *gin.Context) {
	user, _ := CurrentUser(c)
	c.JSON(http.StatusOK, toUserResponse(user))
}

// ResetPassword issues a password_change token for the given email.
// POST /reset_password
func (h *Handler) ResetPassword(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.reset_password", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := h.accounts.RequestPasswordReset(ctx, req.Email); err != nil {
		span.RecordError(err)
		if errors.Is(err, logicv1.ErrEmailNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{
				"email": []string{"No account associated to this email address."},
			})
			return
		}
		logger.Error().Err(err).Msg("Password reset request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangePassword redeems a password_change token with a new password.
// POST /change_password
func (h *Handler) ChangePassword(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.change_password", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := h.accounts.ChangePassword(ctx, req.Token, req.NewPassword); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrActionTokenNotFound),
			errors.Is(err, logicv1.ErrActionTokenTypeMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid password-change token."})
		case errors.Is(err, logicv1.ErrActionTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Password-change token has expired."})
		case errors.Is(err, logicv1.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"new_password": []string{err.Error()}})
		default:
			logger.Error().Err(err).Msg("Password change failed")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
