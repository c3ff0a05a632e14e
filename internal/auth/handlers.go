package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"novostudio.tech/foundation/internal/api/middleware"
	"novostudio.tech/foundation/internal/entity"
	apperrors "novostudio.tech/foundation/internal/pkg/errors"
)

// Handler serves the /auth routes.
type Handler struct {
	svc *Service
}

// NewHandler wires the auth handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Mount registers the auth routes. Registration, login and the OTP flow are
// public; /auth/me requires a valid token.
func (h *Handler) Mount(public, protected *gin.RouterGroup) {
	public.POST("/auth/register", h.register)
	public.POST("/auth/login", h.login)
	public.POST("/auth/otp/request", h.requestOTP)
	public.POST("/auth/otp/verify", h.verifyOTP)
	protected.GET("/auth/me", h.me)
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type otpRequestRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"omitempty,oneof=login email_verify"`
}

type otpVerifyRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Code    string `json:"code" binding:"required"`
	Purpose string `json:"purpose" binding:"omitempty,oneof=login email_verify"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	user, token, expiresAt, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			err = apperrors.Unauthorized("Invalid credentials")
		}
		c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *Handler) requestOTP(c *gin.Context) {
	var req otpRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	if req.Purpose == "" {
		req.Purpose = entity.OTPPurposeLogin
	}

	if err := h.svc.RequestOTP(c.Request.Context(), req.Email, req.Purpose); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	// Same answer whether or not the account exists.
	c.JSON(http.StatusAccepted, gin.H{
		"message": "If the account exists, a code has been sent",
	})
}

func (h *Handler) verifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	if req.Purpose == "" {
		req.Purpose = entity.OTPPurposeLogin
	}

	user, token, expiresAt, err := h.svc.VerifyOTP(c.Request.Context(), req.Email, req.Code, req.Purpose)
	if err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			err = apperrors.Unauthorized("Invalid or expired code")
		}
		c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.GetUserID(c.Request.Context())
	if userID == "" {
		c.Error(apperrors.Unauthorized("Authentication required"))
		c.Abort()
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			err = apperrors.NotFound("User not found")
		}
		c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, user)
}
