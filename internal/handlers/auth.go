package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type otpRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// Signup stores a pending user and mails the verification code.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Email     string      `json:"email" binding:"required,email"`
		Password  string      `json:"password" binding:"required,min=6"`
		Name      string      `json:"name" binding:"required"`
		Role      models.Role `json:"role" binding:"omitempty,oneof=admin manager employee"`
		SecretKey string      `json:"secretKey"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	err := h.authService.Signup(c.Request.Context(), services.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Role:      req.Role,
		SecretKey: req.SecretKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message: "OTP sent to your email. Please verify to complete signup.",
	})
}

// SignupVerifyOTP completes a password signup.
func (h *AuthHandler) SignupVerifyOTP(c *gin.Context) {
	h.verify(c, h.authService.VerifySignupOTP, "Email verified successfully")
}

// GoogleVerifyOTP completes a Google signup.
func (h *AuthHandler) GoogleVerifyOTP(c *gin.Context) {
	h.verify(c, h.authService.VerifyGoogleOTP, "Email verified successfully")
}

// VerifyOTP checks a code requested through SendOTP.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	h.verify(c, h.authService.VerifyOTP, "OTP verified successfully")
}

func (h *AuthHandler) verify(
	c *gin.Context,
	verifyFn func(ctx context.Context, email, code string) (*services.AuthResult, error),
	message string,
) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	result, err := verifyFn(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAuthResponse(*result.User, result.Tokens, message))
}

// Login authenticates a user with email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAuthResponse(*result.User, result.Tokens, ""))
}

// Google signs in with a Google ID token. Unverified accounts get an OTP
// challenge instead of tokens.
func (h *AuthHandler) Google(c *gin.Context) {
	type GoogleRequest struct {
		IDToken string `json:"idToken" binding:"required"`
	}

	var req GoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	result, err := h.authService.GoogleSignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.RequiresOTP {
		c.JSON(http.StatusOK, dto.OTPChallengeResponse{
			Message:     "OTP sent to your email. Please verify to complete signup.",
			RequiresOTP: true,
			Email:       result.Email,
		})
		return
	}

	c.JSON(http.StatusOK, dto.ToAuthResponse(*result.User, result.Tokens, "Login successful"))
}

// SendOTP mails a fresh code to an existing user.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	type SendOTPRequest struct {
		Email string `json:"email" binding:"required,email"`
	}

	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	if err := h.authService.SendOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OTP sent to your email"})
}

// Refresh rotates a refresh token into a new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTokenResponse(tokens))
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.CurrentUserResponse{User: dto.ToUserDTO(*user)})
}
