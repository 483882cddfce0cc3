package dto

import (
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/models"
)

// AuthResponse is returned by every endpoint that signs a user in
type AuthResponse struct {
	Token        string  `json:"token"`
	RefreshToken string  `json:"refreshToken"`
	User         UserDTO `json:"user"`
	Message      string  `json:"message,omitempty"`
}

// TokenResponse is returned by the refresh endpoint
type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// OTPChallengeResponse tells a Google sign-in client to continue with OTP
// verification
type OTPChallengeResponse struct {
	Message     string `json:"message"`
	RequiresOTP bool   `json:"requiresOTP"`
	Email       string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CurrentUserResponse struct {
	User UserDTO `json:"user"`
}

func ToAuthResponse(user models.User, tokens *auth.TokenPair, message string) AuthResponse {
	return AuthResponse{
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         ToUserDTO(user),
		Message:      message,
	}
}

func ToTokenResponse(tokens *auth.TokenPair) TokenResponse {
	return TokenResponse{Token: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
}
