package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrForbidden           = errors.New("access denied")
	ErrEmailTaken          = errors.New("user with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPasswordNotSet      = errors.New("please use Google Sign-In for this account")
	ErrEmailNotVerified    = errors.New("please verify your email first")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters")
	ErrNameRequired        = errors.New("name is required")
	ErrInvalidRole         = errors.New("invalid role")
	ErrSecretKeyRequired   = errors.New("secret key is required")
	ErrInvalidSecretKey    = errors.New("invalid secret key")
	ErrUserNotFound        = errors.New("user not found")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrInvalidOTP          = errors.New("invalid OTP")
	ErrOTPExpired          = errors.New("OTP has expired")
	ErrInvalidToken        = errors.New("invalid or expired refresh token")
	ErrInvalidGoogleToken  = errors.New("invalid Google token")
	ErrGoogleNotConfigured = errors.New("google sign-in is not configured")
	ErrEmailDelivery       = errors.New("failed to send OTP email")
)

// AuthSettings carries the auth knobs from configuration.
type AuthSettings struct {
	AdminSecretKey   string
	ManagerSecretKey string
	OTPTTL           time.Duration
}

// AuthService handles signup, OTP verification, login and token rotation.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	mailer   Mailer
	google   IdentityVerifier
	settings AuthSettings
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService. google may be nil when Google
// sign-in is not configured.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	mailer Mailer,
	google IdentityVerifier,
	settings AuthSettings,
	log *zap.Logger,
) *AuthService {
	if settings.OTPTTL <= 0 {
		settings.OTPTTL = constants.OTPTTL
	}
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		google:   google,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// AuthResult is a verified user together with a fresh token pair.
type AuthResult struct {
	User   *models.User
	Tokens *auth.TokenPair
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email     string
	Password  string
	Name      string
	Role      models.Role
	SecretKey string
}

// Signup stores an unverified user with a fresh OTP and mails the code.
// A row left by an earlier unfinished signup is overwritten.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) error {
	email := utils.NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrNameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	role := input.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := s.checkRoleSecret(role, input.SecretKey); err != nil {
		return err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil && existing.EmailVerified {
		return ErrEmailTaken
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return err
	}
	code, expiresAt, err := s.newOTP()
	if err != nil {
		return err
	}

	if existing != nil {
		err = s.userRepo.Update(ctx, existing.ID, map[string]any{
			"password_hash":  hash,
			"name":           name,
			"role":           role,
			"email_verified": false,
			"otp":            code,
			"otp_expires_at": expiresAt,
		})
	} else {
		err = s.userRepo.Create(ctx, &models.User{
			Email:         email,
			PasswordHash:  &hash,
			Name:          name,
			Role:          role,
			EmailVerified: false,
			OTP:           &code,
			OTPExpiresAt:  &expiresAt,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to store pending user: %w", err)
	}

	return s.deliverOTP(ctx, email, code)
}

// checkRoleSecret gates admin and manager signup behind configured keys.
// An unset key disables signup for that role.
func (s *AuthService) checkRoleSecret(role models.Role, provided string) error {
	var expected string
	switch role {
	case models.RoleAdmin:
		expected = s.settings.AdminSecretKey
	case models.RoleManager:
		expected = s.settings.ManagerSecretKey
	default:
		return nil
	}
	if provided == "" {
		return fmt.Errorf("%w: %s secret key is required", ErrSecretKeyRequired, role)
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return fmt.Errorf("%w: invalid %s secret key", ErrInvalidSecretKey, role)
	}
	return nil
}

// VerifySignupOTP completes a password signup.
func (s *AuthService) VerifySignupOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	return s.verify(ctx, email, code, true)
}

// VerifyGoogleOTP completes a Google signup under the same rules as
// VerifySignupOTP.
func (s *AuthService) VerifyGoogleOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	return s.verify(ctx, email, code, true)
}

// VerifyOTP checks a code issued by SendOTP. Already verified users may use
// it to sign in.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	return s.verify(ctx, email, code, false)
}

func (s *AuthService) verify(ctx context.Context, email, code string, rejectVerified bool) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if rejectVerified && user.EmailVerified {
		return nil, ErrAlreadyVerified
	}
	if user.OTP == nil || subtle.ConstantTimeCompare([]byte(*user.OTP), []byte(code)) != 1 {
		return nil, ErrInvalidOTP
	}
	if user.OTPExpiresAt == nil || s.now().After(*user.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}

	if err := s.userRepo.ConsumeOTP(ctx, user.ID, code); err != nil {
		if errors.Is(err, repository.ErrOTPNotConsumed) {
			// a newer code replaced this one after it was read
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}
	user.EmailVerified = true
	user.OTP = nil
	user.OTPExpiresAt = nil

	return s.issue(user)
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues tokens for a verified user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, utils.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, ErrPasswordNotSet
	}
	if err := s.hasher.Compare(*user.PasswordHash, input.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return s.issue(user)
}

// GoogleResult is either a signed-in user or a pending OTP challenge.
type GoogleResult struct {
	*AuthResult
	RequiresOTP bool
	Email       string
}

// GoogleSignIn signs a verified user in directly. Anyone else gets an
// unverified row and an OTP, as with password signup.
func (s *AuthService) GoogleSignIn(ctx context.Context, idToken string) (*GoogleResult, error) {
	if s.google == nil {
		return nil, ErrGoogleNotConfigured
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.log.Debug("google token rejected", zap.Error(err))
		return nil, ErrInvalidGoogleToken
	}
	email := utils.NormalizeEmail(identity.Email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if existing != nil && existing.EmailVerified {
		if existing.GoogleID == nil {
			if err := s.userRepo.SetGoogleID(ctx, existing.ID, identity.Subject); err != nil {
				return nil, fmt.Errorf("failed to link google account: %w", err)
			}
			existing.GoogleID = &identity.Subject
		}
		result, err := s.issue(existing)
		if err != nil {
			return nil, err
		}
		return &GoogleResult{AuthResult: result, Email: email}, nil
	}

	code, expiresAt, err := s.newOTP()
	if err != nil {
		return nil, err
	}

	if existing != nil {
		err = s.userRepo.Update(ctx, existing.ID, map[string]any{
			"name":           identity.Name,
			"google_id":      identity.Subject,
			"email_verified": false,
			"otp":            code,
			"otp_expires_at": expiresAt,
		})
	} else {
		subject := identity.Subject
		err = s.userRepo.Create(ctx, &models.User{
			Email:        email,
			Name:         identity.Name,
			Role:         models.RoleEmployee,
			GoogleID:     &subject,
			OTP:          &code,
			OTPExpiresAt: &expiresAt,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store pending user: %w", err)
	}

	if err := s.deliverOTP(ctx, email, code); err != nil {
		return nil, err
	}
	return &GoogleResult{RequiresOTP: true, Email: email}, nil
}

// SendOTP replaces the user's live code with a new one and mails it.
func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	code, expiresAt, err := s.newOTP()
	if err != nil {
		return err
	}

	if err := s.userRepo.SetOTP(ctx, email, code, expiresAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return s.deliverOTP(ctx, email, code)
}

// Refresh rotates a token pair. The subject must still exist and be verified.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.EmailVerified {
		return nil, ErrInvalidToken
	}

	return s.tokens.IssuePair(user.ID)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

func (s *AuthService) newOTP() (string, time.Time, error) {
	code, err := utils.GenerateOTP()
	if err != nil {
		return "", time.Time{}, err
	}
	return code, s.now().Add(s.settings.OTPTTL).UTC(), nil
}

// deliverOTP sends synchronously. The stored code is kept on failure so a
// resend can replace it.
func (s *AuthService) deliverOTP(ctx context.Context, email, code string) error {
	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		s.log.Error("failed to send OTP email", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	return nil
}
