package services

import (
	"context"

	"github.com/yukikurage/team-task-api/internal/auth"
)

//go:generate mockgen -destination=../mocks/services_mock.go -package=mocks . Mailer,IdentityVerifier

// Mailer delivers one-time passcodes.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// IdentityVerifier validates a third-party identity token.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*auth.GoogleIdentity, error)
}
