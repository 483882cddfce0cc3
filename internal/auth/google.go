package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var ErrInvalidGoogleToken = errors.New("invalid google identity token")

// GoogleIdentity is the subset of ID token claims used for sign-in.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier checks Google ID tokens against the configured client id.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier uses Google's published key set directly so startup
// does not depend on the discovery document being reachable.
func NewGoogleVerifier(ctx context.Context, clientID string) *GoogleVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	return &GoogleVerifier{
		verifier: oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{ClientID: clientID}),
	}
}

func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email claim", ErrInvalidGoogleToken)
	}

	name := claims.Name
	if name == "" {
		name = strings.Split(claims.Email, "@")[0]
	}

	return &GoogleIdentity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          name,
	}, nil
}
