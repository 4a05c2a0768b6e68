package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

type ExternalTokenClaims struct {
	Issuer  string
	Subject string
	Email   string
}

// IDTokenVerifier checks a provider ID token against the expected audience.
type IDTokenVerifier func(ctx context.Context, token, audience string) (*ExternalTokenClaims, error)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

func VerifyGoogleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if err := checkIDTokenInput(tokenString, expectedAud); err != nil {
		return nil, err
	}

	payload, err := idtoken.Validate(ctx, tokenString, expectedAud)
	if err != nil {
		return nil, err
	}
	if !googleIssuers[payload.Issuer] {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	return &ExternalTokenClaims{
		Issuer:  payload.Issuer,
		Subject: payload.Subject,
		Email:   normalizeEmail(email),
	}, nil
}

func VerifyAppleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if err := checkIDTokenInput(tokenString, expectedAud); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idToken, err := validator.NewClient().VerifyIdToken(expectedAud, tokenString)
	if err != nil {
		return nil, err
	}
	if idToken.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", idToken.Iss)
	}

	return &ExternalTokenClaims{
		Issuer:  idToken.Iss,
		Subject: idToken.Sub,
		Email:   normalizeEmail(idToken.Email),
	}, nil
}

func checkIDTokenInput(tokenString, expectedAud string) error {
	if strings.TrimSpace(tokenString) == "" {
		return errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return errors.New("missing audience")
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
