// Package auth provides LMS OpenID Connect login, bearer token verification
// and cookie session management.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ScopeUserID asks the LMS to include the numeric user id in the ID token.
const ScopeUserID = "user_id"

// ErrMissingUserID is returned when an ID token carries no LMS user id.
var ErrMissingUserID = errors.New("id token has no user_id claim")

// OIDCConfig holds the LMS OIDC provider configuration.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// DefaultOIDCConfig returns an OIDCConfig requesting the scopes needed to map
// the login to a local user.
func DefaultOIDCConfig(issuer, clientID, clientSecret, redirectURL string) OIDCConfig {
	return OIDCConfig{
		Issuer:       issuer,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", ScopeUserID},
	}
}

// OIDC wraps the LMS provider and OAuth2 configuration.
type OIDC struct {
	issuer       string
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	logger       zerolog.Logger
}

// NewOIDC discovers the provider at cfg.Issuer.
func NewOIDC(ctx context.Context, cfg OIDCConfig, logger zerolog.Logger) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}

	o := &OIDC{
		issuer:   cfg.Issuer,
		provider: provider,
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		logger:   logger.With().Str("component", "oidc").Logger(),
	}

	o.logger.Info().Str("issuer", cfg.Issuer).Msg("OIDC provider initialized")
	return o, nil
}

// GenerateState generates a cryptographically secure random state parameter.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthorizationURL returns the LMS login URL for the given state.
func (o *OIDC) AuthorizationURL(state string) string {
	return o.oauth2Config.AuthCodeURL(state)
}

// Exchange exchanges an authorization code for tokens.
func (o *OIDC) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := o.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// IDTokenClaims holds the LMS claims used to identify a learner.
type IDTokenClaims struct {
	Subject           string `json:"sub"`
	UserID            int64  `json:"user_id"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Administrator     bool   `json:"administrator"`
}

// User converts the claims into the local user record they describe.
func (c *IDTokenClaims) User() (*models.User, error) {
	if c.UserID == 0 {
		return nil, ErrMissingUserID
	}
	username := c.PreferredUsername
	if username == "" {
		username = c.Subject
	}
	u := models.NewUser(c.UserID, username, c.Email)
	u.FirstName = c.GivenName
	u.LastName = c.FamilyName
	if u.FirstName == "" && u.LastName == "" && c.Name != "" {
		first, last, _ := strings.Cut(c.Name, " ")
		u.FirstName, u.LastName = first, last
	}
	u.IsStaff = c.Administrator
	return u, nil
}

// VerifyIDToken verifies the ID token of an exchanged token and extracts claims.
func (o *OIDC) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*IDTokenClaims, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}
	return o.VerifyRawIDToken(ctx, rawIDToken)
}

// VerifyRawIDToken verifies a serialized ID token, such as one presented as
// a bearer token by an LMS client.
func (o *OIDC) VerifyRawIDToken(ctx context.Context, rawIDToken string) (*IDTokenClaims, error) {
	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify ID token: %w", err)
	}

	var claims IDTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}

	o.logger.Debug().
		Str("subject", claims.Subject).
		Int64("user_id", claims.UserID).
		Msg("ID token verified")

	return &claims, nil
}

// HealthCheck fetches the provider discovery document.
func (o *OIDC) HealthCheck(ctx context.Context) error {
	url := strings.TrimSuffix(o.issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create discovery request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discovery document returned status %d", resp.StatusCode)
	}
	return nil
}

// ExtractBearerToken extracts the token from an Authorization header value.
// Returns empty string if the header is not a valid Bearer token.
func ExtractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}
