package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

type tokenClaims struct {
	audience string
	userID   int64
	expiry   time.Time
	staff    bool
}

// newMockLMS serves discovery, JWKS and token endpoints of an LMS provider.
// Supported authorization codes:
//   - "valid-code": a learner ID token
//   - "staff-code": an ID token with the administrator claim
//   - "expired-code": an expired ID token
//   - "wrong-aud-code": an ID token for another client
//   - "bad-sig-code": an ID token signed with an unknown key
//   - "no-idtoken-code": no id_token field
func newMockLMS(t *testing.T) (*httptest.Server, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate other RSA key: %v", err)
	}

	var server *httptest.Server
	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                                server.URL,
			"authorization_endpoint":                server.URL + "/authorize",
			"token_endpoint":                        server.URL + "/token",
			"jwks_uri":                              server.URL + "/jwks",
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{"RS256"},
			"response_types_supported":              []string{"code"},
		})
	})

	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]interface{}{{
				"kty": "RSA",
				"kid": "test-key",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		valid := tokenClaims{audience: "test-client-id", userID: 42, expiry: time.Now().Add(time.Hour)}
		resp := map[string]interface{}{
			"access_token": "mock-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		switch r.FormValue("code") {
		case "valid-code":
			resp["id_token"] = signIDToken(t, key, server.URL, valid)
		case "staff-code":
			staff := valid
			staff.staff = true
			resp["id_token"] = signIDToken(t, key, server.URL, staff)
		case "expired-code":
			expired := valid
			expired.expiry = time.Now().Add(-time.Hour)
			resp["id_token"] = signIDToken(t, key, server.URL, expired)
		case "wrong-aud-code":
			other := valid
			other.audience = "wrong-client-id"
			resp["id_token"] = signIDToken(t, key, server.URL, other)
		case "bad-sig-code":
			resp["id_token"] = signIDToken(t, otherKey, server.URL, valid)
		case "no-idtoken-code":
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	server = httptest.NewServer(mux)
	return server, key
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, issuer string, c tokenClaims) string {
	t.Helper()

	header := map[string]interface{}{"alg": "RS256", "typ": "JWT", "kid": "test-key"}
	claims := map[string]interface{}{
		"iss":                issuer,
		"sub":                "anon-9f2c",
		"aud":                c.audience,
		"user_id":            c.userID,
		"preferred_username": "learner42",
		"email":              "learner42@example.com",
		"given_name":         "Ada",
		"family_name":        "Lovelace",
		"administrator":      c.staff,
		"iat":                time.Now().Unix(),
		"exp":                c.expiry.Unix(),
	}

	headerJSON, _ := json.Marshal(header)
	claimsJSON, _ := json.Marshal(claims)
	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(claimsJSON)

	h := crypto.SHA256.New()
	h.Write([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, h.Sum(nil))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func newTestOIDC(t *testing.T, serverURL string) *OIDC {
	t.Helper()

	o, err := NewOIDC(context.Background(),
		DefaultOIDCConfig(serverURL, "test-client-id", "test-client-secret", "http://localhost/auth/callback"),
		zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create OIDC provider: %v", err)
	}
	return o
}

func TestDefaultOIDCConfig(t *testing.T) {
	cfg := DefaultOIDCConfig("https://lms.example.com/oauth2", "client-id", "secret", "https://credentials.example.com/auth/callback")

	if cfg.Issuer != "https://lms.example.com/oauth2" {
		t.Errorf("expected issuer https://lms.example.com/oauth2, got %s", cfg.Issuer)
	}
	want := []string{"openid", "profile", "email", "user_id"}
	if len(cfg.Scopes) != len(want) {
		t.Fatalf("expected scopes %v, got %v", want, cfg.Scopes)
	}
	for i, s := range want {
		if cfg.Scopes[i] != s {
			t.Errorf("expected scope %s at %d, got %s", s, i, cfg.Scopes[i])
		}
	}
}

func TestGenerateState(t *testing.T) {
	state1, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(state1, "+") || strings.Contains(state1, "/") {
		t.Error("state should use URL-safe base64 encoding")
	}
	if len(state1) < 40 {
		t.Errorf("state seems too short: %d chars", len(state1))
	}

	state2, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state1 == state2 {
		t.Error("expected different states from multiple calls")
	}
}

func TestNewOIDC_InvalidIssuer(t *testing.T) {
	cfg := DefaultOIDCConfig("http://127.0.0.1:1", "test-client-id", "secret", "http://localhost/callback")
	if _, err := NewOIDC(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for invalid issuer")
	}
}

func TestOIDC_AuthorizationURL(t *testing.T) {
	server, _ := newMockLMS(t)
	defer server.Close()

	url := newTestOIDC(t, server.URL).AuthorizationURL("state-abc")

	for _, part := range []string{server.URL + "/authorize", "state=state-abc", "client_id=test-client-id", "response_type=code", "user_id"} {
		if !strings.Contains(url, part) {
			t.Errorf("expected URL to contain %q, got %s", part, url)
		}
	}
}

func TestOIDC_VerifyIDToken(t *testing.T) {
	server, _ := newMockLMS(t)
	defer server.Close()

	o := newTestOIDC(t, server.URL)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		token, err := o.Exchange(ctx, "valid-code")
		if err != nil {
			t.Fatalf("failed to exchange: %v", err)
		}
		claims, err := o.VerifyIDToken(ctx, token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.UserID != 42 {
			t.Errorf("expected user id 42, got %d", claims.UserID)
		}
		if claims.PreferredUsername != "learner42" {
			t.Errorf("expected username learner42, got %q", claims.PreferredUsername)
		}
		if claims.Administrator {
			t.Error("expected learner token without administrator claim")
		}
	})

	t.Run("staff token", func(t *testing.T) {
		token, err := o.Exchange(ctx, "staff-code")
		if err != nil {
			t.Fatalf("failed to exchange: %v", err)
		}
		claims, err := o.VerifyIDToken(ctx, token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !claims.Administrator {
			t.Error("expected administrator claim")
		}
	})

	t.Run("invalid code", func(t *testing.T) {
		if _, err := o.Exchange(ctx, "invalid-code"); err == nil {
			t.Error("expected error for invalid code")
		}
	})

	t.Run("no id_token in response", func(t *testing.T) {
		_, err := o.VerifyIDToken(ctx, &oauth2.Token{AccessToken: "mock-access-token"})
		if err == nil || !strings.Contains(err.Error(), "no id_token") {
			t.Errorf("expected 'no id_token' error, got: %v", err)
		}
	})

	for _, code := range []string{"expired-code", "wrong-aud-code", "bad-sig-code"} {
		t.Run(code, func(t *testing.T) {
			token, err := o.Exchange(ctx, code)
			if err != nil {
				t.Fatalf("failed to exchange: %v", err)
			}
			_, err = o.VerifyIDToken(ctx, token)
			if err == nil || !strings.Contains(err.Error(), "verify ID token") {
				t.Errorf("expected verification error, got: %v", err)
			}
		})
	}
}

func TestOIDC_VerifyRawIDToken(t *testing.T) {
	server, key := newMockLMS(t)
	defer server.Close()

	o := newTestOIDC(t, server.URL)
	raw := signIDToken(t, key, server.URL, tokenClaims{audience: "test-client-id", userID: 7, expiry: time.Now().Add(time.Hour)})

	claims, err := o.VerifyRawIDToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("expected user id 7, got %d", claims.UserID)
	}

	if _, err := o.VerifyRawIDToken(context.Background(), "not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestOIDC_HealthCheck(t *testing.T) {
	server, _ := newMockLMS(t)
	defer server.Close()

	if err := newTestOIDC(t, server.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error from health check: %v", err)
	}
}

func TestIDTokenClaims_User(t *testing.T) {
	t.Run("given and family name", func(t *testing.T) {
		c := &IDTokenClaims{UserID: 5, PreferredUsername: "alice", Email: "alice@example.com",
			GivenName: "Alice", FamilyName: "Smith", Administrator: true}
		u, err := c.User()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.ID != 5 || u.Username != "alice" || u.FullName() != "Alice Smith" {
			t.Errorf("unexpected user %+v", u)
		}
		if !u.IsStaff {
			t.Error("expected staff user")
		}
		if u.HasUsablePassword() {
			t.Error("expected unusable password for OIDC users")
		}
	})

	t.Run("name fallback", func(t *testing.T) {
		u, err := (&IDTokenClaims{UserID: 6, Subject: "sub-6", Name: "Grace Brewster Hopper"}).User()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Username != "sub-6" {
			t.Errorf("expected subject as username, got %s", u.Username)
		}
		if u.FirstName != "Grace" || u.LastName != "Brewster Hopper" {
			t.Errorf("expected split name, got %q %q", u.FirstName, u.LastName)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		if _, err := (&IDTokenClaims{Subject: "sub"}).User(); !errors.Is(err, ErrMissingUserID) {
			t.Errorf("expected ErrMissingUserID, got %v", err)
		}
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer  token ", "token"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractBearerToken(tt.header); got != tt.want {
			t.Errorf("ExtractBearerToken(%q) = %q, expected %q", tt.header, got, tt.want)
		}
	}
}
