package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/studyloop/studyloop-backend/pkg/auth"
	"github.com/studyloop/studyloop-backend/pkg/auth/session"
	"github.com/studyloop/studyloop-backend/pkg/config"
	"github.com/studyloop/studyloop-backend/pkg/enums"
	"github.com/studyloop/studyloop-backend/pkg/logger"
)

type stubRotator struct {
	oldAccessID string
	provided    string
	newAccessID string
	newToken    string
	err         error
}

func (s *stubRotator) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	s.oldAccessID = oldAccessID
	s.provided = provided
	if s.err != nil {
		return "", "", s.err
	}
	return s.newAccessID, s.newToken, nil
}

type stubRevoker struct {
	revoked []string
	err     error
}

func (s *stubRevoker) Revoke(ctx context.Context, accessID string) error {
	if s.err != nil {
		return s.err
	}
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "studyloop-test",
		ExpirationMinutes: 15,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, issuedAt time.Time, jti string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, issuedAt, pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleStudent,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRefreshRotatesExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	rotator := &stubRotator{newAccessID: "next-session", newToken: "next-refresh"}
	handler := Refresh(cfg, rotator, testLogger())

	// Issued an hour ago with a 15 minute lifetime, so already expired.
	token := mintToken(t, cfg, time.Now().Add(-time.Hour), "old-session")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"current"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if rotator.oldAccessID != "old-session" || rotator.provided != "current" {
		t.Fatalf("rotator got %q/%q", rotator.oldAccessID, rotator.provided)
	}

	var envelope struct {
		Data refreshResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RefreshToken != "next-refresh" {
		t.Fatalf("unexpected refresh token %q", envelope.Data.RefreshToken)
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, envelope.Data.AccessToken)
	if err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if claims.ID != "next-session" {
		t.Fatalf("expected rotated jti, got %q", claims.ID)
	}
}

func TestRefreshRejectsBadRefreshToken(t *testing.T) {
	cfg := testJWTConfig()
	rotator := &stubRotator{err: session.ErrInvalidRefreshToken}
	handler := Refresh(cfg, rotator, testLogger())

	token := mintToken(t, cfg, time.Now(), "s1")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"stolen"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRefreshRequiresCredentials(t *testing.T) {
	cfg := testJWTConfig()
	handler := Refresh(cfg, &stubRotator{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRefreshValidatesBody(t *testing.T) {
	cfg := testJWTConfig()
	handler := Refresh(cfg, &stubRotator{}, testLogger())

	token := mintToken(t, cfg, time.Now(), "s1")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	cfg := testJWTConfig()
	revoker := &stubRevoker{}
	handler := Logout(cfg, revoker, testLogger())

	token := mintToken(t, cfg, time.Now(), "bye-session")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(revoker.revoked) != 1 || revoker.revoked[0] != "bye-session" {
		t.Fatalf("expected session revoked, got %v", revoker.revoked)
	}
}
