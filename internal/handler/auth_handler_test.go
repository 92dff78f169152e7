package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/ddaytodo/internal/auth"
	"github.com/hitoshi/ddaytodo/internal/middleware"
	"github.com/hitoshi/ddaytodo/internal/model"
)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "http://localhost:3000",
		SessionMaxAge: 86400,
	}
}

func signInResult(userID string) *auth.SignInResult {
	return &auth.SignInResult{
		Session: &model.Session{
			ID:        "session-123",
			UserID:    userID,
			Email:     "kim@example.com",
			Metadata:  model.SessionMetadata{FullName: "Kim", Provider: model.ProviderEmail},
			ExpiresAt: time.Now().Add(24 * time.Hour),
		},
		Token: "signed-token",
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- POST /auth/signup ---

func TestAuthHandler_SignUp_SetsSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, fullName string) (*auth.SignInResult, error) {
			if email != "kim@example.com" || password != "password123" || fullName != "Kim" {
				t.Errorf("unexpected input: %q %q %q", email, password, fullName)
			}
			return signInResult("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := jsonRequest(http.MethodPost, "/auth/signup", `{"email":"kim@example.com","password":"password123","full_name":"Kim"}`)
	w := httptest.NewRecorder()
	h.SignUp(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	cookie := findCookie(resp, middleware.SessionCookieName)
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.Value != "signed-token" || !cookie.HttpOnly {
		t.Errorf("cookie = %+v", cookie)
	}

	var body sessionResponse
	decodeResponse(t, w, &body)
	if body.ID != "user-1" || body.UserMetadata.FullName != "Kim" || body.Provider != model.ProviderEmail {
		t.Errorf("body = %+v", body)
	}
}

func TestAuthHandler_SignUp_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"登録済み", model.NewEmailTakenError(), http.StatusConflict},
		{"弱いパスワード", model.NewWeakPasswordError(auth.MinPasswordLength), http.StatusBadRequest},
		{"不正なメール", model.NewInvalidEmailError(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				signUpFn: func(ctx context.Context, email, password, fullName string) (*auth.SignInResult, error) {
					return nil, tt.err
				},
			}
			h := NewAuthHandler(svc, testAuthConfig())

			w := httptest.NewRecorder()
			h.SignUp(w, jsonRequest(http.MethodPost, "/auth/signup", `{"email":"a","password":"b"}`))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if findCookie(w.Result(), middleware.SessionCookieName) != nil {
				t.Error("session cookie must not be set on failure")
			}
		})
	}
}

// --- POST /auth/login ---

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.SignInResult, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/auth/login", `{"email":"kim@example.com","password":"wrong"}`))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if code := errorCode(t, w); code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q", code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.SignInResult, error) {
			return signInResult("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/auth/login", `{"email":"kim@example.com","password":"password123"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if findCookie(w.Result(), middleware.SessionCookieName) == nil {
		t.Error("session cookie not set")
	}
}

// --- POST /auth/refresh ---

func TestAuthHandler_Refresh_ReadsBearerToken(t *testing.T) {
	var gotToken string
	svc := &mockAuthService{
		refreshFn: func(ctx context.Context, token string) (*auth.SignInResult, error) {
			gotToken = token
			return signInResult("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer old-token")
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotToken != "old-token" {
		t.Errorf("token = %q", gotToken)
	}
}

func TestAuthHandler_Refresh_NoToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	w := httptest.NewRecorder()
	h.Refresh(w, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- POST /auth/logout ---

func TestAuthHandler_Logout_ClearsCookieEvenOnError(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			return errors.New("db down")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "token"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	cookie := findCookie(resp, middleware.SessionCookieName)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Errorf("session cookie should be cleared, got %+v", cookie)
	}
}

// --- GET /auth/me ---

func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{
		currentSessionFn: func(ctx context.Context, token string) (*model.Session, error) {
			if token != "token" {
				return nil, model.NewUnauthorizedError()
			}
			return signInResult("user-1").Session, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "token"})
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body sessionResponse
	decodeResponse(t, w, &body)
	if body.Email != "kim@example.com" {
		t.Errorf("email = %q", body.Email)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "other"})
	w = httptest.NewRecorder()
	h.Me(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- Google OAuth ---

func TestAuthHandler_GoogleLogin_RedirectsWithState(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{googleEnabled: true}, testAuthConfig())

	w := httptest.NewRecorder()
	h.GoogleLogin(w, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	state := findCookie(resp, oauthStateCookie)
	if state == nil || state.Value == "" {
		t.Fatal("state cookie not set")
	}
	if !strings.HasSuffix(resp.Header.Get("Location"), "state="+state.Value) {
		t.Errorf("location = %q", resp.Header.Get("Location"))
	}
}

func TestAuthHandler_GoogleLogin_Disabled(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	w := httptest.NewRecorder()
	h.GoogleLogin(w, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAuthHandler_GoogleCallback_Success(t *testing.T) {
	svc := &mockAuthService{
		googleEnabled: true,
		handleCallbackFn: func(ctx context.Context, code string) (*auth.SignInResult, error) {
			if code != "auth-code" {
				t.Errorf("code = %q", code)
			}
			return signInResult("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=valid", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "valid"})
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "http://localhost:3000" {
		t.Errorf("location = %q", loc)
	}
	if findCookie(resp, middleware.SessionCookieName) == nil {
		t.Error("session cookie not set")
	}
}

func TestAuthHandler_GoogleCallback_StateMismatch(t *testing.T) {
	called := false
	svc := &mockAuthService{
		googleEnabled: true,
		handleCallbackFn: func(ctx context.Context, code string) (*auth.SignInResult, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=x&state=attacker", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "valid"})
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("HandleCallback must not be called on state mismatch")
	}
}

func TestAuthHandler_GoogleCallback_EmailTaken(t *testing.T) {
	svc := &mockAuthService{
		googleEnabled: true,
		handleCallbackFn: func(ctx context.Context, code string) (*auth.SignInResult, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=x&state=s", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "s"})
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}
