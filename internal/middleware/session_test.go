package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/ddaytodo/internal/model"
)

// --- モック定義 ---

type mockSessionResolver struct {
	currentSessionFn func(ctx context.Context, token string) (*model.Session, error)
}

func (m *mockSessionResolver) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	return m.currentSessionFn(ctx, token)
}

func resolverFor(token string, session *model.Session) *mockSessionResolver {
	return &mockSessionResolver{
		currentSessionFn: func(ctx context.Context, got string) (*model.Session, error) {
			if got == token {
				return session, nil
			}
			return nil, model.NewUnauthorizedError()
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_Cookie_InjectsSession(t *testing.T) {
	session := &model.Session{ID: "s-1", UserID: "user-123", Email: "kim@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	mw := NewSessionMiddleware(resolverFor("valid-token", session))

	var got *model.Session
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got == nil || got.UserID != "user-123" || got.Email != "kim@example.com" {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionMiddleware_BearerHeader(t *testing.T) {
	mw := NewSessionMiddleware(resolverFor("header-token", &model.Session{UserID: "user-1"}))

	var userID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if userID != "user-1" {
		t.Errorf("userID = %q, want user-1", userID)
	}
}

func TestSessionMiddleware_Unauthorized(t *testing.T) {
	tests := []struct {
		name     string
		cookie   string
		resolver *mockSessionResolver
	}{
		{"トークンなし", "", resolverFor("x", &model.Session{UserID: "u"})},
		{"無効なトークン", "bad", resolverFor("x", &model.Session{UserID: "u"})},
		{"バックエンド障害", "x", &mockSessionResolver{
			currentSessionFn: func(ctx context.Context, token string) (*model.Session, error) {
				return nil, errors.New("db down")
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewSessionMiddleware(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if called {
				t.Error("後続のハンドラーが呼ばれないこと")
			}
		})
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error")
	}
	if id, err := UserIDFromContext(ContextWithUserID(context.Background(), "u-1")); err != nil || id != "u-1" {
		t.Errorf("id = %q, err = %v", id, err)
	}
}

func TestSetAndClearSessionCookie(t *testing.T) {
	cfg := CookieConfig{Secure: true, Domain: "example.com", MaxAge: 3600}

	w := httptest.NewRecorder()
	SetSessionCookie(w, cfg, "token", time.Now().Add(time.Hour))
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || c.Value != "token" || !c.HttpOnly || !c.Secure || c.MaxAge != 3600 {
		t.Errorf("cookie = %+v", c)
	}

	w = httptest.NewRecorder()
	ClearSessionCookie(w, cfg)
	if c := w.Result().Cookies()[0]; c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("cleared cookie = %+v", c)
	}
}
