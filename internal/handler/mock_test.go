package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ddaytodo/internal/auth"
	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/middleware"
	"github.com/hitoshi/ddaytodo/internal/model"
	"github.com/hitoshi/ddaytodo/internal/todo"
)

// --- モック定義 ---

// mockTodoService はTodoServiceInterfaceのモック実装。
type mockTodoService struct {
	fetchForDateFn      func(ctx context.Context, userID string, day calendar.Day) ([]model.Todo, error)
	saveFn              func(ctx context.Context, userID string, in todo.SaveInput) (*todo.SaveResult, error)
	toggleCompleteFn    func(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error)
	togglePriorityFn    func(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error)
	deleteFn            func(ctx context.Context, userID, todoID string) ([]model.Todo, error)
	setColorFn          func(ctx context.Context, userID, todoID, color string) ([]model.Todo, error)
	changeDateFn        func(ctx context.Context, userID, todoID string, day calendar.Day) ([]model.Todo, error)
	setDdayFn           func(ctx context.Context, userID, todoID string, day calendar.Day) (*model.Todo, error)
	clearDdayFn         func(ctx context.Context, userID, todoID string) ([]model.Todo, error)
	archiveIncompleteFn func(ctx context.Context, userID string, viewDay calendar.Day) (*todo.ArchiveResult, error)
	listArchivedFn      func(ctx context.Context, userID string) ([]model.ArchivedTodo, error)
	deleteArchivedFn    func(ctx context.Context, userID, archiveID string) ([]model.ArchivedTodo, error)
	listDdaysFn         func(ctx context.Context, userID string, today calendar.Day) ([]todo.DdayEntry, error)
	monthSummaryFn      func(ctx context.Context, userID, month string) ([]model.DaySummary, error)
}

func (m *mockTodoService) FetchForDate(ctx context.Context, userID string, day calendar.Day) ([]model.Todo, error) {
	if m.fetchForDateFn != nil {
		return m.fetchForDateFn(ctx, userID, day)
	}
	return []model.Todo{}, nil
}

func (m *mockTodoService) Save(ctx context.Context, userID string, in todo.SaveInput) (*todo.SaveResult, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, userID, in)
	}
	return &todo.SaveResult{}, nil
}

func (m *mockTodoService) ToggleComplete(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error) {
	if m.toggleCompleteFn != nil {
		return m.toggleCompleteFn(ctx, userID, todoID, current)
	}
	return []model.Todo{}, nil
}

func (m *mockTodoService) TogglePriority(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error) {
	if m.togglePriorityFn != nil {
		return m.togglePriorityFn(ctx, userID, todoID, current)
	}
	return []model.Todo{}, nil
}

func (m *mockTodoService) Delete(ctx context.Context, userID, todoID string) ([]model.Todo, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, todoID)
	}
	return []model.Todo{}, nil
}

func (m *mockTodoService) SetColor(ctx context.Context, userID, todoID, color string) ([]model.Todo, error) {
	if m.setColorFn != nil {
		return m.setColorFn(ctx, userID, todoID, color)
	}
	return []model.Todo{}, nil
}

func (m *mockTodoService) ChangeDate(ctx context.Context, userID, todoID string, day calendar.Day) ([]model.Todo, error) {
	if m.changeDateFn != nil {
		return m.changeDateFn(ctx, userID, todoID, day)
	}
	return []model.Todo{}, nil
}

func (m *mockTodoService) SetDday(ctx context.Context, userID, todoID string, day calendar.Day) (*model.Todo, error) {
	if m.setDdayFn != nil {
		return m.setDdayFn(ctx, userID, todoID, day)
	}
	return &model.Todo{ID: todoID}, nil
}

func (m *mockTodoService) ClearDday(ctx context.Context, userID, todoID string) ([]model.Todo, error) {
	if m.clearDdayFn != nil {
		return m.clearDdayFn(ctx, userID, todoID)
	}
	return []model.Todo{}, nil
}

func (m *mockTodoService) ArchiveIncomplete(ctx context.Context, userID string, viewDay calendar.Day) (*todo.ArchiveResult, error) {
	if m.archiveIncompleteFn != nil {
		return m.archiveIncompleteFn(ctx, userID, viewDay)
	}
	return &todo.ArchiveResult{}, nil
}

func (m *mockTodoService) ListArchived(ctx context.Context, userID string) ([]model.ArchivedTodo, error) {
	if m.listArchivedFn != nil {
		return m.listArchivedFn(ctx, userID)
	}
	return []model.ArchivedTodo{}, nil
}

func (m *mockTodoService) DeleteArchived(ctx context.Context, userID, archiveID string) ([]model.ArchivedTodo, error) {
	if m.deleteArchivedFn != nil {
		return m.deleteArchivedFn(ctx, userID, archiveID)
	}
	return []model.ArchivedTodo{}, nil
}

func (m *mockTodoService) ListDdays(ctx context.Context, userID string, today calendar.Day) ([]todo.DdayEntry, error) {
	if m.listDdaysFn != nil {
		return m.listDdaysFn(ctx, userID, today)
	}
	return []todo.DdayEntry{}, nil
}

func (m *mockTodoService) MonthSummary(ctx context.Context, userID, month string) ([]model.DaySummary, error) {
	if m.monthSummaryFn != nil {
		return m.monthSummaryFn(ctx, userID, month)
	}
	return []model.DaySummary{}, nil
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	googleEnabled    bool
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*auth.SignInResult, error)
	signUpFn         func(ctx context.Context, email, password, fullName string) (*auth.SignInResult, error)
	loginFn          func(ctx context.Context, email, password string) (*auth.SignInResult, error)
	refreshFn        func(ctx context.Context, token string) (*auth.SignInResult, error)
	logoutFn         func(ctx context.Context, token string) error
	currentSessionFn func(ctx context.Context, token string) (*model.Session, error)
}

func (m *mockAuthService) GoogleEnabled() bool {
	return m.googleEnabled
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*auth.SignInResult, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password, fullName string) (*auth.SignInResult, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password, fullName)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.SignInResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, token string) (*auth.SignInResult, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	if m.currentSessionFn != nil {
		return m.currentSessionFn(ctx, token)
	}
	return nil, model.NewUnauthorizedError()
}

// mockProfileService はProfileServiceInterfaceのモック実装。
type mockProfileService struct {
	fetchOrCreateFn func(ctx context.Context, userID, email string, md model.SessionMetadata) (*model.Profile, error)
	updateFn        func(ctx context.Context, userID, newName string) (*model.Profile, error)
}

func (m *mockProfileService) FetchOrCreate(ctx context.Context, userID, email string, md model.SessionMetadata) (*model.Profile, error) {
	if m.fetchOrCreateFn != nil {
		return m.fetchOrCreateFn(ctx, userID, email, md)
	}
	return &model.Profile{ID: userID, Email: email, Provider: model.ProviderEmail}, nil
}

func (m *mockProfileService) Update(ctx context.Context, userID, newName string) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, newName)
	}
	return &model.Profile{ID: userID, Name: newName, Provider: model.ProviderEmail}, nil
}

// --- ヘルパー ---

// withUserID はテスト用にコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

const (
	testTodoID    = "6f1c2b1e-3d4a-4b5c-9d8e-7f6a5b4c3d2e"
	testArchiveID = "a2b3c4d5-e6f7-4a8b-9c0d-1e2f3a4b5c6d"
	missingTodoID = "00000000-0000-4000-8000-000000000000"
)

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v (body=%s)", err, w.Body.String())
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	decodeResponse(t, w, &body)
	return body.Code
}

func fixedToday(day calendar.Day) func() calendar.Day {
	return func() calendar.Day { return day }
}
