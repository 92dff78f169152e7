package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/middleware"
	"github.com/hitoshi/ddaytodo/internal/model"
	"github.com/hitoshi/ddaytodo/internal/todo"
)

// TodoServiceInterface はTodoハンドラーが必要とするサービスインターフェース。
// 更新系はすべて影響を受けた日付の一覧を返す。
type TodoServiceInterface interface {
	FetchForDate(ctx context.Context, userID string, day calendar.Day) ([]model.Todo, error)
	Save(ctx context.Context, userID string, in todo.SaveInput) (*todo.SaveResult, error)
	ToggleComplete(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error)
	TogglePriority(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error)
	Delete(ctx context.Context, userID, todoID string) ([]model.Todo, error)
	SetColor(ctx context.Context, userID, todoID, color string) ([]model.Todo, error)
	ChangeDate(ctx context.Context, userID, todoID string, day calendar.Day) ([]model.Todo, error)
	SetDday(ctx context.Context, userID, todoID string, day calendar.Day) (*model.Todo, error)
	ClearDday(ctx context.Context, userID, todoID string) ([]model.Todo, error)
	ArchiveIncomplete(ctx context.Context, userID string, viewDay calendar.Day) (*todo.ArchiveResult, error)
	ListArchived(ctx context.Context, userID string) ([]model.ArchivedTodo, error)
	DeleteArchived(ctx context.Context, userID, archiveID string) ([]model.ArchivedTodo, error)
	ListDdays(ctx context.Context, userID string, today calendar.Day) ([]todo.DdayEntry, error)
	MonthSummary(ctx context.Context, userID, month string) ([]model.DaySummary, error)
}

// TodoHandler はTodo・アーカイブ・D-Day・カレンダーのHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
	today   func() calendar.Day
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{
		service: service,
		today:   calendar.Today,
	}
}

type saveTodosRequest struct {
	Contents  []string `json:"contents"`
	DdayFlags []bool   `json:"dday_flags"`
	Colors    []string `json:"colors"`
	Date      string   `json:"date"`
}

type saveTodosResponse struct {
	NewestID *string        `json:"newest_id"`
	Todos    []todoResponse `json:"todos"`
}

type toggleRequest struct {
	Current bool `json:"current"`
}

type colorRequest struct {
	Color string `json:"color"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type archiveResponse struct {
	Todos    []todoResponse         `json:"todos"`
	Archived []archivedTodoResponse `json:"archived"`
}

// parseDay は日付文字列を解釈する。空の場合は今日を返す。
func (h *TodoHandler) parseDay(w http.ResponseWriter, raw string) (calendar.Day, bool) {
	if raw == "" {
		return h.today(), true
	}
	day, err := calendar.ParseDay(raw)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(raw))
		return "", false
	}
	return day, true
}

// List は指定日のTodo一覧を返す。
// GET /api/todos?date=YYYY-MM-DD[&grouped=true]
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	day, ok := h.parseDay(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	todos, err := h.service.FetchForDate(r.Context(), userID, day)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("grouped") == "true" {
		g := todo.Group(todos)
		middleware.WriteJSON(w, http.StatusOK, groupedTodoResponse{
			Date:     day.String(),
			Priority: toTodoResponses(g.Priority),
			Others:   toTodoResponses(g.Others),
			Complete: toTodoResponses(g.Complete),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, todoListResponse{
		Date:  day.String(),
		Todos: toTodoResponses(todos),
	})
}

// Save は複数のTodoを一括登録する。
// POST /api/todos
func (h *TodoHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req saveTodosRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	day, ok := h.parseDay(w, req.Date)
	if !ok {
		return
	}

	result, err := h.service.Save(r.Context(), userID, todo.SaveInput{
		Contents:  req.Contents,
		DdayFlags: req.DdayFlags,
		Colors:    req.Colors,
		Date:      day,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := saveTodosResponse{Todos: toTodoResponses(result.Todos)}
	if result.NewestID != "" {
		resp.NewestID = &result.NewestID
	}
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

// writeList は更新後に再取得した一覧を書き込む。
func (h *TodoHandler) writeList(w http.ResponseWriter, r *http.Request, todos []model.Todo, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, todoListResponse{Todos: toTodoResponses(todos)})
}

// ToggleComplete は完了状態を反転する。
// PUT /api/todos/{id}/complete
func (h *TodoHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewTodoNotFoundError)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	todos, err := h.service.ToggleComplete(r.Context(), userID, id, req.Current)
	h.writeList(w, r, todos, err)
}

// TogglePriority は優先フラグを反転する。
// PUT /api/todos/{id}/priority
func (h *TodoHandler) TogglePriority(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewTodoNotFoundError)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	todos, err := h.service.TogglePriority(r.Context(), userID, id, req.Current)
	h.writeList(w, r, todos, err)
}

// SetColor は色を設定する。空文字は色の解除。
// PUT /api/todos/{id}/color
func (h *TodoHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewTodoNotFoundError)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var req colorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	todos, err := h.service.SetColor(r.Context(), userID, id, req.Color)
	h.writeList(w, r, todos, err)
}

// ChangeDate はTodoを別の日付へ移動し、移動先の一覧を返す。
// PUT /api/todos/{id}/date
func (h *TodoHandler) ChangeDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewTodoNotFoundError)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var req dateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Date == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(req.Date))
		return
	}
	day, ok := h.parseDay(w, req.Date)
	if !ok {
		return
	}
	todos, err := h.service.ChangeDate(r.Context(), userID, id, day)
	h.writeList(w, r, todos, err)
}

// SetDday はD-Dayを設定する。レスポンスは {"success": bool, "data"|"error"} 形式。
// PUT /api/todos/{id}/dday
func (h *TodoHandler) SetDday(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewTodoNotFoundError)
	if err != nil {
		writeEnvelopeError(w, r, err)
		return
	}
	var req dateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeEnvelopeError(w, r, model.NewInvalidRequestError())
		return
	}
	day, err := calendar.ParseDay(req.Date)
	if err != nil {
		writeEnvelopeError(w, r, model.NewInvalidDateError(req.Date))
		return
	}

	updated, err := h.service.SetDday(r.Context(), userID, id, day)
	if err != nil {
		writeEnvelopeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, envelope{Success: true, Data: toTodoResponse(*updated)})
}

// ClearDday はD-Dayを解除する。
// DELETE /api/todos/{id}/dday
func (h *TodoHandler) ClearDday(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewTodoNotFoundError)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	todos, err := h.service.ClearDday(r.Context(), userID, id)
	h.writeList(w, r, todos, err)
}

// Delete はTodoを削除する。
// DELETE /api/todos/{id}
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewTodoNotFoundError)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	todos, err := h.service.Delete(r.Context(), userID, id)
	h.writeList(w, r, todos, err)
}

// Archive は未完了のTodoをすべてアーカイブする。
// POST /api/todos/archive
func (h *TodoHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req dateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	day, ok := h.parseDay(w, req.Date)
	if !ok {
		return
	}

	result, err := h.service.ArchiveIncomplete(r.Context(), userID, day)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, archiveResponse{
		Todos:    toTodoResponses(result.Active),
		Archived: toArchivedResponses(result.Archived),
	})
}

// ListArchived はアーカイブ一覧を返す。
// GET /api/archived-todos
func (h *TodoHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListArchived(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toArchivedResponses(list))
}

// DeleteArchived はアーカイブを完全に削除し、残りの一覧を返す。
// DELETE /api/archived-todos/{id}
func (h *TodoHandler) DeleteArchived(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, model.NewArchivedTodoNotFoundError)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	list, err := h.service.DeleteArchived(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toArchivedResponses(list))
}

// ListDdays は今日を基準にしたD-Day一覧を返す。
// GET /api/ddays
func (h *TodoHandler) ListDdays(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListDdays(r.Context(), userID, h.today())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDdayResponses(entries))
}

// Calendar は月内の日別集計を返す。monthを省略すると今月。
// GET /api/calendar?month=YYYY-MM
func (h *TodoHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.today().String()[:7]
	}
	days, err := h.service.MonthSummary(r.Context(), userID, month)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDaySummaryResponses(days))
}
