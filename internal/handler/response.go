package handler

import (
	"time"

	"github.com/hitoshi/ddaytodo/internal/model"
	"github.com/hitoshi/ddaytodo/internal/todo"
)

// todoResponse はTodoのAPIレスポンス。
type todoResponse struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	IsComplete    bool      `json:"is_complete"`
	IsPriority    bool      `json:"is_priority"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	OriginalOrder int       `json:"original_order"`
	Date          string    `json:"date"`
	IsDday        bool      `json:"is_dday"`
	DdayDate      *string   `json:"dday_date"`
	Color         *string   `json:"color"`
}

// archivedTodoResponse はアーカイブ済みTodoのAPIレスポンス。
type archivedTodoResponse struct {
	todoResponse
	ArchiveID  string    `json:"archive_id"`
	ArchivedAt time.Time `json:"archived_at"`
}

// ddayResponse はD-Day一覧の1件。
type ddayResponse struct {
	todoResponse
	DaysLeft  int    `json:"days_left"`
	Countdown string `json:"countdown"`
}

// daySummaryResponse はカレンダーの日別集計。
type daySummaryResponse struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// todoListResponse は更新系操作の後に返す再取得済みの一覧。
type todoListResponse struct {
	Date  string         `json:"date,omitempty"`
	Todos []todoResponse `json:"todos"`
}

// groupedTodoResponse はgrouped=trueで返す表示グループ。
type groupedTodoResponse struct {
	Date     string         `json:"date"`
	Priority []todoResponse `json:"priority"`
	Others   []todoResponse `json:"others"`
	Complete []todoResponse `json:"complete"`
}

// envelope はD-Day設定の構造化レスポンス。
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

func toTodoResponse(t model.Todo) todoResponse {
	resp := todoResponse{
		ID:            t.ID,
		Content:       t.Content,
		IsComplete:    t.IsComplete,
		IsPriority:    t.IsPriority,
		State:         string(t.State()),
		CreatedAt:     t.CreatedAt,
		OriginalOrder: t.OriginalOrder,
		Date:          t.Date.String(),
		IsDday:        t.IsDday,
		Color:         t.Color,
	}
	if t.DdayDate != nil {
		d := t.DdayDate.String()
		resp.DdayDate = &d
	}
	return resp
}

func toTodoResponses(todos []model.Todo) []todoResponse {
	out := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, toTodoResponse(t))
	}
	return out
}

func toArchivedResponses(list []model.ArchivedTodo) []archivedTodoResponse {
	out := make([]archivedTodoResponse, 0, len(list))
	for _, a := range list {
		out = append(out, archivedTodoResponse{
			todoResponse: toTodoResponse(a.Todo),
			ArchiveID:    a.ArchiveID,
			ArchivedAt:   a.ArchivedAt,
		})
	}
	return out
}

func toDdayResponses(entries []todo.DdayEntry) []ddayResponse {
	out := make([]ddayResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ddayResponse{
			todoResponse: toTodoResponse(e.Todo),
			DaysLeft:     e.DaysLeft,
			Countdown:    e.Countdown,
		})
	}
	return out
}

func toDaySummaryResponses(list []model.DaySummary) []daySummaryResponse {
	out := make([]daySummaryResponse, 0, len(list))
	for _, s := range list {
		out = append(out, daySummaryResponse{
			Date:      s.Date.String(),
			Total:     s.Total,
			Completed: s.Completed,
		})
	}
	return out
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Provider  string `json:"provider"`
	Editable  bool   `json:"editable"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		Provider:  p.Provider,
		Editable:  p.IsEditable(),
	}
}

// sessionResponse は現在のセッションのAPIレスポンス。
type sessionResponse struct {
	ID           string                `json:"id"`
	Email        string                `json:"email"`
	UserMetadata model.SessionMetadata `json:"user_metadata"`
	Provider     string                `json:"provider"`
	ExpiresAt    time.Time             `json:"expires_at"`
}

func toSessionResponse(s *model.Session) sessionResponse {
	provider := s.Metadata.Provider
	if provider == "" {
		provider = model.ProviderEmail
	}
	return sessionResponse{
		ID:           s.UserID,
		Email:        s.Email,
		UserMetadata: s.Metadata,
		Provider:     provider,
		ExpiresAt:    s.ExpiresAt,
	}
}
