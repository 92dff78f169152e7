package model

import (
	"time"

	"github.com/hitoshi/ddaytodo/internal/calendar"
)

// CompletionState はTodoの完了状態を表す。
type CompletionState string

const (
	StateInProgress CompletionState = "in_progress"
	StateComplete   CompletionState = "complete"
)

// Todo はユーザーのタスク1件を表す。
// DateはAsia/Seoul基準のカレンダー日付で、IsDdayがfalseの場合DdayDateは常にnil。
type Todo struct {
	ID            string        `db:"id"`
	UserID        string        `db:"user_id"`
	Content       string        `db:"content"`
	IsComplete    bool          `db:"is_complete"`
	IsPriority    bool          `db:"is_priority"`
	CreatedAt     time.Time     `db:"created_at"`
	OriginalOrder int           `db:"original_order"`
	Date          calendar.Day  `db:"date"`
	IsDday        bool          `db:"is_dday"`
	DdayDate      *calendar.Day `db:"dday_date"`
	Color         *string       `db:"color"`
}

// State は完了フラグを状態として返す。
func (t *Todo) State() CompletionState {
	if t.IsComplete {
		return StateComplete
	}
	return StateInProgress
}

// ArchivedTodo はアーカイブ時点のTodoの複製。
// ArchiveIDはアーカイブごとに新規採番される。
type ArchivedTodo struct {
	Todo
	ArchiveID  string    `db:"archive_id"`
	ArchivedAt time.Time `db:"archived_at"`
}

// DaySummary はカレンダー表示用の日別集計。
type DaySummary struct {
	Date      calendar.Day `db:"date"`
	Total     int          `db:"total"`
	Completed int          `db:"completed"`
}
