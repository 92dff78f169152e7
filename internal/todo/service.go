// Package todo はTodo・D-Day・アーカイブのドメインロジックを提供する。
// 更新系の操作はすべて、影響を受けた日付のTodo一覧を再取得して返す。
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/metrics"
	"github.com/hitoshi/ddaytodo/internal/model"
	"github.com/hitoshi/ddaytodo/internal/repository"
	"github.com/hitoshi/ddaytodo/internal/security"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// SaveInput は一括登録の入力。DdayFlags・ColorsはContentsと同じ添字で対応する。
type SaveInput struct {
	Contents  []string
	DdayFlags []bool
	Colors    []string
	Date      calendar.Day
}

// SaveResult は一括登録の結果。
type SaveResult struct {
	NewestID string
	Todos    []model.Todo
}

// ArchiveResult はアーカイブ後の表示日の一覧とアーカイブ一覧。
type ArchiveResult struct {
	Active   []model.Todo
	Archived []model.ArchivedTodo
}

// DdayEntry はD-Day一覧の1件。
type DdayEntry struct {
	model.Todo
	DaysLeft  int
	Countdown string
}

// Service はTodoのサービス層。
type Service struct {
	todos     repository.TodoRepository
	archives  repository.ArchiveRepository
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	maxBatch  int
	now       func() time.Time
	newID     func() string
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator はTodo IDの生成関数を差し替える。
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService はServiceの新しいインスタンスを生成する。
// maxBatchは1回のSaveで登録できる件数の上限。
func NewService(
	todos repository.TodoRepository,
	archives repository.ArchiveRepository,
	sanitizer security.TextSanitizer,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	maxBatch int,
	opts ...Option,
) *Service {
	s := &Service{
		todos:     todos,
		archives:  archives,
		sanitizer: sanitizer,
		metrics:   mc,
		logger:    logger,
		maxBatch:  maxBatch,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchForDate は指定日のTodoをoriginal_order順で返す。
func (s *Service) FetchForDate(ctx context.Context, userID string, day calendar.Day) ([]model.Todo, error) {
	todos, err := s.todos.ListByDate(ctx, userID, day)
	if err != nil {
		s.logger.Error("Todo一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("date", day.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Todo一覧の取得に失敗しました: %w", err)
	}
	return todos, nil
}

// Save は複数のTodoを一括登録し、最後に登録したTodoのIDと指定日の一覧を返す。
// 空白のみの入力は対応するフラグ・色と一緒に除外する。
// すべて空白の場合は何も登録せずEMPTY_TODOを返す。
// original_orderは登録前のユーザーの全Todo件数に添字を足した値。
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (*SaveResult, error) {
	type entry struct {
		content string
		dday    bool
		color   string
	}

	entries := make([]entry, 0, len(in.Contents))
	for i, raw := range in.Contents {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		content := s.sanitizer.Clean(raw)
		if content == "" {
			continue
		}
		e := entry{content: content}
		if i < len(in.DdayFlags) {
			e.dday = in.DdayFlags[i]
		}
		if i < len(in.Colors) {
			e.color = strings.TrimSpace(in.Colors[i])
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		return nil, model.NewEmptyTodoError()
	}
	if s.maxBatch > 0 && len(entries) > s.maxBatch {
		return nil, model.NewBatchTooLargeError(s.maxBatch)
	}
	for _, e := range entries {
		if e.color != "" && !colorPattern.MatchString(e.color) {
			return nil, model.NewInvalidColorError(e.color)
		}
	}

	count, err := s.todos.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Todo件数の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Todo件数の取得に失敗しました: %w", err)
	}

	now := s.now()
	todos := make([]model.Todo, len(entries))
	for i, e := range entries {
		t := model.Todo{
			ID:            s.newID(),
			UserID:        userID,
			Content:       e.content,
			CreatedAt:     now,
			OriginalOrder: count + i,
			Date:          in.Date,
			IsDday:        e.dday,
		}
		if e.dday {
			day := in.Date
			t.DdayDate = &day
		}
		if e.color != "" {
			color := strings.ToUpper(e.color)
			t.Color = &color
		}
		todos[i] = t
	}

	if err := s.todos.InsertBatch(ctx, todos); err != nil {
		s.logger.Error("Todoの登録に失敗しました",
			slog.String("user_id", userID),
			slog.Int("count", len(todos)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Todoの登録に失敗しました: %w", err)
	}
	s.metrics.RecordTodosCreated(len(todos))
	s.metrics.RecordTodoOperation(metrics.OpSave)

	list, err := s.FetchForDate(ctx, userID, in.Date)
	if err != nil {
		return nil, err
	}

	return &SaveResult{
		NewestID: todos[len(todos)-1].ID,
		Todos:    list,
	}, nil
}

// mutate は対象Todoの存在を確認してfnを適用し、Todoの日付の一覧を返す。
// fnがtodo.Dateを書き換えた場合は新しい日付の一覧を返す。
func (s *Service) mutate(ctx context.Context, userID, todoID, kind string, fn func(todo *model.Todo) error) ([]model.Todo, error) {
	todo, err := s.todos.FindByID(ctx, userID, todoID)
	if err != nil {
		s.logger.Error("Todoの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("todo_id", todoID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Todoの取得に失敗しました: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(todoID)
	}

	if err := fn(todo); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewTodoNotFoundError(todoID)
		}
		s.logger.Error("Todoの更新に失敗しました",
			slog.String("user_id", userID),
			slog.String("todo_id", todoID),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Todoの更新に失敗しました: %w", err)
	}
	s.metrics.RecordTodoOperation(kind)

	return s.FetchForDate(ctx, userID, todo.Date)
}

// ToggleComplete は完了フラグをcurrentの反対に設定する。
func (s *Service) ToggleComplete(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error) {
	return s.mutate(ctx, userID, todoID, metrics.OpComplete, func(todo *model.Todo) error {
		return s.todos.SetComplete(ctx, userID, todoID, !current)
	})
}

// TogglePriority は優先フラグをcurrentの反対に設定する。
func (s *Service) TogglePriority(ctx context.Context, userID, todoID string, current bool) ([]model.Todo, error) {
	return s.mutate(ctx, userID, todoID, metrics.OpPriority, func(todo *model.Todo) error {
		return s.todos.SetPriority(ctx, userID, todoID, !current)
	})
}

// Delete はTodoを物理削除する。
func (s *Service) Delete(ctx context.Context, userID, todoID string) ([]model.Todo, error) {
	return s.mutate(ctx, userID, todoID, metrics.OpDelete, func(todo *model.Todo) error {
		return s.todos.Delete(ctx, userID, todoID)
	})
}

// SetColor は表示色を設定する。空文字の場合は色をクリアする。
func (s *Service) SetColor(ctx context.Context, userID, todoID, color string) ([]model.Todo, error) {
	color = strings.TrimSpace(color)
	var value *string
	if color != "" {
		if !colorPattern.MatchString(color) {
			return nil, model.NewInvalidColorError(color)
		}
		upper := strings.ToUpper(color)
		value = &upper
	}

	return s.mutate(ctx, userID, todoID, metrics.OpColor, func(todo *model.Todo) error {
		return s.todos.SetColor(ctx, userID, todoID, value)
	})
}

// ChangeDate はTodoを別の日付へ移動し、移動先の一覧を返す。
func (s *Service) ChangeDate(ctx context.Context, userID, todoID string, day calendar.Day) ([]model.Todo, error) {
	return s.mutate(ctx, userID, todoID, metrics.OpDate, func(todo *model.Todo) error {
		if err := s.todos.SetDate(ctx, userID, todoID, day); err != nil {
			return err
		}
		todo.Date = day
		return nil
	})
}

// ClearDday はD-Day設定を解除する。
func (s *Service) ClearDday(ctx context.Context, userID, todoID string) ([]model.Todo, error) {
	return s.mutate(ctx, userID, todoID, metrics.OpClearDday, func(todo *model.Todo) error {
		return s.todos.ClearDday(ctx, userID, todoID)
	})
}

// SetDday はTodoをD-Dayに設定する。dday_dateとdateはどちらもdayになる。
func (s *Service) SetDday(ctx context.Context, userID, todoID string, day calendar.Day) (*model.Todo, error) {
	todo, err := s.todos.SetDday(ctx, userID, todoID, day)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewTodoNotFoundError(todoID)
	}
	if err != nil {
		s.logger.Error("D-Dayの設定に失敗しました",
			slog.String("user_id", userID),
			slog.String("todo_id", todoID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("D-Dayの設定に失敗しました: %w", err)
	}
	s.metrics.RecordTodoOperation(metrics.OpDday)
	return todo, nil
}

// ArchiveIncomplete はユーザーの未完了Todoを全日付分アーカイブし、
// viewDayの一覧とアーカイブ一覧を返す。完了済みのTodoはアーカイブしない。
func (s *Service) ArchiveIncomplete(ctx context.Context, userID string, viewDay calendar.Day) (*ArchiveResult, error) {
	incomplete, err := s.todos.ListIncomplete(ctx, userID)
	if err != nil {
		s.logger.Error("未完了Todoの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("未完了Todoの取得に失敗しました: %w", err)
	}

	targets := make([]model.Todo, 0, len(incomplete))
	for _, t := range incomplete {
		if !t.IsComplete {
			targets = append(targets, t)
		}
	}
	targets = Dedupe(targets, func(t model.Todo) string { return t.ID })

	ids := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
	}

	moved, err := s.archives.ArchiveTodos(ctx, userID, ids, s.now())
	if err != nil {
		s.logger.Error("Todoのアーカイブに失敗しました",
			slog.String("user_id", userID),
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Todoのアーカイブに失敗しました: %w", err)
	}
	s.metrics.RecordTodosArchived(len(moved))
	s.metrics.RecordTodoOperation(metrics.OpArchive)
	s.logger.Info("Todoをアーカイブしました",
		slog.String("user_id", userID),
		slog.Int("archived_count", len(moved)),
	)

	active, err := s.FetchForDate(ctx, userID, viewDay)
	if err != nil {
		return nil, err
	}
	archived, err := s.ListArchived(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ArchiveResult{Active: active, Archived: archived}, nil
}

// ListArchived はアーカイブ一覧を返す。
func (s *Service) ListArchived(ctx context.Context, userID string) ([]model.ArchivedTodo, error) {
	archived, err := s.archives.ListArchived(ctx, userID)
	if err != nil {
		s.logger.Error("アーカイブ一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("アーカイブ一覧の取得に失敗しました: %w", err)
	}
	return archived, nil
}

// DeleteArchived はアーカイブを完全に削除し、残りのアーカイブ一覧を返す。
func (s *Service) DeleteArchived(ctx context.Context, userID, archiveID string) ([]model.ArchivedTodo, error) {
	err := s.archives.DeleteArchived(ctx, userID, archiveID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewArchivedTodoNotFoundError(archiveID)
	}
	if err != nil {
		s.logger.Error("アーカイブの削除に失敗しました",
			slog.String("user_id", userID),
			slog.String("archive_id", archiveID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("アーカイブの削除に失敗しました: %w", err)
	}
	s.metrics.RecordTodoOperation(metrics.OpDeleteArchived)
	return s.ListArchived(ctx, userID)
}

// ListDdays はD-Day一覧をtoday基準のカウントダウン付きで返す。
func (s *Service) ListDdays(ctx context.Context, userID string, today calendar.Day) ([]DdayEntry, error) {
	todos, err := s.todos.ListDdays(ctx, userID)
	if err != nil {
		s.logger.Error("D-Day一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("D-Day一覧の取得に失敗しました: %w", err)
	}

	entries := make([]DdayEntry, 0, len(todos))
	for _, t := range todos {
		if t.DdayDate == nil {
			continue
		}
		entries = append(entries, DdayEntry{
			Todo:      t,
			DaysLeft:  today.DaysUntil(*t.DdayDate),
			Countdown: calendar.Countdown(today, *t.DdayDate),
		})
	}
	return entries, nil
}

// MonthSummary は月（YYYY-MM）の日別件数を返す。
func (s *Service) MonthSummary(ctx context.Context, userID, month string) ([]model.DaySummary, error) {
	first, last, err := calendar.MonthRange(month)
	if err != nil {
		return nil, model.NewInvalidMonthError(month)
	}

	summaries, err := s.todos.MonthSummary(ctx, userID, first, last)
	if err != nil {
		s.logger.Error("月別集計の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("month", month),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("月別集計の取得に失敗しました: %w", err)
	}
	return summaries, nil
}
