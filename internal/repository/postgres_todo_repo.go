package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/model"
)

// todoColumns はtodos・archived_todosに共通のカラム。
var todoColumns = []string{
	"id", "user_id", "content", "is_complete", "is_priority", "created_at",
	"original_order", "date", "is_dday", "dday_date", "color",
}

// PostgresTodoRepo はPostgreSQLを使用したTodoリポジトリ。
type PostgresTodoRepo struct {
	db *sqlx.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sqlx.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

func (r *PostgresTodoRepo) selectTodos(ctx context.Context, b sq.SelectBuilder) ([]model.Todo, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	todos := []model.Todo{}
	if err := r.db.SelectContext(ctx, &todos, query, args...); err != nil {
		return nil, err
	}
	return todos, nil
}

// ListByDate は指定日のTodoをoriginal_order順で返す。
func (r *PostgresTodoRepo) ListByDate(ctx context.Context, userID string, day calendar.Day) ([]model.Todo, error) {
	todos, err := r.selectTodos(ctx, psql.Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"user_id": userID, "date": day}).
		OrderBy("original_order ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list todos by date: %w", err)
	}
	return todos, nil
}

// CountByUser はユーザーの全Todo件数を返す。
func (r *PostgresTodoRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("todos").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count todos: %w", err)
	}
	return count, nil
}

// InsertBatch は複数のTodoを1文で挿入する。
func (r *PostgresTodoRepo) InsertBatch(ctx context.Context, todos []model.Todo) error {
	if len(todos) == 0 {
		return nil
	}

	b := psql.Insert("todos").Columns(todoColumns...)
	for _, t := range todos {
		b = b.Values(t.ID, t.UserID, t.Content, t.IsComplete, t.IsPriority, t.CreatedAt,
			t.OriginalOrder, t.Date, t.IsDday, t.DdayDate, t.Color)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert todos: %w", err)
	}
	return nil
}

// FindByID は指定IDのTodoを取得する。見つからない場合はnilを返す。
func (r *PostgresTodoRepo) FindByID(ctx context.Context, userID, id string) (*model.Todo, error) {
	query, args, err := psql.Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var todo model.Todo
	err = r.db.GetContext(ctx, &todo, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find todo: %w", err)
	}
	return &todo, nil
}

func (r *PostgresTodoRepo) update(ctx context.Context, userID, id string, set map[string]interface{}) error {
	b := psql.Update("todos").
		SetMap(set).
		Where(sq.Eq{"id": id, "user_id": userID})
	if err := execAffected(ctx, r.db, b); err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	return nil
}

// SetComplete は完了フラグを更新する。
func (r *PostgresTodoRepo) SetComplete(ctx context.Context, userID, id string, value bool) error {
	return r.update(ctx, userID, id, map[string]interface{}{"is_complete": value})
}

// SetPriority は優先フラグを更新する。
func (r *PostgresTodoRepo) SetPriority(ctx context.Context, userID, id string, value bool) error {
	return r.update(ctx, userID, id, map[string]interface{}{"is_priority": value})
}

// SetColor は色を更新する。nilの場合は色をクリアする。
func (r *PostgresTodoRepo) SetColor(ctx context.Context, userID, id string, color *string) error {
	return r.update(ctx, userID, id, map[string]interface{}{"color": color})
}

// SetDate はTodoを別の日付へ移動する。
func (r *PostgresTodoRepo) SetDate(ctx context.Context, userID, id string, day calendar.Day) error {
	return r.update(ctx, userID, id, map[string]interface{}{"date": day})
}

// ClearDday はis_ddayを落としdday_dateをNULLにする。
func (r *PostgresTodoRepo) ClearDday(ctx context.Context, userID, id string) error {
	return r.update(ctx, userID, id, map[string]interface{}{"is_dday": false, "dday_date": nil})
}

// SetDday はdday_date・dateを指定日にしてis_ddayを立て、更新後の行を返す。
func (r *PostgresTodoRepo) SetDday(ctx context.Context, userID, id string, day calendar.Day) (*model.Todo, error) {
	query, args, err := psql.Update("todos").
		SetMap(map[string]interface{}{
			"dday_date": day,
			"is_dday":   true,
			"date":      day,
		}).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var todo model.Todo
	err = r.db.GetContext(ctx, &todo, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to set dday: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set dday: %w", err)
	}
	return &todo, nil
}

// Delete はTodoを物理削除する。
func (r *PostgresTodoRepo) Delete(ctx context.Context, userID, id string) error {
	b := psql.Delete("todos").Where(sq.Eq{"id": id, "user_id": userID})
	if err := execAffected(ctx, r.db, b); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

// ListIncomplete はユーザーの未完了Todoを全日付から返す。
func (r *PostgresTodoRepo) ListIncomplete(ctx context.Context, userID string) ([]model.Todo, error) {
	todos, err := r.selectTodos(ctx, psql.Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"user_id": userID, "is_complete": false}).
		OrderBy("date ASC", "original_order ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list incomplete todos: %w", err)
	}
	return todos, nil
}

// ListDdays はD-Day設定済みのTodoをdday_date順で返す。
func (r *PostgresTodoRepo) ListDdays(ctx context.Context, userID string) ([]model.Todo, error) {
	todos, err := r.selectTodos(ctx, psql.Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"user_id": userID, "is_dday": true}).
		Where(sq.NotEq{"dday_date": nil}).
		OrderBy("dday_date ASC", "original_order ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list dday todos: %w", err)
	}
	return todos, nil
}

// MonthSummary は[first, last]の日別件数と完了件数を返す。
func (r *PostgresTodoRepo) MonthSummary(ctx context.Context, userID string, first, last calendar.Day) ([]model.DaySummary, error) {
	query, args, err := psql.Select(
		"date",
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE is_complete) AS completed",
	).
		From("todos").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"date": first}).
		Where(sq.LtOrEq{"date": last}).
		GroupBy("date").
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	summaries := []model.DaySummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize month: %w", err)
	}
	return summaries, nil
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)
