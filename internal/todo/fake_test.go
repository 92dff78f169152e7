package todo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/model"
	"github.com/hitoshi/ddaytodo/internal/repository"
)

// --- インメモリ実装 ---

// memStore はTodoRepositoryとArchiveRepositoryのインメモリ実装。
// xxxErrに値を入れると該当操作がそのエラーを返す。
type memStore struct {
	mu       sync.Mutex
	todos    map[string]model.Todo
	archived []model.ArchivedTodo
	seq      int

	listErr    error
	countErr   error
	insertErr  error
	archiveErr error

	insertCalls  int
	archiveCalls [][]string
}

func newMemStore(todos ...model.Todo) *memStore {
	s := &memStore{todos: make(map[string]model.Todo)}
	for _, t := range todos {
		s.todos[t.ID] = t
	}
	return s
}

var (
	_ repository.TodoRepository    = (*memStore)(nil)
	_ repository.ArchiveRepository = (*memStore)(nil)
)

func (s *memStore) sorted(filter func(model.Todo) bool) []model.Todo {
	out := []model.Todo{}
	for _, t := range s.todos {
		if filter(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalOrder < out[j].OriginalOrder })
	return out
}

func (s *memStore) ListByDate(_ context.Context, userID string, day calendar.Day) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sorted(func(t model.Todo) bool { return t.UserID == userID && t.Date == day }), nil
}

func (s *memStore) CountByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.sorted(func(t model.Todo) bool { return t.UserID == userID })), nil
}

func (s *memStore) InsertBatch(_ context.Context, todos []model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, t := range todos {
		s.todos[t.ID] = t
	}
	return nil
}

func (s *memStore) FindByID(_ context.Context, userID, id string) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	return &t, nil
}

func (s *memStore) update(userID, id string, fn func(t *model.Todo)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	fn(&t)
	s.todos[id] = t
	return nil
}

func (s *memStore) SetComplete(_ context.Context, userID, id string, value bool) error {
	return s.update(userID, id, func(t *model.Todo) { t.IsComplete = value })
}

func (s *memStore) SetPriority(_ context.Context, userID, id string, value bool) error {
	return s.update(userID, id, func(t *model.Todo) { t.IsPriority = value })
}

func (s *memStore) SetColor(_ context.Context, userID, id string, color *string) error {
	return s.update(userID, id, func(t *model.Todo) { t.Color = color })
}

func (s *memStore) SetDate(_ context.Context, userID, id string, day calendar.Day) error {
	return s.update(userID, id, func(t *model.Todo) { t.Date = day })
}

func (s *memStore) SetDday(_ context.Context, userID, id string, day calendar.Day) (*model.Todo, error) {
	var out model.Todo
	err := s.update(userID, id, func(t *model.Todo) {
		d := day
		t.IsDday = true
		t.DdayDate = &d
		t.Date = day
		out = *t
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *memStore) ClearDday(_ context.Context, userID, id string) error {
	return s.update(userID, id, func(t *model.Todo) {
		t.IsDday = false
		t.DdayDate = nil
	})
}

func (s *memStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.todos, id)
	return nil
}

// ListIncomplete は重複を含む結果を返すことがあるバックエンドを模して、同じ行を2回返す。
func (s *memStore) ListIncomplete(_ context.Context, userID string) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.sorted(func(t model.Todo) bool { return t.UserID == userID && !t.IsComplete })
	return append(list, list...), nil
}

func (s *memStore) ListDdays(_ context.Context, userID string) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.sorted(func(t model.Todo) bool { return t.UserID == userID && t.IsDday && t.DdayDate != nil })
	sort.SliceStable(list, func(i, j int) bool { return *list[i].DdayDate < *list[j].DdayDate })
	return list, nil
}

func (s *memStore) MonthSummary(_ context.Context, userID string, first, last calendar.Day) ([]model.DaySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDay := map[calendar.Day]*model.DaySummary{}
	for _, t := range s.todos {
		if t.UserID != userID || t.Date < first || t.Date > last {
			continue
		}
		sum, ok := byDay[t.Date]
		if !ok {
			sum = &model.DaySummary{Date: t.Date}
			byDay[t.Date] = sum
		}
		sum.Total++
		if t.IsComplete {
			sum.Completed++
		}
	}
	out := []model.DaySummary{}
	for _, sum := range byDay {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *memStore) ArchiveTodos(_ context.Context, userID string, ids []string, archivedAt time.Time) ([]model.ArchivedTodo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archiveCalls = append(s.archiveCalls, ids)
	if s.archiveErr != nil {
		return nil, s.archiveErr
	}
	moved := []model.ArchivedTodo{}
	for _, id := range ids {
		t, ok := s.todos[id]
		if !ok || t.UserID != userID || t.IsComplete {
			continue
		}
		delete(s.todos, id)
		s.seq++
		a := model.ArchivedTodo{Todo: t, ArchiveID: fmt.Sprintf("archive-%d", s.seq), ArchivedAt: archivedAt}
		moved = append(moved, a)
		s.archived = append(s.archived, a)
	}
	return moved, nil
}

func (s *memStore) ListArchived(_ context.Context, userID string) ([]model.ArchivedTodo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.ArchivedTodo{}
	for _, a := range s.archived {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) DeleteArchived(_ context.Context, userID, archiveID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.archived {
		if a.ArchiveID == archiveID && a.UserID == userID {
			s.archived = append(s.archived[:i], s.archived[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- メトリクス ---

type recordingMetrics struct {
	created  int
	archived int
	ops      []string
}

func (m *recordingMetrics) RecordTodosCreated(n int) { m.created += n }
func (m *recordingMetrics) RecordTodosArchived(n int) { m.archived += n }
func (m *recordingMetrics) RecordTodoOperation(kind string) { m.ops = append(m.ops, kind) }
func (m *recordingMetrics) RecordHTTPStatus(int) {}
func (m *recordingMetrics) RecordRequestLatency(time.Duration) {}

// --- ヘルパー ---

type passthroughSanitizer struct{}

func (passthroughSanitizer) Clean(s string) string { return s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
