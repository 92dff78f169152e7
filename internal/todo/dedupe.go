package todo

import (
	"sort"

	"github.com/hitoshi/ddaytodo/internal/model"
)

// Dedupe はkeyが既出の要素を取り除き、最初に現れた順序を保ったスライスを返す。
func Dedupe[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Groups はTodo一覧画面の表示グループ。
type Groups struct {
	Priority []model.Todo // 未完了かつ優先
	Others   []model.Todo // 未完了かつ優先でない
	Complete []model.Todo // 完了済み
}

// Group はTodoを表示グループに振り分ける。各グループはoriginal_order順。
func Group(todos []model.Todo) Groups {
	g := Groups{
		Priority: []model.Todo{},
		Others:   []model.Todo{},
		Complete: []model.Todo{},
	}
	for _, t := range todos {
		switch {
		case t.IsComplete:
			g.Complete = append(g.Complete, t)
		case t.IsPriority:
			g.Priority = append(g.Priority, t)
		default:
			g.Others = append(g.Others, t)
		}
	}
	for _, list := range [][]model.Todo{g.Priority, g.Others, g.Complete} {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].OriginalOrder < list[j].OriginalOrder
		})
	}
	return g
}
