// Package view derives the displayed task list from the full task set:
// search, then the status/priority/category filters, then a total-order sort.
// Stats are always computed over the unfiltered set.
//
// Every function here is pure and never mutates its input slice.
package view

import (
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

// Derive runs the whole pipeline.
func Derive(tasks []model.Task, filter model.Filter, search string) model.View {
	filtered := Search(tasks, search)
	filtered = ByStatus(filtered, filter.Status)
	filtered = ByPriority(filtered, filter.Priority)
	filtered = ByCategory(filtered, filter.Category)

	return model.View{
		Tasks: Sort(filtered),
		Stats: ComputeStats(tasks),
	}
}

// Search keeps tasks whose title or description contains query, ignoring case.
// A blank query keeps everything.
func Search(tasks []model.Task, query string) []model.Task {
	if strings.TrimSpace(query) == "" {
		return keep(tasks, func(model.Task) bool { return true })
	}
	needle := Fold(query)
	return keep(tasks, func(t model.Task) bool {
		return MatchesSearch(t, needle)
	})
}

// MatchesSearch expects needle to be case-folded already.
func MatchesSearch(t model.Task, needle string) bool {
	return strings.Contains(Fold(t.Title), needle) ||
		strings.Contains(Fold(t.Description), needle)
}

func ByStatus(tasks []model.Task, status model.Status) []model.Task {
	if isAll(string(status)) {
		return keep(tasks, func(model.Task) bool { return true })
	}
	switch status {
	case model.StatusCompleted:
		return keep(tasks, func(t model.Task) bool { return t.Completed })
	case model.StatusPending:
		return keep(tasks, func(t model.Task) bool { return !t.Completed })
	}
	return []model.Task{}
}

func ByPriority(tasks []model.Task, priority model.Priority) []model.Task {
	if isAll(string(priority)) {
		return keep(tasks, func(model.Task) bool { return true })
	}
	return keep(tasks, func(t model.Task) bool { return t.Priority == priority })
}

func ByCategory(tasks []model.Task, category string) []model.Task {
	if isAll(category) {
		return keep(tasks, func(model.Task) bool { return true })
	}
	return keep(tasks, func(t model.Task) bool { return t.Category == category })
}

// Sort returns a new slice in display order (see Compare).
func Sort(tasks []model.Task) []model.Task {
	out := slices.Clone(tasks)
	if out == nil {
		out = []model.Task{}
	}
	slices.SortStableFunc(out, Compare)
	return out
}

// Compare orders tasks: incomplete first, then higher priority, then tasks
// with a due date (earliest first) before tasks without, then most recently
// created first.
func Compare(a, b model.Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}

	if d := b.Priority.Rank() - a.Priority.Rank(); d != 0 {
		return d
	}

	switch {
	case a.DueDate != nil && b.DueDate != nil:
		if c := a.DueDate.Compare(*b.DueDate); c != 0 {
			return c
		}
	case a.DueDate != nil:
		return -1
	case b.DueDate != nil:
		return 1
	}

	return b.CreatedAt.Compare(a.CreatedAt)
}

func ComputeStats(tasks []model.Task) model.Stats {
	s := model.Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

func keep(tasks []model.Task, pred func(model.Task) bool) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

func isAll(v string) bool {
	return v == "" || v == model.FilterAll
}

// Fold case-folds s for MatchesSearch. A Caser is built per call since
// Casers are not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}
