package model

import (
	"encoding/json"
	"time"
)

// FilterAll disables a filter stage.
const FilterAll = "all"

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities for sorting. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

type Status string

const (
	StatusAll       Status = FilterAll
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category"`
	CategoryID  int64      `json:"categoryId,omitempty"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	Category     *string    `json:"category,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"-"`
	Completed    *bool      `json:"completed,omitempty"`
}

// UnmarshalJSON treats an explicit "dueDate": null as a request to clear it.
func (p *TaskPatch) UnmarshalJSON(data []byte) error {
	type plain TaskPatch
	var aux struct {
		plain
		DueDate json.RawMessage `json:"dueDate"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = TaskPatch(aux.plain)
	p.DueDate = nil
	p.ClearDueDate = false

	switch {
	case aux.DueDate == nil:
	case string(aux.DueDate) == "null" || string(aux.DueDate) == `""`:
		p.ClearDueDate = true
	default:
		var due time.Time
		if err := json.Unmarshal(aux.DueDate, &due); err != nil {
			return err
		}
		p.DueDate = &due
	}
	return nil
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Category == nil && p.DueDate == nil && !p.ClearDueDate && p.Completed == nil
}

type Filter struct {
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
}

type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
}

// View is the filtered, ordered subset of tasks plus stats over the full set.
type View struct {
	Tasks []Task `json:"tasks"`
	Stats Stats  `json:"stats"`
}
