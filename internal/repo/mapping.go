package repo

import (
	"strings"
	"time"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/store"
)

// Store-side field names.
const (
	fieldName = "Name"

	fieldTitle       = "title_c"
	fieldDescription = "description_c"
	fieldPriority    = "priority_c"
	fieldDueDate     = "due_date_c"
	fieldCompleted   = "completed_c"
	fieldCreatedAt   = "created_at_c"
	fieldCompletedAt = "completed_at_c"
	fieldCategory    = "category_c"

	fieldCategoryName = "name_c"
	fieldColor        = "color_c"
	fieldTaskCount    = "task_count_c"
)

var taskFields = []string{
	fieldName, fieldTitle, fieldDescription, fieldPriority, fieldDueDate,
	fieldCompleted, fieldCreatedAt, fieldCompletedAt, fieldCategory,
}

var categoryFields = []string{fieldName, fieldCategoryName, fieldColor, fieldTaskCount}

func taskFromRecord(r store.Record) model.Task {
	id, _ := r.ID()
	t := model.Task{
		ID:          id,
		Title:       str(r[fieldTitle]),
		Description: str(r[fieldDescription]),
		Priority:    model.Priority(str(r[fieldPriority])),
		DueDate:     timestamp(r[fieldDueDate]),
		Completed:   boolean(r[fieldCompleted]),
		CompletedAt: timestamp(r[fieldCompletedAt]),
	}
	if t.Title == "" {
		t.Title = str(r[fieldName])
	}
	if created := timestamp(r[fieldCreatedAt]); created != nil {
		t.CreatedAt = *created
	}
	t.Category, t.CategoryID = categoryRef(r[fieldCategory])
	return t
}

func taskToRecord(t model.Task) store.Record {
	name := t.Title
	if name == "" {
		name = "Untitled Task"
	}
	return store.Record{
		fieldName:        name,
		fieldTitle:       t.Title,
		fieldDescription: t.Description,
		fieldPriority:    string(t.Priority),
		fieldDueDate:     formatTime(t.DueDate),
		fieldCompleted:   t.Completed,
		fieldCreatedAt:   formatTime(&t.CreatedAt),
		fieldCompletedAt: formatTime(t.CompletedAt),
		fieldCategory:    t.Category,
	}
}

// taskPatchToRecord holds only the changed fields. completed_at follows
// completed: set to now when completing, cleared when reopening.
func taskPatchToRecord(id int64, p model.TaskPatch, now time.Time) store.Record {
	r := store.Record{store.IDField: id}
	if p.Title != nil {
		r[fieldTitle] = *p.Title
		if *p.Title != "" {
			r[fieldName] = *p.Title
		}
	}
	if p.Description != nil {
		r[fieldDescription] = *p.Description
	}
	if p.Priority != nil {
		r[fieldPriority] = string(*p.Priority)
	}
	if p.Category != nil {
		r[fieldCategory] = *p.Category
	}
	switch {
	case p.ClearDueDate:
		r[fieldDueDate] = nil
	case p.DueDate != nil:
		r[fieldDueDate] = formatTime(p.DueDate)
	}
	if p.Completed != nil {
		r[fieldCompleted] = *p.Completed
		if *p.Completed {
			r[fieldCompletedAt] = formatTime(&now)
		} else {
			r[fieldCompletedAt] = nil
		}
	}
	return r
}

func categoryFromRecord(r store.Record) model.Category {
	id, _ := r.ID()
	c := model.Category{
		ID:    id,
		Name:  str(r[fieldCategoryName]),
		Color: str(r[fieldColor]),
	}
	if c.Name == "" {
		c.Name = str(r[fieldName])
	}
	if n, ok := store.Int64(r[fieldTaskCount]); ok {
		c.TaskCount = int(n)
	}
	return c
}

func categoryToRecord(c model.Category) store.Record {
	name := c.Name
	if name == "" {
		name = "Untitled Category"
	}
	return store.Record{
		fieldName:         name,
		fieldCategoryName: c.Name,
		fieldColor:        c.Color,
		fieldTaskCount:    c.TaskCount,
	}
}

func categoryPatchToRecord(id int64, p model.CategoryPatch) store.Record {
	r := store.Record{store.IDField: id}
	if p.Name != nil {
		r[fieldCategoryName] = *p.Name
		if *p.Name != "" {
			r[fieldName] = *p.Name
		}
	}
	if p.Color != nil {
		r[fieldColor] = *p.Color
	}
	if p.TaskCount != nil {
		r[fieldTaskCount] = *p.TaskCount
	}
	return r
}

// categoryRef resolves the shapes a task's category reference can take: a
// plain name, a numeric id value, or a nested {Id, Name} lookup object.
func categoryRef(v any) (string, int64) {
	switch ref := v.(type) {
	case string:
		// Names are always written as strings, even digit-only ones.
		return ref, 0
	case map[string]any:
		id, _ := store.Int64(ref[store.IDField])
		return str(ref[fieldName]), id
	case store.Record:
		return categoryRef(map[string]any(ref))
	}
	if id, ok := store.Int64(v); ok {
		return "", id
	}
	return "", 0
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

func timestamp(v any) *time.Time {
	switch ts := v.(type) {
	case time.Time:
		return &ts
	case *time.Time:
		return ts
	case string:
		if ts == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil
		}
		return &t
	}
	return nil
}

func formatTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
