package model

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	// TaskCount is advisory and may drift from the real number of tasks.
	TaskCount int `json:"taskCount"`
}

type CategoryPatch struct {
	Name      *string `json:"name,omitempty"`
	Color     *string `json:"color,omitempty"`
	TaskCount *int    `json:"taskCount,omitempty"`
}
