package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// ClosedTaskStatuses never count as overdue
var ClosedTaskStatuses = []TaskStatus{TaskStatusDone, TaskStatusCancelled}

// Task is an operator to-do item. The engine only reads tasks.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Status      TaskStatus `gorm:"size:20;not null;index:idx_tasks_status" json:"status"`
	Priority    string     `gorm:"size:20;not null;default:'medium'" json:"priority"`
	DueDate     *time.Time `gorm:"index:idx_tasks_due_date" json:"due_date,omitempty"`
	ClientID    *uint      `gorm:"index:idx_tasks_client_id" json:"client_id,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

// TaskFilter provides filter fields for repository queries
type TaskFilter struct {
	ID              *uint
	Status          *TaskStatus
	ExcludeStatuses []TaskStatus
	DueBefore       *time.Time
}

func (s TaskStatus) IsClosed() bool {
	for _, c := range ClosedTaskStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// IsOverdue reports whether an open task's due date passed before now
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Status.IsClosed() && t.DueDate != nil && t.DueDate.Before(now)
}
