package models

import "time"

// TaskStatus is the aggregate state of a task derived from its workflow steps.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusCreateBCD  TaskStatus = "create_bcd"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// ValidTaskStatuses enumerates the statuses a task may carry.
var ValidTaskStatuses = map[TaskStatus]struct{}{
	StatusTodo:       {},
	StatusCreateBCD:  {},
	StatusInProgress: {},
	StatusDone:       {},
}

// Priority describes how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities enumerates the accepted priorities.
var ValidPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}

// Role is a team role tag carried by identities and step definitions.
type Role string

const (
	RoleDev      Role = "dev"
	RoleTL       Role = "tl"
	RoleTester   Role = "tester"
	RoleSection  Role = "section"
	RoleDeptHead Role = "dept_head"
	RoleBA       Role = "ba"
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
)

// ValidRoles enumerates the role tags known to the workflow.
var ValidRoles = map[Role]struct{}{
	RoleDev:      {},
	RoleTL:       {},
	RoleTester:   {},
	RoleSection:  {},
	RoleDeptHead: {},
	RoleBA:       {},
	RoleUser:     {},
	RoleAdmin:    {},
}

// Identity is the authenticated principal acting on a request.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Task is a unit of work moving through the fixed approval workflow.
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	Priority    Priority   `json:"priority" db:"priority"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	AssignedTo  string     `json:"assigned_to" db:"assigned_to"`

	BCDOwner   *string `json:"bcd_owner,omitempty" db:"bcd_owner"`
	DevOwner   *string `json:"dev_owner,omitempty" db:"dev_owner"`
	SITSupport *string `json:"sit_support,omitempty" db:"sit_support"`
	UATSupport *string `json:"uat_support,omitempty" db:"uat_support"`

	DevStart      *Date `json:"dev_start,omitempty" db:"dev_start"`
	DevEnd        *Date `json:"dev_end,omitempty" db:"dev_end"`
	SITStart      *Date `json:"sit_start,omitempty" db:"sit_start"`
	SITEnd        *Date `json:"sit_end,omitempty" db:"sit_end"`
	UATStart      *Date `json:"uat_start,omitempty" db:"uat_start"`
	UATEnd        *Date `json:"uat_end,omitempty" db:"uat_end"`
	GoLiveMoveDay *Date `json:"go_live_move_day_date,omitempty" db:"go_live_move_day_date"`
	GoLiveDate    *Date `json:"go_live_date,omitempty" db:"go_live_date"`
	DueDate       *Date `json:"due_date,omitempty" db:"due_date"`

	// Hours.
	TimeTracked   float64 `json:"time_tracked" db:"time_tracked"`
	TimeEstimated float64 `json:"time_estimated" db:"time_estimated"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Involves reports whether the user holds any ownership slot on the task.
func (t Task) Involves(userID string) bool {
	if userID == "" {
		return false
	}
	if t.AssignedTo == userID || t.CreatedBy == userID {
		return true
	}
	for _, slot := range []*string{t.BCDOwner, t.DevOwner, t.SITSupport, t.UATSupport} {
		if slot != nil && *slot == userID {
			return true
		}
	}
	return false
}

// TaskStep is the per-task instance of a workflow step definition.
type TaskStep struct {
	ID        string     `json:"id" db:"id"`
	TaskID    string     `json:"task_id" db:"task_id"`
	StepNo    int        `json:"step_no" db:"step_no"`
	StepName  string     `json:"step_name" db:"step_name"`
	Output    string     `json:"output" db:"output"`
	IsDone    bool       `json:"is_done" db:"is_done"`
	DoneBy    *string    `json:"done_by,omitempty" db:"done_by"`
	DoneAt    *time.Time `json:"done_at,omitempty" db:"done_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Comment is a discussion entry attached to a task.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	Mentions  []string  `json:"mentions" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ActivityAction names an entry in the task activity log.
type ActivityAction string

const (
	ActionCreated       ActivityAction = "created"
	ActionUpdated       ActivityAction = "updated"
	ActionStatusChanged ActivityAction = "status_changed"
	ActionAssigned      ActivityAction = "assigned"
	ActionCommented     ActivityAction = "commented"
	ActionCompleted     ActivityAction = "completed"
)

// ValidActivityActions enumerates the actions accepted by the activity log.
var ValidActivityActions = map[ActivityAction]struct{}{
	ActionCreated:       {},
	ActionUpdated:       {},
	ActionStatusChanged: {},
	ActionAssigned:      {},
	ActionCommented:     {},
	ActionCompleted:     {},
}

// Activity is an audit record of something that happened to a task.
type Activity struct {
	ID        string         `json:"id" db:"id"`
	TaskID    string         `json:"task_id" db:"task_id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Action    ActivityAction `json:"action" db:"action"`
	Details   map[string]any `json:"details" db:"-"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// NotificationType classifies a user notification.
type NotificationType string

const (
	NotifyAssigned      NotificationType = "assigned"
	NotifyCommented     NotificationType = "commented"
	NotifyStatusChanged NotificationType = "status_changed"
	NotifyDueSoon       NotificationType = "due_soon"
	NotifyOverdue       NotificationType = "overdue"
)

// Notification is a message addressed to a single user about a task.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	TaskID    string           `json:"task_id" db:"task_id"`
	Type      NotificationType `json:"type" db:"type"`
	Message   string           `json:"message" db:"message"`
	Read      bool             `json:"read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
