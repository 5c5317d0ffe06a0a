package db

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Goal struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
	GoalType    string `json:"goal_type,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Task struct {
	ID          string `json:"id"`
	GoalID      string `json:"goal_id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	IsRecurring bool   `json:"is_recurring"`
	Cadence     string `json:"cadence,omitempty"`
	Category    string `json:"category,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Completed reports whether the task has a completion timestamp. There is
// no other completion signal.
func (t Task) Completed() bool {
	return t.CompletedAt != ""
}

type Streak struct {
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
	LastActivity  string `json:"last_activity,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

type ChatSession struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Title         string `json:"title,omitempty"`
	LastMessageAt string `json:"last_message_at"`
	CreatedAt     string `json:"created_at"`
	MessageCount  int    `json:"message_count"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// GoalTypes is the closed set of goal categories used for task breakdown
// and persona affinity.
var GoalTypes = []string{
	"skill_learning",
	"creative_project",
	"fitness",
	"habit_building",
	"career",
	"personal_development",
	"mvp_launch",
	"customer_acquisition",
	"revenue_generation",
	"product_validation",
}

// Cadences are the allowed recurrence cadences.
var Cadences = []string{"daily", "weekly", "monthly"}

// Categories are the structured task tags.
var Categories = []string{
	"customer", "revenue", "shipping", "practice", "training",
	"health", "learning", "reflection", "other",
}

type GoalInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
	GoalType    string `json:"goal_type,omitempty"`
}

func (in GoalInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateDate("target_date", in.TargetDate); err != nil {
		return err
	}
	return validateEnum("goal_type", in.GoalType, GoalTypes)
}

// GoalPatch holds optional goal updates; nil fields are left unchanged.
type GoalPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	TargetDate  *string `json:"target_date,omitempty"`
	GoalType    *string `json:"goal_type,omitempty"`
}

func (p GoalPatch) fields() (map[string]any, error) {
	fields := make(map[string]any)
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return nil, err
		}
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = nullStr(*p.Description)
	}
	if p.TargetDate != nil {
		if err := validateDate("target_date", *p.TargetDate); err != nil {
			return nil, err
		}
		fields["target_date"] = nullStr(*p.TargetDate)
	}
	if p.GoalType != nil {
		if err := validateEnum("goal_type", *p.GoalType, GoalTypes); err != nil {
			return nil, err
		}
		fields["goal_type"] = nullStr(*p.GoalType)
	}
	return fields, nil
}

type TaskInput struct {
	GoalID      string `json:"goal_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	IsRecurring bool   `json:"is_recurring,omitempty"`
	Cadence     string `json:"cadence,omitempty"`
	Category    string `json:"category,omitempty"`
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.GoalID) == "" {
		return invalid("goal_id", "is required")
	}
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateDate("due_date", in.DueDate); err != nil {
		return err
	}
	if err := validateEnum("category", in.Category, Categories); err != nil {
		return err
	}
	return validateRecurrence(in.IsRecurring, in.Cadence)
}

// TaskPatch holds optional task updates; nil fields are left unchanged.
// Completion is changed only through CompleteTask and UncompleteTask.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	IsRecurring *bool   `json:"is_recurring,omitempty"`
	Cadence     *string `json:"cadence,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// apply merges the patch into t and validates the result.
func (p TaskPatch) apply(t Task) (Task, map[string]any, error) {
	fields := make(map[string]any)
	if p.Title != nil {
		t.Title = *p.Title
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
		fields["description"] = nullStr(*p.Description)
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
		fields["due_date"] = nullStr(*p.DueDate)
	}
	if p.IsRecurring != nil {
		t.IsRecurring = *p.IsRecurring
		fields["is_recurring"] = *p.IsRecurring
	}
	if p.Cadence != nil {
		t.Cadence = *p.Cadence
		fields["cadence"] = nullStr(*p.Cadence)
	}
	if p.Category != nil {
		t.Category = *p.Category
		fields["category"] = nullStr(*p.Category)
	}
	in := TaskInput{
		GoalID: t.GoalID, Title: t.Title, Description: t.Description, DueDate: t.DueDate,
		IsRecurring: t.IsRecurring, Cadence: t.Cadence, Category: t.Category,
	}
	if err := in.Validate(); err != nil {
		return t, nil, err
	}
	return t, fields, nil
}

// TaskFilter narrows ListTasks. Zero values mean "no filter".
type TaskFilter struct {
	GoalID    string
	Date      string
	Completed *bool
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "is required")
	}
	if n := utf8.RuneCountInString(title); n > 255 {
		return invalid("title", "must be at most 255 characters, got %d", n)
	}
	return nil
}

func validateDate(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return invalid(field, "must be a YYYY-MM-DD date")
	}
	return nil
}

func validateEnum(field, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(field, "must be one of %s", strings.Join(allowed, ", "))
}

func validateRecurrence(recurring bool, cadence string) error {
	if err := validateEnum("cadence", cadence, Cadences); err != nil {
		return err
	}
	if recurring && cadence == "" {
		return invalid("cadence", "is required for recurring tasks")
	}
	if !recurring && cadence != "" {
		return invalid("cadence", "is only allowed on recurring tasks")
	}
	return nil
}
