package model

import "time"

const (
	StatusActive = "active"
	StatusClosed = "closed"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleGuest     = "guest"
)

const (
	ChoiceYes = "yes"
	ChoiceNo  = "no"
)

type Event struct {
	ID        int64     `db:"event_id" json:"event_id"`
	Title     string    `db:"title" json:"title"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	GroupID   string    `db:"group_id" json:"group_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Slot struct {
	ID        int64     `db:"slot_id" json:"slot_id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	Start     time.Time `db:"start_datetime" json:"start_datetime"`
	End       time.Time `db:"end_datetime" json:"end_datetime"`
	Status    string    `db:"status" json:"status"`
	CreatedBy string    `db:"created_by,omitempty" json:"created_by,omitempty"`
}

type SlotVote struct {
	ID        int64     `db:"vote_id" json:"vote_id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	SlotID    int64     `db:"slot_id" json:"slot_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Choice    string    `db:"choice" json:"choice"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Poll struct {
	ID        int64     `db:"poll_id" json:"poll_id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	Question  string    `db:"question" json:"question"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PollChoice struct {
	ID        int64     `db:"choice_id" json:"choice_id"`
	PollID    int64     `db:"poll_id" json:"poll_id"`
	Text      string    `db:"text" json:"text"`
	Latitude  *float64  `db:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64  `db:"longitude,omitempty" json:"longitude,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PollVote struct {
	ID        int64     `db:"vote_id" json:"vote_id"`
	PollID    int64     `db:"poll_id" json:"poll_id"`
	ChoiceID  int64     `db:"choice_id" json:"choice_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Expense struct {
	ID        int64     `db:"expense_id" json:"expense_id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Notes     string    `db:"notes,omitempty" json:"notes,omitempty"`
	Weight    float64   `db:"weight" json:"weight"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type User struct {
	ID         string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name,omitempty" json:"name,omitempty"`
	Role       string    `db:"role" json:"role"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	LastActive time.Time `db:"last_active" json:"last_active"`
}

// EventListItem is the aggregate row returned by the active-events listing.
type EventListItem struct {
	ID               int64     `json:"event_id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	ParticipantCount int       `json:"participant_count"`
}
