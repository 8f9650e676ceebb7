package model

import "time"

// CancelledRegistration is the close_registration sentinel meaning
// the event was cancelled by its creator.
const CancelledRegistration = -1

type User struct {
	ID           int64  `db:"user_id" json:"user_id"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
}

type Session struct {
	Token     string    `db:"token" json:"session_token"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Event times are epoch seconds, matching the wire contract.
type Event struct {
	ID                int64  `db:"event_id" json:"event_id"`
	Name              string `db:"name" json:"name"`
	Description       string `db:"description" json:"description"`
	Location          string `db:"location" json:"location"`
	StartDate         int64  `db:"start_date" json:"start"`
	CloseRegistration int64  `db:"close_registration" json:"close_registration"`
	MaxAttendees      int    `db:"max_attendees" json:"max_attendees"`
	CreatorID         int64  `db:"creator_id" json:"creator_id"`
}

func (e *Event) Cancelled() bool {
	return e.CloseRegistration == CancelledRegistration
}

type Question struct {
	ID      int64  `db:"question_id" json:"question_id"`
	Text    string `db:"question" json:"question"`
	AskedBy int64  `db:"asked_by" json:"asked_by"`
	EventID int64  `db:"event_id" json:"event_id"`
	Votes   int    `db:"votes" json:"votes"`
}

type Category struct {
	ID   int64  `db:"category_id" json:"category_id"`
	Name string `db:"name" json:"name"`
}
