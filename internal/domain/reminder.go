package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxReminderMessage is the longest reminder text accepted, in characters.
const MaxReminderMessage = 500

// Reminder is a due item: a message delivered to its owner once FireAt has
// elapsed. Reminders are immutable after creation and are removed from the
// store when they are dispatched.
type Reminder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Message   string    `json:"message"`
	FireAt    time.Time `json:"fire_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Due reports whether the reminder is eligible for dispatch at now.
func (r *Reminder) Due(now time.Time) bool {
	return !r.FireAt.After(now)
}

// TimeLeft is the remaining time until FireAt, clamped at zero.
func (r *Reminder) TimeLeft(now time.Time) time.Duration {
	if d := r.FireAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Text renders the notification body sent to the owner.
func (r *Reminder) Text() string {
	return "⏰ Reminder: " + r.Message
}

// CreateReminderRequest is the inbound payload for a new reminder.
// In is a compact duration such as "1h30m" or "2d".
type CreateReminderRequest struct {
	OwnerID string `json:"owner_id"`
	In      string `json:"in"`
	Message string `json:"message"`
}

// Validate checks the request and returns the parsed delay.
func (r *CreateReminderRequest) Validate() (time.Duration, error) {
	if strings.TrimSpace(r.OwnerID) == "" {
		return 0, ErrInvalidOwner
	}
	if strings.TrimSpace(r.Message) == "" {
		return 0, ErrEmptyMessage
	}
	if utf8.RuneCountInString(r.Message) > MaxReminderMessage {
		return 0, ErrMessageTooLong
	}
	return ParseDuration(r.In)
}

// ReminderView is a reminder as presented to its owner.
type ReminderView struct {
	*Reminder
	TimeLeft string `json:"time_left"`
}
