package domain

import "time"

// SessionKind identifies which viewer a session handle belongs to.
type SessionKind string

const (
	// SessionReport is the evaluation report viewer.
	SessionReport SessionKind = "report"

	// SessionChat is the interactive chat viewer.
	SessionChat SessionKind = "chat"
)

// Valid reports whether the kind is one of the defined viewer kinds.
func (k SessionKind) Valid() bool {
	return k == SessionReport || k == SessionChat
}

// Session is an ephemeral viewer handle keyed by (trial, kind).
// Sessions have no relation to task state; they are presence flags consumed
// by an external viewer collaborator. At most one session per (trial, kind)
// is open at a time.
type Session struct {
	// TrialID identifies the trial being viewed.
	TrialID string `json:"trial_id" validate:"required"`

	// Kind identifies the viewer.
	Kind SessionKind `json:"kind" validate:"required,oneof=report chat"`

	// OpenedAt records when the session was first opened.
	OpenedAt time.Time `json:"opened_at" validate:"required"`
}
