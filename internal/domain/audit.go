package domain

import (
	"encoding/json"
	"time"
)

// Actor kinds.
const (
	ActorSystem = "system"
	ActorUser   = "user"
)

// Actor identifies who performed a state change. Public (unauthenticated)
// movement paths run as the system actor; everything else carries a user id.
type Actor struct {
	Type   string `json:"type"` // 'system' or 'user'
	UserID string `json:"user_id,omitempty"`
}

// SystemActor returns the tagged system actor.
func SystemActor() Actor {
	return Actor{Type: ActorSystem}
}

// UserActor returns an actor for an authenticated user.
func UserActor(userID string) Actor {
	return Actor{Type: ActorUser, UserID: userID}
}

func (a Actor) String() string {
	if a.Type == ActorUser && a.UserID != "" {
		return "user:" + a.UserID
	}
	return ActorSystem
}

// Audit actions.
const (
	AuditLoteCreated    = "lote_created"
	AuditStayClosed     = "stay_closed"
	AuditStayOpened     = "stay_opened"
	AuditLoteFinished   = "lote_finished"
	AuditSubLoteCreated = "sublote_created"
)

// AuditEntry records one state change with before/after values
// (corresponds to the audit_log table).
type AuditEntry struct {
	EntryID string `db:"entry_id"` // UUID, PRIMARY KEY
	LoteID  string `db:"lote_id"`  // UUID, NOT NULL

	Action    string `db:"action"`     // VARCHAR(30), NOT NULL
	ActorType string `db:"actor_type"` // VARCHAR(10), CHECK IN ('system', 'user')
	ActorID   string `db:"actor_id"`   // UUID, empty for system actor

	Before json.RawMessage `db:"before"` // JSONB, nullable
	After  json.RawMessage `db:"after"`  // JSONB, nullable

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}
