package domain

import (
	"encoding/json"
	"time"
)

// Lote status values.
const (
	LoteStatusActive   = "active"
	LoteStatusFinished = "finished"
)

// Lote is a tracked batch of animals or product (corresponds to the lotes table).
// A lote is either a root batch or a piece split off from exactly one parent;
// lineage is two levels deep at most.
type Lote struct {
	LoteID string `db:"lote_id"` // UUID, PRIMARY KEY
	OrgID  string `db:"org_id"`  // UUID, NOT NULL

	Identification string `db:"identification"` // VARCHAR(100), NOT NULL

	InitialAnimals int  `db:"initial_animals"` // INTEGER, NOT NULL
	FinalAnimals   *int `db:"final_animals"`   // INTEGER, nullable

	FoodRegime   string          `db:"food_regime"`   // VARCHAR(50)
	CustomFields json.RawMessage `db:"custom_fields"` // JSONB, DEFAULT '{}'::JSONB

	// Status is never deleted, only flipped to finished.
	Status string `db:"status"` // VARCHAR(20), CHECK IN ('active', 'finished')

	// ParentLoteID is set on sub-lotes created by a split.
	ParentLoteID *string `db:"parent_lote_id"` // UUID, nullable, REFERENCES lotes(lote_id)
	PieceType    *string `db:"piece_type"`     // VARCHAR(50), nullable (jamon, paleta, lomo, ...)

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
	UpdatedAt time.Time `db:"updated_at"` // TIMESTAMPTZ, NOT NULL
}

// IsSplitPiece reports whether this lote was created by splitting a parent.
func (l *Lote) IsSplitPiece() bool {
	return l.ParentLoteID != nil && *l.ParentLoteID != ""
}
