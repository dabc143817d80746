// Package models defines the domain types shared by the import layer.
package models

import (
	"encoding/json"
	"time"
)

// FileMeta is a lightweight representation of one record file on disk,
// returned by list operations.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocalDocument is the on-disk JSON shape of an institution record:
// the full MARC document plus the candidate ids proposed for it. The
// brief form is optional and re-derived from fullrec when absent.
type LocalDocument struct {
	RecID           string          `json:"rec_id"`
	Brief           json.RawMessage `json:"briefrec,omitempty"`
	Full            json.RawMessage `json:"fullrec"`
	PossibleMatches []string        `json:"possible_matches"`
}

// UnionDocument is the on-disk JSON shape of a union catalog record.
// MARCXML files carry the same payload without the wrapper.
type UnionDocument struct {
	MMSID string          `json:"mms_id"`
	MARC  json.RawMessage `json:"marc"`
}
