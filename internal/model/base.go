package model

import "github.com/google/uuid"

// ensureID assigns a fresh UUID to rows created without one. Primary keys are
// generated in Go so the same models work on Postgres and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
