// Package store persists finished calculation runs. Persistence is a
// collaborator of the engine, not part of it: the engine only produces a
// ProcessingResult and the caller decides whether and where to keep it.
package store

import "github.com/mkallas/cryptotax/tax"

// Store records one complete run.
type Store interface {
	SaveRun(result tax.ProcessingResult) error
	Close() error
}
