// Package engine abstracts the external spreadsheet calculation engine
// behind a narrow session interface: open one document, write cells,
// recalculate, read cells, save a copy, release everything. The formulas
// inside the document are opaque to callers; an engine's only job is to
// evaluate them.
package engine

import (
	"context"
	"fmt"

	"github.com/soilworks/sbcrun/internal"
)

// Engine starts exclusive calculation sessions. One session owns one
// engine instance and at most one open document; sessions are never
// shared across cases.
type Engine interface {
	Start(ctx context.Context) (Session, error)
}

// Session is one connection to a running engine instance.
//
// Lifecycle: Open exactly once, then any number of SetCell calls, then
// Recalculate, then ReadCell; SaveAs persists the populated document to
// a new path. Close discards the open document without saving further
// changes and Quit shuts the engine instance down; both must be safe to
// call on every exit path, including after a mid-sequence failure.
type Session interface {
	Open(ctx context.Context, path string) error
	SetCell(ctx context.Context, ref internal.CellRef, value any) error
	Recalculate(ctx context.Context) error
	ReadCell(ctx context.Context, ref internal.CellRef) (string, error)
	SaveAs(ctx context.Context, path string) error
	Close() error
	Quit() error
}

// Error is a typed failure reported by an engine, with a stable code
// alongside the human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("engine error %s: %s", e.Code, e.Message)
	}
	return "engine error: " + e.Message
}
