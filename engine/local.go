package engine

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/soilworks/sbcrun/internal"
)

// Local is an in-process engine backed by excelize. Formula evaluation
// happens on read (CalcCellValue), so Recalculate only invalidates the
// cached values carried inside the workbook; saved artifacts then force
// a recalculation in any spreadsheet application that opens them.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (*Local) Start(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &localSession{}, nil
}

type localSession struct {
	f *excelize.File
}

func (s *localSession) Open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.f != nil {
		return fmt.Errorf("session already has an open document")
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	s.f = f
	return nil
}

func (s *localSession) SetCell(ctx context.Context, ref internal.CellRef, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.f == nil {
		return fmt.Errorf("no open document")
	}
	if err := s.f.SetCellValue(ref.Sheet, ref.Cell, value); err != nil {
		return fmt.Errorf("writing %s: %w", ref, err)
	}
	return nil
}

func (s *localSession) Recalculate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.f == nil {
		return fmt.Errorf("no open document")
	}
	// Drop cached formula values so nothing stale survives the writes.
	if err := s.f.UpdateLinkedValue(); err != nil {
		return fmt.Errorf("invalidating cached values: %w", err)
	}
	return nil
}

func (s *localSession) ReadCell(ctx context.Context, ref internal.CellRef) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.f == nil {
		return "", fmt.Errorf("no open document")
	}
	v, err := s.f.CalcCellValue(ref.Sheet, ref.Cell)
	if err != nil {
		return "", fmt.Errorf("evaluating %s: %w", ref, err)
	}
	return v, nil
}

func (s *localSession) SaveAs(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.f == nil {
		return fmt.Errorf("no open document")
	}
	if err := s.f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func (s *localSession) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Quit is a no-op: there is no external process behind a local session.
func (s *localSession) Quit() error { return nil }
