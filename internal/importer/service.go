package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/malvinas3d/backoffice/internal/sheet"
	"github.com/malvinas3d/backoffice/internal/store"
)

// Service runs imports against a Store. Safe for sequential use; imports are
// operator-triggered batch actions and are not run concurrently.
type Service struct {
	store store.Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates an import service.
func New(st store.Store, log *slog.Logger) *Service {
	return &Service{store: st, log: log, now: time.Now}
}

// Import loads the selected sheet of the workbook at path and runs the
// import procedure for typ. Mode only affects BlockParticipants; every other
// type is inherently incremental.
//
// The returned error is batch-fatal (unreadable file, missing required
// column): nothing was written. Row-level failures are reported through the
// Result instead.
func (s *Service) Import(ctx context.Context, path string, sel sheet.Selector, typ Type, mode Mode) (*Result, error) {
	grid, err := sheet.ReadGrid(path, sel)
	if err != nil {
		return nil, err
	}
	return s.ImportGrid(ctx, grid, typ, mode)
}

// ImportGrid runs an import over an already-loaded grid. The first row is
// the header row.
func (s *Service) ImportGrid(ctx context.Context, grid [][]string, typ Type, mode Mode) (*Result, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("empty sheet")
	}

	log := s.log.With("run_id", uuid.NewString(), "type", string(typ))
	log.Info("import started", "rows", len(grid)-1, "mode", string(mode))

	var (
		res *Result
		err error
	)
	switch typ {
	case IndividualWithPrinter, IndividualWithoutPrinter,
		InstitutionWithPrinter, InstitutionWithoutPrinter:
		res, err = s.importSubscribers(ctx, log, grid, typ)
	case ReceivingNodes:
		res, err = s.importNodes(ctx, log, grid)
	case BlockParticipants:
		res, err = s.importBlocks(ctx, log, grid, mode)
	default:
		return nil, fmt.Errorf("unknown import type %q", typ)
	}
	if err != nil {
		log.Error("import aborted", "error", err)
		return nil, err
	}

	log.Info("import finished",
		"created", res.Created, "updated", res.Updated, "errors", res.Errors)
	return res, nil
}
