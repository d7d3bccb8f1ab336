package importer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/malvinas3d/backoffice/internal/mapping"
	"github.com/malvinas3d/backoffice/internal/parse"
	"github.com/malvinas3d/backoffice/internal/store"
)

// trackerColumns holds the resolved column positions of the participants
// tracker. -1 marks an absent column.
type trackerColumns struct {
	block     int
	email     int
	validated int
	delivered int
	received  int
	diploma   int
	lottery   int
}

func findOr(header []string, terms []string, fallback int) int {
	if pos, ok := mapping.FindColumn(header, terms); ok {
		return pos
	}
	return fallback
}

// resolveTrackerColumns locates the tracker columns. Incremental runs trust
// fuzzy header search alone; full reconciliation runs start from the
// historical column positions and fall back to fuzzy search only when the
// sheet is too narrow for them.
//
// The block and email columns are required, and at least one state indicator
// must be present. Anything less aborts the batch before any write.
func resolveTrackerColumns(header []string, mode Mode) (trackerColumns, error) {
	cols := trackerColumns{
		block:     findOr(header, mapping.TrackerBlockTerms, -1),
		email:     findOr(header, mapping.TrackerEmailTerms, -1),
		validated: findOr(header, mapping.TrackerValidatedTerms, -1),
		delivered: findOr(header, mapping.TrackerDeliveredTerms, -1),
		received:  findOr(header, mapping.TrackerReceivedTerms, -1),
		diploma:   findOr(header, mapping.TrackerDiplomaTerms, -1),
		lottery:   findOr(header, mapping.TrackerLotteryTerms, -1),
	}

	if mode == ModeFull {
		positional := trackerColumns{
			block:     mapping.TrackerColBlock,
			email:     mapping.TrackerColEmail,
			validated: mapping.TrackerColValidated,
			delivered: mapping.TrackerColDelivered,
			received:  mapping.TrackerColReceived,
			diploma:   mapping.TrackerColDiploma,
			lottery:   cols.lottery,
		}
		if mapping.TrackerColDiploma < len(header) {
			cols = positional
		}
	}

	if cols.block < 0 {
		return cols, &MissingColumnError{Role: "block-identifier"}
	}
	if cols.email < 0 {
		return cols, &MissingColumnError{Role: "owner-identifier (email)"}
	}
	if cols.validated < 0 && cols.delivered < 0 && cols.received < 0 && cols.diploma < 0 {
		return cols, &MissingColumnError{Role: "state-indicator"}
	}
	return cols, nil
}

// indicator reports whether the cell at col counts as a positive milestone
// signal. Absent columns and falsy markers never do.
func indicator(row []string, col int) bool {
	if col < 0 || col >= len(row) {
		return false
	}
	return parse.Truthy(row[col])
}

// resolveState is the max-reduction over the four independent indicator
// signals: the highest-ranked positive indicator wins outright, regardless
// of the lower ones. With no positive indicator an owned block is assigned.
func resolveState(row []string, cols trackerColumns) store.BlockState {
	switch {
	case indicator(row, cols.diploma):
		return store.StateDiplomaDone
	case indicator(row, cols.received):
		return store.StateReceivedByOrg
	case indicator(row, cols.delivered):
		return store.StateDeliveredToNode
	case indicator(row, cols.validated):
		return store.StatePhotoValidated
	}
	return store.StateAssigned
}

// institutionStreak is the fold state for multi-block institutions: the
// source tracker lists an institution's extra blocks as consecutive rows
// with a blank email cell under the institution's own row.
type institutionStreak struct {
	email string
	extra int
}

const maxInstitutionExtras = 3

// claim attributes a blank-email row to the running streak, if any capacity
// remains.
func (st *institutionStreak) claim() (string, bool) {
	if st.email == "" || st.extra >= maxInstitutionExtras {
		return "", false
	}
	st.extra++
	return st.email, true
}

func (st *institutionStreak) reset() {
	st.email = ""
	st.extra = 0
}

func (st *institutionStreak) start(email string) {
	st.email = email
	st.extra = 0
}

// importBlocks reconciles the participants tracker against the block table.
//
// Incremental mode upserts row by row, each in its own transaction; blocks
// absent from the sheet keep their stored state. Full mode wraps the whole
// sheet in one transaction and resets every block to free first, so the
// sheet becomes the authoritative state and stale blocks end up free.
func (s *Service) importBlocks(ctx context.Context, log *slog.Logger, grid [][]string, mode Mode) (*Result, error) {
	if mode == "" {
		mode = ModeIncremental
	}
	cols, err := resolveTrackerColumns(grid[0], mode)
	if err != nil {
		return nil, err
	}
	log.Info("tracker columns resolved",
		"block", cols.block, "email", cols.email,
		"validated", cols.validated, "delivered", cols.delivered,
		"received", cols.received, "diploma", cols.diploma)

	res := &Result{}

	replay := func(st store.Store) error {
		streak := &institutionStreak{}
		for i, row := range grid[1:] {
			rowNum := i + 2
			if err := s.blockRow(ctx, log, st, cols, row, rowNum, streak, res); err != nil {
				log.Error("row failed", "row", rowNum, "error", err)
				log.Debug("row payload", "row", rowNum, "cells", row)
				res.addError(rowNum, "%v", err)
			}
		}
		return nil
	}

	if mode == ModeFull {
		err = s.store.InTx(ctx, func(st store.Store) error {
			n, err := st.ResetAllBlocks(ctx)
			if err != nil {
				return err
			}
			log.Info("all blocks reset to free", "count", n)
			return replay(st)
		})
	} else {
		err = replay(s.store)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// blockRow resolves and persists one tracker row. In incremental mode each
// call runs in its own transaction.
func (s *Service) blockRow(ctx context.Context, log *slog.Logger, st store.Store, cols trackerColumns, row []string, rowNum int, streak *institutionStreak, res *Result) error {
	code := ""
	if cols.block < len(row) {
		code = row[cols.block]
	}
	if parse.Blank(code) {
		return nil
	}

	email := ""
	if cols.email < len(row) && !parse.Blank(row[cols.email]) {
		email = row[cols.email]
	}

	lottery := ""
	if cols.lottery >= 0 && cols.lottery < len(row) && !parse.Blank(row[cols.lottery]) {
		lottery = row[cols.lottery]
	}

	// Blank email: either one of a running institution's extra blocks, or a
	// free block nobody owns.
	fromStreak := false
	if email == "" {
		claimed, ok := streak.claim()
		if !ok {
			log.Debug("unowned block", "row", rowNum, "code", code)
			return st.InTx(ctx, func(tx store.Store) error {
				return s.persistFreeBlock(ctx, tx, code, lottery, res)
			})
		}
		email = claimed
		fromStreak = true
		log.Info("attributing extra block to institution", "row", rowNum, "code", code, "email", email)
	}

	sub, err := st.GetSubscriberByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		if !fromStreak {
			streak.reset()
		}
		log.Warn("subscriber not found for block", "row", rowNum, "code", code, "email", email)
		res.addError(rowNum, "subscriber %s not found", email)
		return nil
	}
	if err != nil {
		return err
	}

	// Only a row carrying its own email starts or ends a streak; attributed
	// blank rows must not restart the count.
	if !fromStreak {
		if sub.Kind == store.KindInstitution {
			streak.start(email)
		} else {
			streak.reset()
		}
	}

	state := resolveState(row, cols)

	return st.InTx(ctx, func(tx store.Store) error {
		block, err := tx.GetBlockByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			block = &store.Block{Code: code}
		} else if err != nil {
			return err
		}

		// States only move forward outside an explicit reset: a stored rank
		// above the resolved one wins.
		if block.State.Rank() > state.Rank() {
			state = block.State
		}

		block.SubscriberID = &sub.ID
		block.NodeID = nil
		if node, err := tx.FirstNodeForSubscriber(ctx, sub.ID); err == nil {
			block.NodeID = &node.ID
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if lottery != "" {
			block.LotteryNumber = lottery
		}
		block.ApplyState(state, s.now())

		created, err := tx.UpsertBlock(ctx, block)
		if err != nil {
			return err
		}
		res.count(created)
		return nil
	})
}

// persistFreeBlock writes an unowned block: free state, no owner, no node,
// no milestone timestamps.
func (s *Service) persistFreeBlock(ctx context.Context, st store.Store, code, lottery string, res *Result) error {
	block, err := st.GetBlockByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		block = &store.Block{Code: code}
	} else if err != nil {
		return err
	}
	block.Reset()
	if lottery != "" {
		block.LotteryNumber = lottery
	}
	created, err := st.UpsertBlock(ctx, block)
	if err != nil {
		return err
	}
	res.count(created)
	return nil
}
