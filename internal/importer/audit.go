package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/malvinas3d/backoffice/internal/parse"
	"github.com/malvinas3d/backoffice/internal/sheet"
	"github.com/malvinas3d/backoffice/internal/store"
)

// StateDiff is one block whose stored state disagrees with the state the
// tracker resolves to.
type StateDiff struct {
	Code     string           `json:"code"`
	Stored   store.BlockState `json:"stored"`
	Resolved store.BlockState `json:"resolved"`
}

// Review is the outcome of a state audit run.
type Review struct {
	Checked int                      `json:"checked"`
	ByState map[store.BlockState]int `json:"byState"`
	Diffs   []StateDiff              `json:"diffs,omitempty"`
	Missing []string                 `json:"missing,omitempty"`
	Applied int                      `json:"applied"`
}

// ReviewStates re-resolves every tracker row and diffs the result against the
// stored block states without touching anything. With apply set, the
// divergent blocks are moved to their resolved state in one transaction,
// stamping missing milestone timestamps and preserving the ones already set.
func (s *Service) ReviewStates(ctx context.Context, path string, sel sheet.Selector, apply bool) (*Review, error) {
	grid, err := sheet.ReadGrid(path, sel)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, errors.New("empty sheet")
	}

	cols, err := resolveTrackerColumns(grid[0], ModeFull)
	if err != nil {
		return nil, err
	}

	review := &Review{ByState: make(map[store.BlockState]int)}
	owners := make(map[string]string)

	start := 0
	if looksLikeHeader(grid[0], cols.block) {
		start = 1
	}

	for _, row := range grid[start:] {
		code := ""
		if cols.block < len(row) {
			code = strings.TrimSpace(row[cols.block])
		}
		if parse.Blank(code) {
			continue
		}
		review.Checked++

		state := store.StateFree
		if cols.email < len(row) && !parse.Blank(row[cols.email]) {
			state = resolveState(row, cols)
			owners[code] = strings.ToLower(strings.TrimSpace(row[cols.email]))
		}
		review.ByState[state]++

		block, err := s.store.GetBlockByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("block in tracker but not in store", "code", code)
			review.Missing = append(review.Missing, code)
			continue
		}
		if err != nil {
			return nil, err
		}
		if block.State != state {
			review.Diffs = append(review.Diffs, StateDiff{
				Code: code, Stored: block.State, Resolved: state,
			})
		}
	}

	if !apply || len(review.Diffs) == 0 {
		return review, nil
	}

	err = s.store.InTx(ctx, func(st store.Store) error {
		now := s.now()
		for _, diff := range review.Diffs {
			block, err := st.GetBlockByCode(ctx, diff.Code)
			if err != nil {
				return err
			}
			if diff.Resolved == store.StateFree {
				block.Reset()
			} else {
				// A non-free state needs an owner. Link the tracker row's
				// subscriber first; with no known owner the diff is skipped
				// rather than leaving an ownerless block mid-lifecycle.
				if block.SubscriberID == nil {
					sub, err := st.GetSubscriberByEmail(ctx, owners[diff.Code])
					if errors.Is(err, store.ErrNotFound) {
						s.log.Warn("divergent block has no known subscriber, skipping",
							"code", diff.Code, "email", owners[diff.Code])
						continue
					}
					if err != nil {
						return err
					}
					block.SubscriberID = &sub.ID
				}
				block.ApplyState(diff.Resolved, now)
			}
			if _, err := st.UpsertBlock(ctx, block); err != nil {
				return err
			}
			review.Applied++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// looksLikeHeader guesses whether the first row is a header: block codes
// start with a digit, header text does not.
func looksLikeHeader(row []string, blockCol int) bool {
	if blockCol >= len(row) {
		return true
	}
	v := strings.TrimSpace(row[blockCol])
	if v == "" {
		return true
	}
	return v[0] < '0' || v[0] > '9'
}

// Correction reports blocks that violated the free-state invariant: a state
// beyond free with no owning subscriber.
type Correction struct {
	Codes   []string `json:"codes"`
	Applied bool     `json:"applied"`
}

// CorrectUnassignedBlocks finds blocks with no subscriber stuck in a
// non-free state and, with apply set, forces them back to free with all
// milestone timestamps cleared.
func (s *Service) CorrectUnassignedBlocks(ctx context.Context, apply bool) (*Correction, error) {
	blocks, err := s.store.AssignedBlocksWithoutSubscriber(ctx)
	if err != nil {
		return nil, err
	}

	correction := &Correction{}
	for _, b := range blocks {
		correction.Codes = append(correction.Codes, b.Code)
		s.log.Warn("block without subscriber in non-free state",
			"code", b.Code, "state", string(b.State))
	}
	if !apply || len(blocks) == 0 {
		return correction, nil
	}

	err = s.store.InTx(ctx, func(st store.Store) error {
		for _, b := range blocks {
			b.Reset()
			if _, err := st.UpsertBlock(ctx, &b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	correction.Applied = true
	return correction, nil
}
