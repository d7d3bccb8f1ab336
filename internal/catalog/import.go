// Package catalog imports the map-block narrative catalog from the poster
// workbook: roughly 1500 tagged text cells spread over many sheets, each
// describing one block of the installation.
package catalog

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/malvinas3d/backoffice/internal/sheet"
	"github.com/malvinas3d/backoffice/internal/store"
)

// Tag prefixes recognized on catalog cells. "MD3" is a typo that appears in
// the source workbook and is kept as-is in the stored code so re-imports stay
// idempotent against the same cell.
var tagPrefixes = []string{"M3D", "MD3"}

var codePattern = regexp.MustCompile(`(\d{2})\s*-\s*(\d{2})`)

// Result summarizes a catalog import.
type Result struct {
	Found         int `json:"found"`
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Unparsed      int `json:"unparsed"`
	ExpectedTotal int `json:"expectedTotal"`
}

// ExpectedBlocks is the number of catalog entries the poster workbook is
// known to carry. A differing Found count is worth an operator's look but is
// not an error.
const ExpectedBlocks = 1500

// Importer scans poster workbooks into the map-block catalog.
type Importer struct {
	store store.Store
	log   *slog.Logger
}

func New(st store.Store, log *slog.Logger) *Importer {
	return &Importer{store: st, log: log}
}

// Import scans every cell of every sheet for tagged block descriptions and
// upserts one catalog entry per tag code. The catalog is best-effort: a
// tagged cell the code pattern cannot be extracted from is logged and
// skipped, never an error.
func (im *Importer) Import(ctx context.Context, path string) (*Result, error) {
	wb, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	res := &Result{ExpectedTotal: ExpectedBlocks}
	for _, name := range wb.SheetNames() {
		grid, err := wb.Grid(sheet.Selector{Name: name})
		if err != nil {
			return nil, err
		}
		im.log.Info("scanning sheet", "sheet", name, "rows", len(grid))
		if err := im.scanGrid(ctx, grid, res); err != nil {
			return nil, err
		}
	}

	if res.Found != ExpectedBlocks {
		im.log.Warn("unexpected catalog size",
			"found", res.Found, "expected", ExpectedBlocks)
	}
	return res, nil
}

func (im *Importer) scanGrid(ctx context.Context, grid [][]string, res *Result) error {
	for _, row := range grid {
		for _, raw := range row {
			text := strings.TrimSpace(raw)
			prefix, ok := taggedPrefix(text)
			if !ok {
				continue
			}
			res.Found++

			m := codePattern.FindStringSubmatch(text)
			if m == nil {
				im.log.Warn("tagged cell without section-number code",
					"text", truncate(text, 50))
				res.Unparsed++
				continue
			}
			section, number := m[1], m[2]

			mb := &store.MapBlock{
				Code:        prefix + " " + section + "-" + number,
				Section:     section,
				Number:      number,
				BlockNumber: section + "-" + number,
				Description: text,
			}
			created, err := im.store.UpsertMapBlock(ctx, mb)
			if err != nil {
				return err
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
		}
	}
	return nil
}

func taggedPrefix(text string) (string, bool) {
	for _, p := range tagPrefixes {
		if strings.HasPrefix(text, p) {
			return p, true
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
