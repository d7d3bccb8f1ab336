// Package importer is the reconciliation engine: it reads spreadsheet grids,
// normalizes rows through the mapping and parse packages, and upserts
// entities against the store while enforcing the block lifecycle invariants.
package importer

import (
	"fmt"
)

// Type selects the import procedure. Each type owns its column-mapping table
// and handler; dispatch is an exhaustive switch, never a name lookup.
type Type string

const (
	IndividualWithPrinter     Type = "individual-with-printer"
	IndividualWithoutPrinter  Type = "individual-without-printer"
	InstitutionWithPrinter    Type = "institution-with-printer"
	InstitutionWithoutPrinter Type = "institution-without-printer"
	ReceivingNodes            Type = "receiving-nodes"
	BlockParticipants         Type = "block-participants"
)

// Types lists every import type, for CLI help and validation.
func Types() []Type {
	return []Type{
		IndividualWithPrinter, IndividualWithoutPrinter,
		InstitutionWithPrinter, InstitutionWithoutPrinter,
		ReceivingNodes, BlockParticipants,
	}
}

// ParseType validates a CLI-supplied import type.
func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown import type %q (want one of %v)", s, Types())
}

// Mode chooses between the two tracker reconciliation strategies.
//
// Incremental wraps each row in its own transaction and leaves blocks absent
// from the spreadsheet untouched. Full wraps the whole file in one
// transaction, resets every block to free first, and replays the sheet as the
// authoritative state of the world.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeFull        Mode = "full"
)

// ParseMode validates a CLI-supplied mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIncremental, ModeFull:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want %s or %s)", s, ModeIncremental, ModeFull)
}

// RowError records one skipped row. Row numbers are 1-based spreadsheet rows
// so operators can find them in the source file.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result summarizes an import run. Row-level failures are accumulated here
// rather than propagated, so callers always get a complete summary even on
// partial failure.
type Result struct {
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Errors    int        `json:"errors"`
	RowErrors []RowError `json:"rowErrors,omitempty"`
}

func (r *Result) addError(row int, format string, args ...any) {
	r.Errors++
	r.RowErrors = append(r.RowErrors, RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) count(created bool) {
	if created {
		r.Created++
	} else {
		r.Updated++
	}
}

// String renders the operator-facing one-line summary.
func (r *Result) String() string {
	return fmt.Sprintf("created=%d updated=%d errors=%d", r.Created, r.Updated, r.Errors)
}

// MissingColumnError is the batch-fatal failure: a required column for the
// chosen import type could not be located. The import aborts with zero
// writes; Role names which logical column was missing.
type MissingColumnError struct {
	Role string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column not found: %s", e.Role)
}
