// Command importer runs spreadsheet imports and block diagnostics against
// the backoffice database.
//
// Usage:
//
//	importer -file participantes.xlsx -type block-participants -mode full
//	importer -file nodos.xlsx -type receiving-nodes -sheet "Respuestas"
//	importer -file participantes.xlsx -review -apply
//	importer -correct-free -apply
//	importer -file poster.xlsx -catalog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/malvinas3d/backoffice/internal/catalog"
	"github.com/malvinas3d/backoffice/internal/config"
	"github.com/malvinas3d/backoffice/internal/importer"
	"github.com/malvinas3d/backoffice/internal/logging"
	"github.com/malvinas3d/backoffice/internal/sheet"
	"github.com/malvinas3d/backoffice/internal/store"
)

func main() {
	var (
		file        = flag.String("file", "", "path to the spreadsheet workbook")
		typeFlag    = flag.String("type", "", fmt.Sprintf("import type, one of %v", importer.Types()))
		sheetFlag   = flag.String("sheet", "0", "sheet to read: zero-based index or name")
		modeFlag    = flag.String("mode", string(importer.ModeIncremental), "block reconciliation mode: incremental or full")
		review      = flag.Bool("review", false, "diff tracker states against stored blocks instead of importing")
		correctFree = flag.Bool("correct-free", false, "find blocks without subscriber stuck in a non-free state")
		apply       = flag.Bool("apply", false, "persist changes for -review / -correct-free (default: report only)")
		catalogFlag = flag.Bool("catalog", false, "import the map-block narrative catalog from all sheets")
	)
	flag.Parse()

	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		fatal("failed to ping database", err)
	}

	db := store.NewDB(pool)
	if err := db.Migrate(ctx); err != nil {
		fatal("failed to apply schema", err)
	}

	svc := importer.New(db, slog.Default())
	sel := sheet.ParseSelector(*sheetFlag)

	switch {
	case *correctFree:
		runCorrection(ctx, svc, *apply)
	case *review:
		requireFile(*file)
		runReview(ctx, svc, *file, sel, *apply)
	case *catalogFlag:
		requireFile(*file)
		runCatalog(ctx, catalog.New(db, slog.Default()), *file)
	default:
		requireFile(*file)
		runImport(ctx, svc, *file, sel, *typeFlag, *modeFlag)
	}
}

func runImport(ctx context.Context, svc *importer.Service, file string, sel sheet.Selector, typeFlag, modeFlag string) {
	typ, err := importer.ParseType(typeFlag)
	if err != nil {
		fatal("invalid -type", err)
	}
	mode, err := importer.ParseMode(modeFlag)
	if err != nil {
		fatal("invalid -mode", err)
	}

	res, err := svc.Import(ctx, file, sel, typ, mode)
	if err != nil {
		fatal("import failed", err)
	}

	fmt.Println(res)
	for _, re := range res.RowErrors {
		fmt.Printf("  row %d: %s\n", re.Row, re.Message)
	}
}

func runReview(ctx context.Context, svc *importer.Service, file string, sel sheet.Selector, apply bool) {
	review, err := svc.ReviewStates(ctx, file, sel, apply)
	if err != nil {
		fatal("review failed", err)
	}

	fmt.Printf("checked %d blocks\n", review.Checked)
	for _, state := range store.AllStates() {
		if n := review.ByState[state]; n > 0 {
			fmt.Printf("  %-18s %d\n", state, n)
		}
	}
	fmt.Printf("divergent: %d, not in store: %d\n", len(review.Diffs), len(review.Missing))
	for _, d := range review.Diffs {
		fmt.Printf("  %s: %s -> %s\n", d.Code, d.Stored, d.Resolved)
	}
	if apply {
		fmt.Printf("applied %d corrections\n", review.Applied)
	} else if len(review.Diffs) > 0 {
		fmt.Println("no changes applied; rerun with -apply to persist")
	}
}

func runCorrection(ctx context.Context, svc *importer.Service, apply bool) {
	correction, err := svc.CorrectUnassignedBlocks(ctx, apply)
	if err != nil {
		fatal("correction failed", err)
	}

	if len(correction.Codes) == 0 {
		fmt.Println("no blocks need correction")
		return
	}
	fmt.Printf("%d blocks without subscriber in a non-free state:\n", len(correction.Codes))
	for _, code := range correction.Codes {
		fmt.Printf("  %s\n", code)
	}
	if correction.Applied {
		fmt.Println("all reset to free")
	} else {
		fmt.Println("no changes applied; rerun with -apply to persist")
	}
}

func runCatalog(ctx context.Context, imp *catalog.Importer, file string) {
	res, err := imp.Import(ctx, file)
	if err != nil {
		fatal("catalog import failed", err)
	}
	fmt.Printf("found=%d created=%d updated=%d unparsed=%d\n",
		res.Found, res.Created, res.Updated, res.Unparsed)
	if res.Found != catalog.ExpectedBlocks {
		fmt.Printf("warning: expected %d catalog entries\n", catalog.ExpectedBlocks)
	}
}

func requireFile(file string) {
	if file == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: -file")
		flag.Usage()
		os.Exit(2)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
