package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/malvinas3d/backoffice/internal/importer"
	"github.com/malvinas3d/backoffice/internal/logging"
	"github.com/malvinas3d/backoffice/internal/sheet"
)

// spoolUpload copies the uploaded workbook to a temp file so excelize can
// open it by path. The caller must remove the returned file.
func (s *Server) spoolUpload(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		return "", err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return "", errors.New("missing multipart field: file")
	}
	defer file.Close()

	tmp, err := os.CreateTemp(s.cfg.Import.TempDir, "import-*.xlsx")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, io.LimitReader(file, s.cfg.Import.MaxFileSize)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// handleImport runs one import over an uploaded workbook. The import type is
// the {type} route parameter; sheet and mode come from query parameters.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	typ, err := importer.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	mode := importer.ModeIncremental
	if raw := r.URL.Query().Get("mode"); raw != "" {
		if mode, err = importer.ParseMode(raw); err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}
	sel := sheet.ParseSelector(r.URL.Query().Get("sheet"))

	path, err := s.spoolUpload(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer os.Remove(path)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	res, err := s.importer.Import(ctx, path, sel, typ, mode)
	if err != nil {
		var missing *importer.MissingColumnError
		if errors.As(err, &missing) {
			respondError(w, r, err, http.StatusUnprocessableEntity)
			return
		}
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	logging.WithFields(r.Context(), "type", string(typ)).
		Info("import upload finished", "result", res.String())
	writeJSON(w, http.StatusOK, res)
}

// handleImportCatalog scans an uploaded poster workbook into the map-block
// catalog.
func (s *Server) handleImportCatalog(w http.ResponseWriter, r *http.Request) {
	path, err := s.spoolUpload(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer os.Remove(path)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	res, err := s.catalog.Import(ctx, path)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	logging.FromContext(r.Context()).Info("catalog upload finished",
		"found", res.Found, "created", res.Created, "updated", res.Updated)
	writeJSON(w, http.StatusOK, res)
}
