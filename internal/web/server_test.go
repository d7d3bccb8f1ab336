package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/malvinas3d/backoffice/internal/catalog"
	"github.com/malvinas3d/backoffice/internal/config"
	"github.com/malvinas3d/backoffice/internal/importer"
	"github.com/malvinas3d/backoffice/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Import.MaxFileSize = 10 << 20
	cfg.Import.Timeout = time.Minute
	cfg.Import.TempDir = t.TempDir()
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.CORS.MaxAge = 300

	return NewServer(m, importer.New(m, log), catalog.New(m, log), cfg), m
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSubscriberLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/subscribers", store.Subscriber{
		Email: "ana@example.com", Kind: store.KindIndividual, Name: "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created store.Subscriber
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	// Same email again: update, not create.
	rec = doJSON(t, srv, http.MethodPost, "/api/subscribers", store.Subscriber{
		Email: "ana@example.com", Kind: store.KindIndividual, Name: "Ana María",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/subscribers/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got store.Subscriber
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Ana María", got.Name)

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/subscribers/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/subscribers/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSubscriber_BadID(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/subscribers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertSubscriber_UnknownField(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/subscribers",
		strings.NewReader(`{"email":"x@example.com","bogus":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParticipantsView(t *testing.T) {
	srv, m := newTestServer(t)
	ctx := context.Background()

	_, err := m.UpsertSubscriber(ctx, &store.Subscriber{Email: "ana@example.com", Kind: store.KindIndividual})
	require.NoError(t, err)
	sub, err := m.GetSubscriberByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	_, err = m.UpsertBlock(ctx, &store.Block{Code: "05-01", State: store.StateAssigned, SubscriberID: &sub.ID})
	require.NoError(t, err)
	_, err = m.UpsertSubscriber(ctx, &store.Subscriber{Email: "sinbloque@example.com", Kind: store.KindIndividual})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/participants?hasBlocks=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var parts []store.Participant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parts))
	require.Len(t, parts, 1)
	assert.Equal(t, "ana@example.com", parts[0].Subscriber.Email)
	require.Len(t, parts[0].Blocks, 1)
	assert.Equal(t, "05-01", parts[0].Blocks[0].Code)
}

func uploadWorkbook(t *testing.T, srv *Server, path string, rows [][]string) *httptest.ResponseRecorder {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "upload.xlsx")
	require.NoError(t, err)
	require.NoError(t, f.Write(part))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestImportEndpoint(t *testing.T) {
	srv, m := newTestServer(t)
	ctx := context.Background()

	_, err := m.UpsertSubscriber(ctx, &store.Subscriber{Email: "ana@example.com", Kind: store.KindIndividual})
	require.NoError(t, err)

	rec := uploadWorkbook(t, srv, "/api/imports/block-participants", [][]string{
		{"Bloque", "Mail", "Valida foto"},
		{"05-01", "ana@example.com", "1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res importer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Created)

	b, err := m.GetBlockByCode(ctx, "05-01")
	require.NoError(t, err)
	assert.Equal(t, store.StatePhotoValidated, b.State)
}

func TestImportEndpoint_MissingColumn(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := uploadWorkbook(t, srv, "/api/imports/block-participants", [][]string{
		{"Columna", "Otra"},
		{"a", "b"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestImportEndpoint_UnknownType(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := uploadWorkbook(t, srv, "/api/imports/no-such-type", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportCatalogEndpoint(t *testing.T) {
	srv, m := newTestServer(t)

	rec := uploadWorkbook(t, srv, "/api/imports/catalog", [][]string{
		{"M3D 05-01 Monte Longdon"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries, err := m.ListMapBlocks(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "M3D 05-01", entries[0].Code)
}

func TestExportBlocks(t *testing.T) {
	srv, m := newTestServer(t)
	ctx := context.Background()

	_, err := m.UpsertBlock(ctx, &store.Block{Code: "05-01", State: store.StateAssigned})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/export/blocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bloques-")
	assert.NotZero(t, rec.Body.Len())
}
