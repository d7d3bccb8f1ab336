package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/malvinas3d/backoffice/internal/store"
)

const exportSheet = "Bloques"

var exportHeader = []any{
	"Bloque", "Sección", "Número", "Estado", "Email", "Participante",
	"Asignado", "Foto validada", "Entregado en nodo", "Recibido", "Diploma",
}

// handleExportBlocks streams the reconciled block table as an xlsx
// attachment, one row per block joined with its owner.
func (s *Server) handleExportBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.store.ListBlocks(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	// One lookup per distinct owner, not per block.
	owners := map[int64]*store.Subscriber{}
	for _, b := range blocks {
		if b.SubscriberID == nil {
			continue
		}
		if _, seen := owners[*b.SubscriberID]; seen {
			continue
		}
		sub, err := s.store.GetSubscriber(r.Context(), *b.SubscriberID)
		if err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		owners[*b.SubscriberID] = sub
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", exportSheet)

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if err := sw.SetRow("A1", exportHeader); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	for i, b := range blocks {
		email, name := "", ""
		if b.SubscriberID != nil {
			if sub := owners[*b.SubscriberID]; sub != nil {
				email = sub.Email
				name = sub.DisplayName()
			}
		}
		row := []any{
			b.Code, b.Section, b.Number, string(b.State), email, name,
			stamp(b.AssignedAt), stamp(b.ValidatedAt), stamp(b.DeliveredAt),
			stamp(b.ReceivedAt), stamp(b.DiplomaAt),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		if err := sw.SetRow(cell, row); err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
	}
	if err := sw.Flush(); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("bloques-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		// Headers are already out; nothing to do but log.
		slog.Error("block export write failed", "error", err)
	}
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
