package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/malvinas3d/backoffice/internal/mapping"
	"github.com/malvinas3d/backoffice/internal/parse"
	"github.com/malvinas3d/backoffice/internal/store"
)

// Placeholder values for required subscriber fields when a node row names an
// email the store has never seen. These match what operators expect to spot
// and fill in later from the admin listing.
const (
	unknownPhone  = "0000000000"
	unknownText   = "Sin datos"
	unknownNumber = "S/N"
	unknownPostal = "0000"
)

// Drop-off areas in form order. Only the area the respondent picked carries
// their free-text answer, under the matching detail column.
var nodeAreas = []struct {
	code         string
	phrase       string
	detailHeader string
}{
	{"CABA", "Ciudad de Buenos Aires", "Ciudad de Buenos Aires:"},
	{"GBA", "Gran Buenos Aires", "Gran Buenos Aires:"},
	{"PBA", "Provincia de Buenos Aires", "Provincia de Buenos Aires"},
	{"PA", "Provincias Argentinas", "Provincias Argentinas"},
}

func setNodeField(n *store.Node, field, raw string) {
	switch field {
	case "numero_orden":
		if v, ok := parse.OrderNumber(raw); ok {
			n.OrderNumber = v
		}
	case "numero_bloque":
		n.BlockNumber = raw
	case "responsable_impresion":
		n.ResponsibleName = raw
	case "calle":
		n.Street = raw
	case "numero":
		n.StreetNumber = raw
	case "codigo_postal":
		n.PostalCode = raw
	case "localidad":
		n.Locality = raw
	case "departamento":
		n.Department = raw
	case "provincia":
		n.Province = raw
	case "telefono":
		n.Phone = parse.Phone(raw)
	case "email":
		n.Email = raw
	case "nodo_seleccionado":
		n.SelectedNode = raw
	}
}

// resolveNodeSelection folds the free-text "select a node" answer down to one
// of CABA/GBA/PBA/PA and pulls the matching detail column. Answers that name
// none of the areas fall back to the respondent's province.
func resolveNodeSelection(n *store.Node, idx mapping.Index, row []string) {
	for _, area := range nodeAreas {
		if !strings.Contains(n.SelectedNode, area.phrase) {
			continue
		}
		n.SelectedNode = area.code
		if detail := cell(idx, row, area.detailHeader); detail != "" {
			n.NodeDetails = detail
		}
		return
	}
	n.SelectedNode = nodeFromProvince(n.Province)
}

func nodeFromProvince(province string) string {
	switch strings.ToUpper(strings.TrimSpace(province)) {
	case "CABA", "CIUDAD DE BUENOS AIRES":
		return "CABA"
	case "BUENOS AIRES":
		return "PBA"
	}
	return "PA"
}

// importNodes reconciles receiving-node nominations. A row naming an unknown
// email auto-creates a minimal subscriber; if the node itself then fails to
// persist, the auto-created subscriber is deleted again so no orphan survives
// the row.
func (s *Service) importNodes(ctx context.Context, log *slog.Logger, grid [][]string) (*Result, error) {
	idx := mapping.NewIndex(grid[0])
	if _, ok := idx.Lookup("Correo electrónico:"); !ok {
		return nil, &MissingColumnError{Role: "owner-identifier (email)"}
	}

	res := &Result{}
	for i, row := range grid[1:] {
		rowNum := i + 2

		email := cell(idx, row, "Correo electrónico:")
		if email == "" {
			log.Warn("row without email, skipping", "row", rowNum)
			res.addError(rowNum, "missing email")
			continue
		}

		if err := s.importNodeRow(ctx, log, idx, row, rowNum, email, res); err != nil {
			log.Error("row failed", "row", rowNum, "error", err)
			log.Debug("row payload", "row", rowNum, "cells", row)
			res.addError(rowNum, "%v", err)
		}
	}
	return res, nil
}

func (s *Service) importNodeRow(ctx context.Context, log *slog.Logger, idx mapping.Index, row []string, rowNum int, email string, res *Result) error {
	sub, err := s.store.GetSubscriberByEmail(ctx, email)
	autoCreated := false
	switch {
	case errors.Is(err, store.ErrNotFound):
		sub = s.minimalSubscriber(idx, row, email)
		if _, err := s.store.UpsertSubscriber(ctx, sub); err != nil {
			return fmt.Errorf("auto-create subscriber: %w", err)
		}
		autoCreated = true
		log.Info("auto-created subscriber for node row", "row", rowNum, "email", email)
	case err != nil:
		return err
	}

	node := &store.Node{SubscriberID: sub.ID}
	for header, field := range mapping.NodeColumns {
		if raw := cell(idx, row, header); raw != "" {
			setNodeField(node, field, raw)
		}
	}
	resolveNodeSelection(node, idx, row)

	if node.BlockNumber == "" {
		node.BlockNumber = fmt.Sprintf("NO-BLOQUE-%d", rowNum-1)
		log.Warn("node row without block number, assigning placeholder", "row", rowNum)
	}
	if node.OrderNumber == 0 {
		node.OrderNumber = rowNum - 1
	}

	created, err := s.store.UpsertNode(ctx, node)
	if err != nil {
		// The subscriber was committed in its own step, so rollback cannot
		// undo it. Compensate explicitly.
		if autoCreated {
			if delErr := s.store.DeleteSubscriber(ctx, sub.ID); delErr != nil {
				log.Error("compensating delete failed", "row", rowNum, "email", email, "error", delErr)
			} else {
				log.Warn("deleted auto-created subscriber after node failure", "row", rowNum, "email", email)
			}
		}
		return fmt.Errorf("persist node: %w", err)
	}

	res.count(created)
	return nil
}

// minimalSubscriber builds the placeholder subscriber a node row implies,
// seeded from whatever contact fields the nomination form carries.
func (s *Service) minimalSubscriber(idx mapping.Index, row []string, email string) *store.Subscriber {
	sub := &store.Subscriber{
		Email:        email,
		Kind:         store.KindIndividual,
		Name:         truncate(cell(idx, row, mapping.NodeParticipantHeader), 100),
		Phone:        unknownPhone,
		Street:       unknownText,
		StreetNumber: unknownNumber,
		PostalCode:   unknownPostal,
		City:         unknownText,
		Province:     unknownText,
	}
	if v := parse.Phone(cell(idx, row, "Teléfono:")); v != "" {
		sub.Phone = v
	}
	if v := cell(idx, row, "Calle:"); v != "" {
		sub.Street = v
	}
	if v := cell(idx, row, "Numero:"); v != "" {
		sub.StreetNumber = v
	}
	if v := cell(idx, row, "Codigo Postal:"); v != "" {
		sub.PostalCode = v
	}
	if v := cell(idx, row, "Localidad:"); v != "" {
		sub.City = v
	}
	if v := cell(idx, row, "Provincia:"); v != "" {
		sub.Province = v
	}
	return sub
}
