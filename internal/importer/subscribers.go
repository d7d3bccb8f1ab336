package importer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/malvinas3d/backoffice/internal/mapping"
	"github.com/malvinas3d/backoffice/internal/parse"
	"github.com/malvinas3d/backoffice/internal/store"
)

// cell returns the row value under an exactly-matched header, or "" when the
// column is absent or the cell is blank-equivalent.
func cell(idx mapping.Index, row []string, header string) string {
	pos, ok := idx.Lookup(header)
	if !ok || pos >= len(row) {
		return ""
	}
	v := row[pos]
	if parse.Blank(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

func setSubscriberField(s *store.Subscriber, field, raw string) {
	switch field {
	case "nombre":
		s.Name = raw
	case "apellido":
		s.Surname = raw
	case "nombre_institucion":
		s.InstitutionName = raw
	case "email":
		s.Email = raw
	case "telefono":
		s.Phone = parse.Phone(raw)
	case "calle":
		s.Street = raw
	case "numero":
		s.StreetNumber = raw
	case "piso_depto":
		s.Floor = raw
	case "codigo_postal":
		s.PostalCode = raw
	case "ciudad":
		s.City = raw
	case "provincia":
		s.Province = raw
	case "fecha_nacimiento":
		if t, ok := parse.Date(raw); ok {
			s.BirthDate = &t
		}
	case "dni":
		s.DocumentID = raw
	case "como_se_entero":
		s.HeardFrom = raw
	case "motivo_participacion":
		s.Motivation = raw
	}
}

func setPrinterField(p *store.PrinterProfile, field, raw string) {
	switch field {
	case "anios_experiencia":
		p.YearsExperience = parse.YearsExperience(raw)
	case "marcas_modelos_equipos":
		p.BrandsModels = raw
	case "materiales_uso":
		p.Materials = raw
	case "cantidad_equipos":
		p.UnitCount = parse.EquipmentCount(raw)
	case "dimension_maxima_impresion":
		p.MaxPrintDimension = raw
	case "software_uso":
		p.Software = raw
	}
}

// variantFor maps an import type to its capability variant and kind.
func variantFor(typ Type) (store.CapabilityVariant, store.Kind, bool) {
	switch typ {
	case IndividualWithPrinter:
		return store.IndividualWithPrinter, store.KindIndividual, true
	case IndividualWithoutPrinter:
		return store.IndividualWithoutPrinter, store.KindIndividual, false
	case InstitutionWithPrinter:
		return store.InstitutionWithPrinter, store.KindInstitution, true
	case InstitutionWithoutPrinter:
		return store.InstitutionWithoutPrinter, store.KindInstitution, false
	}
	return "", "", false
}

// importSubscribers handles the four form-export variants. Each row is its
// own transaction: a malformed row rolls back and the batch continues.
func (s *Service) importSubscribers(ctx context.Context, log *slog.Logger, grid [][]string, typ Type) (*Result, error) {
	variant, kind, withPrinter := variantFor(typ)

	columns := mapping.SubscriberColumns
	if kind == store.KindInstitution {
		columns = mapping.InstitutionColumns
	}

	idx := mapping.NewIndex(grid[0])
	if _, ok := idx.Lookup("Correo electrónico"); !ok {
		return nil, &MissingColumnError{Role: "owner-identifier (email)"}
	}

	res := &Result{}
	for i, row := range grid[1:] {
		rowNum := i + 2 // 1-based, after the header row

		sub := &store.Subscriber{Kind: kind}
		for header, field := range columns {
			if raw := cell(idx, row, header); raw != "" {
				setSubscriberField(sub, field, raw)
			}
		}
		if sub.Email == "" {
			log.Warn("row without email, skipping", "row", rowNum)
			res.addError(rowNum, "missing email")
			continue
		}
		if sub.InstitutionName != "" {
			sub.Name = truncate(sub.InstitutionName, 100)
		}

		err := s.store.InTx(ctx, func(st store.Store) error {
			created, err := st.UpsertSubscriber(ctx, sub)
			if err != nil {
				return err
			}

			capability := &store.Capability{SubscriberID: sub.ID, Variant: variant}
			if withPrinter {
				printer := &store.PrinterProfile{}
				for header, field := range mapping.PrinterColumns {
					if raw := cell(idx, row, header); raw != "" {
						setPrinterField(printer, field, raw)
					}
				}
				// Re-imports reuse the profile the subscriber already has;
				// a fresh row every run would orphan the previous one.
				prev, err := st.GetCapability(ctx, sub.ID)
				switch {
				case err == nil && prev.PrinterID != nil:
					printer.ID = *prev.PrinterID
					if err := st.UpdatePrinterProfile(ctx, printer); err != nil {
						return err
					}
				case err == nil || errors.Is(err, store.ErrNotFound):
					if err := st.CreatePrinterProfile(ctx, printer); err != nil {
						return err
					}
				default:
					return err
				}
				capability.PrinterID = &printer.ID
			}
			if kind == store.KindInstitution {
				for header, field := range mapping.ResponsibleColumns {
					raw := cell(idx, row, header)
					if raw == "" {
						continue
					}
					switch field {
					case "nombre_responsable":
						capability.ResponsibleName = raw
					case "dni_responsable":
						capability.ResponsibleDNI = raw
					}
				}
			}
			if err := st.UpsertCapability(ctx, capability); err != nil {
				return err
			}

			res.count(created)
			return nil
		})
		if err != nil {
			log.Error("row failed", "row", rowNum, "error", err)
			log.Debug("row payload", "row", rowNum, "cells", row)
			res.addError(rowNum, "%v", err)
		}
	}
	return res, nil
}

// truncate caps s at n characters, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
