package importer

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malvinas3d/backoffice/internal/store"
)

func TestImportSubscribers_IndividualWithPrinter(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	grid := [][]string{
		{
			"Nombre y Apellido: Nombre", "Nombre y Apellido: Apellidos",
			"Correo electrónico", "Teléfono", "Fecha de nacimiento", "DNI",
			"¿Cuántos años hace que trabajás con esta tecnología?",
			"¿Cuántos equipos tenés?", "¿Qué materiales usás regularmente?",
		},
		{
			"Ana", "García", "ana@example.com", "'1155667788", "18/02/1985",
			"30111222", "3 años", "dos", "PLA y PETG",
		},
	}
	res, err := svc.ImportGrid(ctx, grid, IndividualWithPrinter, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Zero(t, res.Errors)

	sub, err := m.GetSubscriberByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, store.KindIndividual, sub.Kind)
	assert.Equal(t, "Ana", sub.Name)
	assert.Equal(t, "García", sub.Surname)
	assert.Equal(t, "1155667788", sub.Phone, "the apostrophe artifact is stripped")
	assert.Equal(t, "30111222", sub.DocumentID)
	require.NotNil(t, sub.BirthDate)
	assert.Equal(t, time.Date(1985, 2, 18, 0, 0, 0, 0, time.UTC), *sub.BirthDate)

	capability, err := m.GetCapability(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IndividualWithPrinter, capability.Variant)
	assert.NotNil(t, capability.PrinterID, "with-printer variants get a printer profile")
}

func TestImportSubscribers_InstitutionWithoutPrinter(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	grid := [][]string{
		{
			"Nombre de la Institución", "Correo electrónico",
			"Nombre y Apellido del responsable", "DNI", "Provincia",
		},
		{
			"Escuela Técnica N°12", "escuela@example.com",
			"Marta López", "20333444", "Chubut",
		},
	}
	res, err := svc.ImportGrid(ctx, grid, InstitutionWithoutPrinter, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	sub, err := m.GetSubscriberByEmail(ctx, "escuela@example.com")
	require.NoError(t, err)
	assert.Equal(t, store.KindInstitution, sub.Kind)
	assert.Equal(t, "Escuela Técnica N°12", sub.InstitutionName)
	assert.Equal(t, "Escuela Técnica N°12", sub.Name, "institutions list under their name")
	assert.Equal(t, "Chubut", sub.Province)

	capability, err := m.GetCapability(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, store.InstitutionWithoutPrinter, capability.Variant)
	assert.Nil(t, capability.PrinterID)
	assert.Equal(t, "Marta López", capability.ResponsibleName)
	assert.Equal(t, "20333444", capability.ResponsibleDNI)
}

func TestImportSubscribers_ReimportReplacesVariant(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	withPrinter := [][]string{
		{"Nombre y Apellido: Nombre", "Correo electrónico", "¿Cuántos equipos tenés?"},
		{"Ana", "ana@example.com", "1"},
	}
	res, err := svc.ImportGrid(ctx, withPrinter, IndividualWithPrinter, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	withoutPrinter := [][]string{
		{"Nombre y Apellido: Nombre", "Correo electrónico"},
		{"Ana María", "ana@example.com"},
	}
	res, err = svc.ImportGrid(ctx, withoutPrinter, IndividualWithoutPrinter, "")
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 1, res.Updated)

	sub, err := m.GetSubscriberByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana María", sub.Name)

	capability, err := m.GetCapability(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IndividualWithoutPrinter, capability.Variant)
	assert.Nil(t, capability.PrinterID)
}

func TestImportSubscribers_ReimportKeepsPrinterProfile(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	grid := [][]string{
		{
			"Nombre y Apellido: Nombre", "Correo electrónico",
			"¿Cuántos equipos tenés?", "¿Qué materiales usás regularmente?",
		},
		{"Ana", "ana@example.com", "1", "PLA"},
	}
	res, err := svc.ImportGrid(ctx, grid, IndividualWithPrinter, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	sub, err := m.GetSubscriberByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	first, err := m.GetCapability(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, first.PrinterID)

	grid[1][3] = "PLA y PETG"
	res, err = svc.ImportGrid(ctx, grid, IndividualWithPrinter, "")
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 1, res.Updated)

	second, err := m.GetCapability(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, second.PrinterID)
	assert.Equal(t, *first.PrinterID, *second.PrinterID, "re-imports update the profile in place")
}

func TestImportSubscribers_TruncatesNameOnRuneBoundary(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	name := strings.Repeat("ñ", 120)
	grid := [][]string{
		{"Nombre de la Institución", "Correo electrónico"},
		{name, "escuela@example.com"},
	}
	res, err := svc.ImportGrid(ctx, grid, InstitutionWithoutPrinter, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	sub, err := m.GetSubscriberByEmail(ctx, "escuela@example.com")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(sub.Name))
	assert.Equal(t, strings.Repeat("ñ", 100), sub.Name)
}

func TestImportSubscribers_MissingEmailColumnIsBatchFatal(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	grid := [][]string{
		{"Nombre y Apellido: Nombre", "Teléfono"},
		{"Ana", "1155667788"},
	}
	_, err := svc.ImportGrid(ctx, grid, IndividualWithoutPrinter, "")
	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)

	subs, err := m.ListSubscribers(ctx, store.SubscriberFilter{})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestImportSubscribers_RowWithoutEmailContinues(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	grid := [][]string{
		{"Nombre y Apellido: Nombre", "Correo electrónico"},
		{"Sin Correo", ""},
		{"Ana", "ana@example.com"},
	}
	res, err := svc.ImportGrid(ctx, grid, IndividualWithoutPrinter, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 2, res.RowErrors[0].Row)

	_, err = m.GetSubscriberByEmail(ctx, "ana@example.com")
	assert.NoError(t, err, "the batch continues past the bad row")
}
