package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malvinas3d/backoffice/internal/store"
)

var nodeHeader = []string{
	"Número/s de orden de 4 cifras:",
	"Numero/s de bloque/s de 2 cifras:",
	"Nombre del participante particular o institución:",
	"Correo electrónico:",
	"Teléfono:",
	"Calle:",
	"Numero:",
	"Codigo Postal:",
	"Localidad:",
	"Provincia:",
	"Seleccionar Nodo:",
	"Gran Buenos Aires:",
}

func TestImportNodes_ExistingSubscriber(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	sub := seedSubscriber(t, m, "ana@example.com", store.KindIndividual)

	grid := [][]string{
		nodeHeader,
		{
			"1234,0", "05", "Ana García", "ana@example.com", "'1155667788",
			"Av. Mitre", "350", "1870", "Avellaneda", "Buenos Aires",
			"Lo llevo a un nodo del Gran Buenos Aires", "Club Social de Lanús",
		},
	}
	res, err := svc.ImportGrid(ctx, grid, ReceivingNodes, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Zero(t, res.Errors)

	node, err := m.FirstNodeForSubscriber(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1234, node.OrderNumber)
	assert.Equal(t, "05", node.BlockNumber)
	assert.Equal(t, "GBA", node.SelectedNode)
	assert.Equal(t, "Club Social de Lanús", node.NodeDetails)
	assert.Equal(t, "Avellaneda", node.Locality)
	assert.Equal(t, "1155667788", node.Phone)
}

func TestImportNodes_AutoCreatesSubscriber(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	grid := [][]string{
		nodeHeader,
		{
			"", "07", "Juan Pérez", "juan@example.com", "",
			"", "", "", "Rawson", "Chubut",
			"", "",
		},
	}
	res, err := svc.ImportGrid(ctx, grid, ReceivingNodes, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	sub, err := m.GetSubscriberByEmail(ctx, "juan@example.com")
	require.NoError(t, err)
	assert.Equal(t, store.KindIndividual, sub.Kind)
	assert.Equal(t, "Juan Pérez", sub.Name)
	assert.Equal(t, "Rawson", sub.City)
	assert.Equal(t, "Chubut", sub.Province)
	assert.Equal(t, "0000000000", sub.Phone, "missing contact fields get placeholders")
	assert.Equal(t, "Sin datos", sub.Street)
	assert.Equal(t, "S/N", sub.StreetNumber)
	assert.Equal(t, "0000", sub.PostalCode)

	node, err := m.FirstNodeForSubscriber(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "PA", node.SelectedNode, "no selection and a non-BA province falls back to PA")
	assert.Equal(t, 1, node.OrderNumber, "order defaults to the data row index")
}

func TestImportNodes_ProvinceFallback(t *testing.T) {
	tests := []struct {
		province string
		want     string
	}{
		{"CABA", "CABA"},
		{"Ciudad de Buenos Aires", "CABA"},
		{"Buenos Aires", "PBA"},
		{"Córdoba", "PA"},
	}
	for _, tt := range tests {
		t.Run(tt.province, func(t *testing.T) {
			n := &store.Node{Province: tt.province, SelectedNode: "otro lado"}
			resolveNodeSelection(n, nil, nil)
			assert.Equal(t, tt.want, n.SelectedNode)
		})
	}
}

func TestImportNodes_PlaceholderBlockNumber(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	sub := seedSubscriber(t, m, "ana@example.com", store.KindIndividual)

	grid := [][]string{
		nodeHeader,
		{"", "", "Ana", "ana@example.com", "", "", "", "", "", "", "", ""},
	}
	res, err := svc.ImportGrid(ctx, grid, ReceivingNodes, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	node, err := m.FirstNodeForSubscriber(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "NO-BLOQUE-1", node.BlockNumber)
}

func TestImportNodes_RowWithoutEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	grid := [][]string{
		nodeHeader,
		{"", "05", "Ana", "", "", "", "", "", "", "", "", ""},
	}
	res, err := svc.ImportGrid(ctx, grid, ReceivingNodes, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Zero(t, res.Created)
}

func TestImportNodes_MissingEmailColumnIsBatchFatal(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	grid := [][]string{
		{"Numero/s de bloque/s de 2 cifras:"},
		{"05"},
	}
	_, err := svc.ImportGrid(ctx, grid, ReceivingNodes, "")
	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
}

// failingNodeStore makes every node write fail so the compensation path runs.
type failingNodeStore struct {
	store.Store
}

func (f *failingNodeStore) UpsertNode(context.Context, *store.Node) (bool, error) {
	return false, errors.New("constraint violation")
}

func TestImportNodes_CompensatingDelete(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	svc.store = &failingNodeStore{Store: m}

	grid := [][]string{
		nodeHeader,
		{"", "07", "Juan", "juan@example.com", "", "", "", "", "", "", "", ""},
	}
	res, err := svc.ImportGrid(ctx, grid, ReceivingNodes, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)

	// The auto-created subscriber was committed before the node write failed;
	// the compensation must have removed it again.
	_, err = m.GetSubscriberByEmail(ctx, "juan@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportNodes_ExistingSubscriberSurvivesNodeFailure(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	seedSubscriber(t, m, "ana@example.com", store.KindIndividual)
	svc.store = &failingNodeStore{Store: m}

	grid := [][]string{
		nodeHeader,
		{"", "05", "Ana", "ana@example.com", "", "", "", "", "", "", "", ""},
	}
	res, err := svc.ImportGrid(ctx, grid, ReceivingNodes, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)

	_, err = m.GetSubscriberByEmail(ctx, "ana@example.com")
	assert.NoError(t, err, "compensation only removes subscribers this row created")
}
