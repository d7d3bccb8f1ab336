package importer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/malvinas3d/backoffice/internal/sheet"
	"github.com/malvinas3d/backoffice/internal/store"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
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
	path := filepath.Join(t.TempDir(), "tracker.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReviewStates_ReportsDivergences(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	sub := seedSubscriber(t, m, "ana@example.com", store.KindIndividual)

	// Stored states deliberately out of step with the tracker.
	assigned := &store.Block{Code: "05-01", SubscriberID: &sub.ID}
	assigned.ApplyState(store.StateAssigned, testNow)
	_, err := m.UpsertBlock(ctx, assigned)
	require.NoError(t, err)

	validated := &store.Block{Code: "05-02", SubscriberID: &sub.ID}
	validated.ApplyState(store.StatePhotoValidated, testNow)
	_, err = m.UpsertBlock(ctx, validated)
	require.NoError(t, err)

	inSync := &store.Block{Code: "05-03", SubscriberID: &sub.ID}
	inSync.ApplyState(store.StateAssigned, testNow)
	_, err = m.UpsertBlock(ctx, inSync)
	require.NoError(t, err)

	path := writeWorkbook(t, [][]string{
		trackerHeader,
		trackerRow("05-01", "ana@example.com", "", "", "", "1", ""),
		trackerRow("05-02", "", "", "", "", "", ""),
		trackerRow("05-03", "ana@example.com", "", "", "", "", ""),
		trackerRow("05-04", "ana@example.com", "1", "", "", "", ""),
	})

	review, err := svc.ReviewStates(ctx, path, sheet.Selector{}, false)
	require.NoError(t, err)

	assert.Equal(t, 4, review.Checked)
	assert.Equal(t, []string{"05-04"}, review.Missing)
	assert.Zero(t, review.Applied)
	assert.Equal(t, 1, review.ByState[store.StateDiplomaDone])
	assert.Equal(t, 1, review.ByState[store.StateFree])
	assert.Equal(t, 1, review.ByState[store.StateAssigned])
	assert.Equal(t, 1, review.ByState[store.StatePhotoValidated])

	require.Len(t, review.Diffs, 2)
	assert.Equal(t, StateDiff{Code: "05-01", Stored: store.StateAssigned, Resolved: store.StateDiplomaDone}, review.Diffs[0])
	assert.Equal(t, StateDiff{Code: "05-02", Stored: store.StatePhotoValidated, Resolved: store.StateFree}, review.Diffs[1])

	// Dry run: nothing moved.
	b, err := m.GetBlockByCode(ctx, "05-01")
	require.NoError(t, err)
	assert.Equal(t, store.StateAssigned, b.State)
}

func TestReviewStates_Apply(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	sub := seedSubscriber(t, m, "ana@example.com", store.KindIndividual)

	assigned := &store.Block{Code: "05-01", SubscriberID: &sub.ID}
	assigned.ApplyState(store.StateAssigned, testNow)
	_, err := m.UpsertBlock(ctx, assigned)
	require.NoError(t, err)

	stale := &store.Block{Code: "05-02", SubscriberID: &sub.ID}
	stale.ApplyState(store.StateReceivedByOrg, testNow)
	_, err = m.UpsertBlock(ctx, stale)
	require.NoError(t, err)

	path := writeWorkbook(t, [][]string{
		trackerHeader,
		trackerRow("05-01", "ana@example.com", "", "", "", "1", ""),
		trackerRow("05-02", "", "", "", "", "", ""),
	})

	review, err := svc.ReviewStates(ctx, path, sheet.Selector{}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, review.Applied)

	b, err := m.GetBlockByCode(ctx, "05-01")
	require.NoError(t, err)
	assert.Equal(t, store.StateDiplomaDone, b.State)
	require.NotNil(t, b.AssignedAt)
	assert.Equal(t, testNow, *b.AssignedAt, "existing milestones survive the correction")
	assert.NotNil(t, b.DiplomaAt)

	b, err = m.GetBlockByCode(ctx, "05-02")
	require.NoError(t, err)
	assert.Equal(t, store.StateFree, b.State)
	assert.Nil(t, b.ReceivedAt)
}

func TestReviewStates_ApplyLinksOwner(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	sub := seedSubscriber(t, m, "ana@example.com", store.KindIndividual)

	ownerless := &store.Block{Code: "07-01"}
	_, err := m.UpsertBlock(ctx, ownerless)
	require.NoError(t, err)

	unknown := &store.Block{Code: "07-02"}
	_, err = m.UpsertBlock(ctx, unknown)
	require.NoError(t, err)

	path := writeWorkbook(t, [][]string{
		trackerHeader,
		trackerRow("07-01", "ana@example.com", "1", "", "", "", ""),
		trackerRow("07-02", "ghost@example.com", "1", "", "", "", ""),
	})

	review, err := svc.ReviewStates(ctx, path, sheet.Selector{}, true)
	require.NoError(t, err)
	require.Len(t, review.Diffs, 2)
	assert.Equal(t, 1, review.Applied, "rows without a known subscriber are skipped")

	b, err := m.GetBlockByCode(ctx, "07-01")
	require.NoError(t, err)
	assert.Equal(t, store.StatePhotoValidated, b.State)
	require.NotNil(t, b.SubscriberID, "applying a state links the tracker row's subscriber")
	assert.Equal(t, sub.ID, *b.SubscriberID)

	b, err = m.GetBlockByCode(ctx, "07-02")
	require.NoError(t, err)
	assert.Equal(t, store.StateFree, b.State)
	assert.Nil(t, b.SubscriberID)
}

func TestCorrectUnassignedBlocks(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	sub := seedSubscriber(t, m, "ana@example.com", store.KindIndividual)

	orphan := &store.Block{Code: "09-01"}
	orphan.ApplyState(store.StateDeliveredToNode, testNow)
	_, err := m.UpsertBlock(ctx, orphan)
	require.NoError(t, err)

	owned := &store.Block{Code: "09-02", SubscriberID: &sub.ID}
	owned.ApplyState(store.StateAssigned, testNow)
	_, err = m.UpsertBlock(ctx, owned)
	require.NoError(t, err)

	correction, err := svc.CorrectUnassignedBlocks(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"09-01"}, correction.Codes)
	assert.False(t, correction.Applied)

	b, err := m.GetBlockByCode(ctx, "09-01")
	require.NoError(t, err)
	assert.Equal(t, store.StateDeliveredToNode, b.State, "dry run changes nothing")

	correction, err = svc.CorrectUnassignedBlocks(ctx, true)
	require.NoError(t, err)
	assert.True(t, correction.Applied)

	b, err = m.GetBlockByCode(ctx, "09-01")
	require.NoError(t, err)
	assert.Equal(t, store.StateFree, b.State)
	assert.Nil(t, b.DeliveredAt)

	b, err = m.GetBlockByCode(ctx, "09-02")
	require.NoError(t, err)
	assert.Equal(t, store.StateAssigned, b.State, "owned blocks are untouched")

	correction, err = svc.CorrectUnassignedBlocks(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, correction.Codes)
	assert.False(t, correction.Applied, "nothing to apply once clean")
}
