package service_test

import (
	"context"
	"testing"

	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareSameVersionIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	env.createItem(t, doc.ID, nil, "Stable", 1, 10)
	v1, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)

	result, err := env.diffs.Compare(ctx, doc.ID, v1.VersionNumber, v1.VersionNumber)
	require.NoError(t, err)
	assert.Equal(t, 0, result.AddedCount)
	assert.Equal(t, 0, result.RemovedCount)
	assert.Equal(t, 0, result.ChangedCount)
	assert.Equal(t, 1, result.UnchangedCount)
	assert.Equal(t, 0.0, result.TotalDelta)
}

func TestCompareUnknownVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	_, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)

	_, err = env.diffs.Compare(ctx, doc.ID, 1, 9)
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)
}

func TestCompareDetectsAddedRemovedChanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	sec := env.createSection(t, doc.ID, "Section", nil)
	kept := env.createItem(t, doc.ID, &sec.ID, "Kept", 10, 100)
	removed := env.createItem(t, doc.ID, &sec.ID, "Removed", 1, 50)

	v1, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)

	// raise the price of one item, delete another, add a third
	_, err = env.docs.UpdateItem(ctx, doc.ID, kept.ID, domain.UpdateItemRequest{
		Name: "Kept", Quantity: 10, UnitPrice: 120,
	})
	require.NoError(t, err)
	require.NoError(t, env.docs.DeleteItem(ctx, doc.ID, removed.ID))
	added := env.createItem(t, doc.ID, &sec.ID, "Added", 2, 30)

	v2, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)

	result, err := env.diffs.Compare(ctx, doc.ID, v1.VersionNumber, v2.VersionNumber)
	require.NoError(t, err)

	assert.Equal(t, 1, result.AddedCount)
	assert.Equal(t, 1, result.RemovedCount)
	assert.Equal(t, 1, result.ChangedCount)
	assert.Equal(t, 0, result.UnchangedCount)

	require.Len(t, result.Added, 1)
	assert.Equal(t, added.ID, result.Added[0].ItemID)
	require.Len(t, result.Removed, 1)
	assert.Equal(t, removed.ID, result.Removed[0].ItemID)

	require.Len(t, result.Changed, 1)
	change := result.Changed[0]
	assert.Equal(t, kept.ID, change.ItemID)

	fields := map[string]domain.FieldChange{}
	for _, fc := range change.Changes {
		fields[fc.Field] = fc
	}
	priceChange, ok := fields["unitPrice"]
	require.True(t, ok)
	assert.Equal(t, 100.0, priceChange.Before)
	assert.Equal(t, 120.0, priceChange.After)
	require.NotNil(t, priceChange.Delta)
	assert.Equal(t, 20.0, *priceChange.Delta)
	require.NotNil(t, priceChange.DeltaPercent)
	assert.Equal(t, 20.0, *priceChange.DeltaPercent)

	totalChange, ok := fields["totalAmount"]
	require.True(t, ok)
	assert.Equal(t, 1000.0, totalChange.Before)
	assert.Equal(t, 1200.0, totalChange.After)

	// v1: 1000 + 50 = 1050, v2: 1200 + 60 = 1260
	assert.Equal(t, 210.0, result.TotalDelta)
	require.NotNil(t, result.TotalDeltaPercent)
	assert.Equal(t, 20.0, *result.TotalDeltaPercent)
}

func TestCompareUnchangedItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	env.createItem(t, doc.ID, nil, "Stable", 1, 10)

	v1, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)
	v2, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)

	result, err := env.diffs.Compare(ctx, doc.ID, v1.VersionNumber, v2.VersionNumber)
	require.NoError(t, err)
	assert.Equal(t, 0, result.AddedCount)
	assert.Equal(t, 0, result.RemovedCount)
	assert.Equal(t, 0, result.ChangedCount)
	assert.Equal(t, 1, result.UnchangedCount)
	assert.Equal(t, 0.0, result.TotalDelta)
	require.NotNil(t, result.TotalDeltaPercent)
	assert.Equal(t, 0.0, *result.TotalDeltaPercent)
}
