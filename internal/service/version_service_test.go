package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/smetaworks/estimate-api/internal/auth"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSnapshotNumbersAreDense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 15, 10, 20)
	env.createItem(t, doc.ID, nil, "Line", 10, 100)

	first, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{Label: "baseline"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.VersionNumber)
	assert.Equal(t, "baseline", first.Label)
	assert.Equal(t, 1250.0, first.Totals.Amount)
	assert.Equal(t, 1500.0, first.Totals.AmountWithVAT)

	second, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, second.VersionNumber)

	stored, err := env.docRepo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.VersionCount)
}

func TestCreateSnapshotRecordsUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := auth.WithUser(context.Background(), &auth.UserContext{ID: "user-1", Name: "Test User"})

	doc := env.createDocument(t, 0, 0, 0)
	snap, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)

	assert.Equal(t, "user-1", snap.CreatedByID)
	assert.Equal(t, "Test User", snap.CreatedByName)
}

func TestGetSnapshotReturnsTree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	sec := env.createSection(t, doc.ID, "Earthworks", nil)
	item := env.createItem(t, doc.ID, &sec.ID, "Excavation", 10, 50)
	env.createItem(t, doc.ID, nil, "Floating", 1, 5)

	created, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
	require.NoError(t, err)

	dto, tree, err := env.versions.Get(ctx, doc.ID, created.VersionNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, dto.ID)

	require.Len(t, tree.Sections, 1)
	require.Len(t, tree.Sections[0].Items, 1)
	assert.Equal(t, item.ID, tree.Sections[0].Items[0].ItemID)
	assert.Equal(t, 500.0, tree.Sections[0].Items[0].TotalAmount)
	require.Len(t, tree.Unassigned, 1)
	assert.Equal(t, "Floating", tree.Unassigned[0].Name)
}

func TestGetSnapshotUnknownVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	_, _, err := env.versions.Get(ctx, doc.ID, 7)
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.createDocument(t, 0, 0, 0)
	for i := 0; i < 3; i++ {
		_, err := env.versions.Create(ctx, doc.ID, domain.CreateSnapshotRequest{})
		require.NoError(t, err)
	}

	snaps, err := env.versions.List(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, 3, snaps[0].VersionNumber)
	assert.Equal(t, 1, snaps[2].VersionNumber)
}

func TestListSnapshotsUnknownDocument(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.List(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
}
