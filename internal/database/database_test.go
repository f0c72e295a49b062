package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingadmin/console/internal/session"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "nested", "console.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTokens(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.LoadToken("s1", "adminToken")
	assert.ErrorIs(t, err, session.ErrNoToken)

	require.NoError(t, db.SaveToken("s1", "adminToken", "first"))
	require.NoError(t, db.SaveToken("s1", "adminToken", "second"))
	require.NoError(t, db.SaveToken("s2", "adminToken", "other"))

	token, err := db.LoadToken("s1", "adminToken")
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	var count int64
	require.NoError(t, db.db.Model(&SessionToken{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	require.NoError(t, db.DeleteTokens("s1"))
	_, err = db.LoadToken("s1", "adminToken")
	assert.ErrorIs(t, err, session.ErrNoToken)

	token, err = db.LoadToken("s2", "adminToken")
	require.NoError(t, err)
	assert.Equal(t, "other", token)
}

func TestSessionContextOverDatabase(t *testing.T) {
	db := setupTestDB(t)
	ctx := session.New("browser-1", session.RoleAdmin, db, nil)

	assert.Empty(t, ctx.Token())
	require.NoError(t, ctx.Save("jwt"))
	assert.Equal(t, "jwt", ctx.Token())
	require.NoError(t, ctx.Clear())
	assert.Empty(t, ctx.Token())
}

func TestPurgeTokens(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.SaveToken("old", "adminToken", "a"))
	require.NoError(t, db.db.Model(&SessionToken{}).Where("session_id = ?", "old").
		Update("updated_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, db.SaveToken("new", "adminToken", "b"))

	n, err := db.PurgeTokens(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = db.LoadToken("new", "adminToken")
	assert.NoError(t, err)
}

func TestUploadFailures(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordUploadFailure(ctx, "properties", "a.pdf", "file type not allowed"))
	require.NoError(t, db.RecordUploadFailure(ctx, "listings", "b.png", "file too large"))
	require.NoError(t, db.RecordUploadFailure(ctx, "properties", "c.png", "bucket offline"))

	all, err := db.UploadFailures(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	props, err := db.UploadFailures(ctx, "properties", 0)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "c.png", props[0].File)

	limited, err := db.UploadFailures(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.RunMigrations())
}

func TestSaveUploadFailures(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveUploadFailures(ctx, nil))
	require.NoError(t, db.SaveUploadFailures(ctx, []UploadFailure{
		{Resource: "properties", File: "a.pdf", Reason: "file type not allowed"},
		{Resource: "properties", File: "b.png", Reason: "file too large"},
	}))

	all, err := db.UploadFailures(ctx, "properties", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPruneUploadFailures(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordUploadFailure(ctx, "properties", "old.pdf", "bucket offline"))
	require.NoError(t, db.db.Model(&UploadFailure{}).Where("file = ?", "old.pdf").
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, db.RecordUploadFailure(ctx, "properties", "new.pdf", "bucket offline"))

	n, err := db.PruneUploadFailures(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := db.UploadFailures(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new.pdf", left[0].File)
}
