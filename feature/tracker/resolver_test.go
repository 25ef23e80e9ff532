package tracker

import (
	"testing"
	"time"

	"lobby-tracker/feature/tracker/journal"
	"lobby-tracker/feature/tracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func handle(major, minor uint16) journal.DocumentHandle {
	return journal.DocumentHandle{ID: 42, Name: "Lost Caverns", MajorVersion: major, MinorVersion: minor}
}

func currentVersion(t *testing.T, w *Worker) (uint16, uint16) {
	var doc models.Document
	require.NoError(t, w.db.Where("bnet_id = ?", 42).First(&doc).Error)
	require.NotNil(t, doc.CurrentMajorVersion)
	require.NotNil(t, doc.CurrentMinorVersion)
	return *doc.CurrentMajorVersion, *doc.CurrentMinorVersion
}

func TestDocumentVersionWatermark(t *testing.T) {
	db := setupTestDB(t, "doc_watermark")
	w := New(models.RegionUS, db, zap.NewNop())

	_, err := w.documentVersion(handle(1, 0), models.DocumentMap, "Melee")
	require.NoError(t, err)
	major, minor := currentVersion(t, w)
	assert.Equal(t, [2]uint16{1, 0}, [2]uint16{major, minor})

	_, err = w.documentVersion(handle(1, 2), models.DocumentMap, "")
	require.NoError(t, err)
	major, minor = currentVersion(t, w)
	assert.Equal(t, [2]uint16{1, 2}, [2]uint16{major, minor})

	// an older version is still recorded but must not move the watermark
	id, err := w.documentVersion(handle(1, 1), models.DocumentMap, "")
	require.NoError(t, err)
	require.NotNil(t, id)
	major, minor = currentVersion(t, w)
	assert.Equal(t, [2]uint16{1, 2}, [2]uint16{major, minor})

	var versions int64
	require.NoError(t, db.Model(&models.DocumentVersion{}).Count(&versions).Error)
	assert.EqualValues(t, 3, versions)
}

func TestDocumentVersionZeroHandle(t *testing.T) {
	db := setupTestDB(t, "doc_zero")
	w := New(models.RegionUS, db, zap.NewNop())

	id, err := w.documentVersion(journal.DocumentHandle{}, models.DocumentExtensionMod, "")
	require.NoError(t, err)
	assert.Nil(t, id)

	var docs int64
	require.NoError(t, db.Model(&models.Document{}).Count(&docs).Error)
	assert.Zero(t, docs)
}

func TestDocumentVersionCached(t *testing.T) {
	db := setupTestDB(t, "doc_cached")
	w := New(models.RegionUS, db, zap.NewNop())

	first, err := w.documentVersion(handle(2, 0), models.DocumentMap, "Melee")
	require.NoError(t, err)
	second, err := w.documentVersion(handle(2, 0), models.DocumentMap, "Melee")
	require.NoError(t, err)
	assert.Equal(t, *first, *second)

	var versions int64
	require.NoError(t, db.Model(&models.DocumentVersion{}).Count(&versions).Error)
	assert.EqualValues(t, 1, versions)
}

func TestProfileRenameOnlyByNewerData(t *testing.T) {
	db := setupTestDB(t, "profile_rename")
	w := New(models.RegionUS, db, zap.NewNop())

	t1 := baseTime
	t2 := baseTime.Add(time.Minute)

	p, err := w.profile(&journal.ProfileRef{RealmID: 1, ProfileID: 10, Name: "Alice", Discriminator: 100}, t1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)

	// stale rename, same timestamp: keep the stored name
	p, err = w.profile(&journal.ProfileRef{RealmID: 1, ProfileID: 10, Name: "Alicia", Discriminator: 100}, t1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)

	p, err = w.profile(&journal.ProfileRef{RealmID: 1, ProfileID: 10, Name: "Alicia", Discriminator: 100}, t2)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", p.Name)

	var stored models.Profile
	require.NoError(t, db.Where("realm_id = ? AND bnet_profile_id = ?", 1, 10).First(&stored).Error)
	assert.Equal(t, "Alicia", stored.Name)
	require.NotNil(t, stored.UpdatedAt)
	assert.WithinDuration(t, t2, *stored.UpdatedAt, time.Second)

	var profiles int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&profiles).Error)
	assert.EqualValues(t, 1, profiles)
}
