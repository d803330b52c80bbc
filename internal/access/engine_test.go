package access

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustshare/trustshare/internal/apperr"
	"github.com/trustshare/trustshare/internal/models"
	"github.com/trustshare/trustshare/internal/notify"
	"github.com/trustshare/trustshare/internal/testutil"
)

func seedFile(t *testing.T, db *gorm.DB, owner uuid.UUID, expiresAt *time.Time) *models.File {
	t.Helper()
	file := &models.File{
		ID:           uuid.New(),
		OwnerID:      owner,
		OriginalName: "doc.pdf",
		Size:         10,
		BlobKey:      "key",
		ExpiresAt:    expiresAt,
	}
	require.NoError(t, db.Create(file).Error)
	return file
}

func newTestEngine(t *testing.T, ownerBypass bool) (*Engine, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	engine := NewEngine(db, notify.NewTracker(db), testutil.NewLogger(), ownerBypass)
	return engine, db
}

func TestOwnerCanAccess(t *testing.T) {
	engine, db := newTestEngine(t, false)
	owner := uuid.New()
	file := seedFile(t, db, owner, nil)

	got, err := engine.CanAccess(context.Background(), file.ID, owner, "")
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
}

func TestStrangerIsForbidden(t *testing.T) {
	engine, db := newTestEngine(t, false)
	file := seedFile(t, db, uuid.New(), nil)

	_, err := engine.CanAccess(context.Background(), file.ID, uuid.New(), "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUnknownFileIsNotFound(t *testing.T) {
	engine, _ := newTestEngine(t, false)

	_, err := engine.CanAccess(context.Background(), uuid.New(), uuid.New(), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGrantAllowsRecipient(t *testing.T) {
	engine, db := newTestEngine(t, false)
	owner, recipient := uuid.New(), uuid.New()
	file := seedFile(t, db, owner, nil)

	require.NoError(t, engine.Grant(context.Background(), file.ID, owner, []uuid.UUID{recipient}))

	_, err := engine.CanAccess(context.Background(), file.ID, recipient, "")
	assert.NoError(t, err)
}

func TestGrantIsIdempotent(t *testing.T) {
	engine, db := newTestEngine(t, false)
	owner, recipient := uuid.New(), uuid.New()
	file := seedFile(t, db, owner, nil)

	require.NoError(t, engine.Grant(context.Background(), file.ID, owner, []uuid.UUID{recipient}))
	require.NoError(t, engine.Grant(context.Background(), file.ID, owner, []uuid.UUID{recipient}))

	var count int64
	require.NoError(t, db.Model(&models.Grant{}).
		Where("file_id = ? AND user_id = ?", file.ID, recipient).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGrantRequiresOwnership(t *testing.T) {
	engine, db := newTestEngine(t, false)
	file := seedFile(t, db, uuid.New(), nil)

	err := engine.Grant(context.Background(), file.ID, uuid.New(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGrantUnknownFile(t *testing.T) {
	engine, _ := newTestEngine(t, false)

	err := engine.Grant(context.Background(), uuid.New(), uuid.New(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGrantNoRecipients(t *testing.T) {
	engine, db := newTestEngine(t, false)
	owner := uuid.New()
	file := seedFile(t, db, owner, nil)

	err := engine.Grant(context.Background(), file.ID, owner, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestExpiredFileIsGoneForEveryone(t *testing.T) {
	engine, db := newTestEngine(t, false)
	owner, recipient := uuid.New(), uuid.New()
	expiry := time.Now().Add(time.Hour)
	file := seedFile(t, db, owner, &expiry)
	require.NoError(t, engine.Grant(context.Background(), file.ID, owner, []uuid.UUID{recipient}))

	engine.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	for _, userID := range []uuid.UUID{owner, recipient, uuid.New()} {
		_, err := engine.CanAccess(context.Background(), file.ID, userID, "")
		assert.ErrorIs(t, err, apperr.ErrGone)
	}
}

func TestOwnerBypassExpiry(t *testing.T) {
	engine, db := newTestEngine(t, true)
	owner, recipient := uuid.New(), uuid.New()
	expiry := time.Now().Add(time.Hour)
	file := seedFile(t, db, owner, &expiry)
	require.NoError(t, engine.Grant(context.Background(), file.ID, owner, []uuid.UUID{recipient}))

	engine.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := engine.CanAccess(context.Background(), file.ID, owner, "")
	assert.NoError(t, err, "owner bypass should let the owner through")

	_, err = engine.CanAccess(context.Background(), file.ID, recipient, "")
	assert.ErrorIs(t, err, apperr.ErrGone, "bypass is owner-only")
}

func TestGrantOnExpiredFile(t *testing.T) {
	engine, db := newTestEngine(t, false)
	owner := uuid.New()
	expiry := time.Now().Add(-time.Minute)
	file := seedFile(t, db, owner, &expiry)

	err := engine.Grant(context.Background(), file.ID, owner, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, apperr.ErrGone)
}

func TestShareTokenOpensOnlyBoundFile(t *testing.T) {
	engine, db := newTestEngine(t, false)
	owner := uuid.New()
	file := seedFile(t, db, owner, nil)
	other := seedFile(t, db, owner, nil)

	link := models.ShareLink{ID: uuid.New(), FileID: file.ID, Token: "tok-abc"}
	require.NoError(t, db.Create(&link).Error)

	stranger := uuid.New()
	_, err := engine.CanAccess(context.Background(), file.ID, stranger, "tok-abc")
	assert.NoError(t, err)

	_, err = engine.CanAccess(context.Background(), other.ID, stranger, "tok-abc")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestExpiredShareTokenDenied(t *testing.T) {
	engine, db := newTestEngine(t, false)
	file := seedFile(t, db, uuid.New(), nil)

	past := time.Now().Add(-time.Minute)
	link := models.ShareLink{ID: uuid.New(), FileID: file.ID, Token: "tok-old", ExpiresAt: &past}
	require.NoError(t, db.Create(&link).Error)

	_, err := engine.CanAccess(context.Background(), file.ID, uuid.New(), "tok-old")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRevokedShareTokenDenied(t *testing.T) {
	engine, db := newTestEngine(t, false)
	file := seedFile(t, db, uuid.New(), nil)

	link := models.ShareLink{ID: uuid.New(), FileID: file.ID, Token: "tok-rev", Revoked: true}
	require.NoError(t, db.Create(&link).Error)

	_, err := engine.CanAccess(context.Background(), file.ID, uuid.New(), "tok-rev")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGrantNotifiesRecipient(t *testing.T) {
	db := testutil.NewDB(t)
	tracker := notify.NewTracker(db)
	engine := NewEngine(db, tracker, testutil.NewLogger(), false)

	owner, recipient := uuid.New(), uuid.New()
	file := seedFile(t, db, owner, nil)

	require.NoError(t, engine.Grant(context.Background(), file.ID, owner, []uuid.UUID{recipient}))

	pending, err := tracker.PendingFor(context.Background(), recipient)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, file.ID, pending[0].ID)
}
