package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"returnremind/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormStore_TransitionReminderSent(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE "reminder" SET "sent_at"=\$1,"status"=\$2 WHERE id = \$3 AND status = \$4`).
		WithArgs(sqlmock.AnyArg(), "sent", "r1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.TransitionReminder(context.Background(), "r1", models.StatusSent, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_TransitionReminderConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "reminder" SET "status"=\$1 WHERE id = \$2 AND status = \$3`).
		WithArgs("skipped", "r1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.TransitionReminder(context.Background(), "r1", models.StatusSkipped, time.Now())
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_TransitionReminderRejectsPending(t *testing.T) {
	s, mock := newMockStore(t)

	err := s.TransitionReminder(context.Background(), "r1", models.StatusPending, time.Now())
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListDueReminders(t *testing.T) {
	s, mock := newMockStore(t)
	until := time.Date(2024, 1, 4, 0, 0, 1, 0, time.UTC)
	scheduled := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "purchase_id", "kind", "scheduled_for", "sent_at", "status"}).
		AddRow("r1", "p1", "seven_days_before", scheduled, nil, "pending")
	mock.ExpectQuery(`SELECT \* FROM "reminder" WHERE status = \$1 AND scheduled_for <= \$2 ORDER BY scheduled_for asc`).
		WithArgs("pending", until).
		WillReturnRows(rows)

	got, err := s.ListDueReminders(context.Background(), until)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, models.SevenDaysBefore, got[0].Kind)
	assert.Equal(t, models.StatusPending, got[0].Status)
	assert.Nil(t, got[0].SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetUserNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "app_user" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "created_at"}))

	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_QueryErrorIsPersistenceFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "purchase"`).WillReturnError(errors.New("connection refused"))

	_, err := s.ListExpiredPurchases(context.Background(), time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ArchivePurchase(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2024, 1, 20, 2, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "reminder" SET "status"=\$1 WHERE purchase_id = \$2 AND status = \$3`).
		WithArgs("skipped", "p1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE "purchase" SET "archived"=\$1,"archived_at"=GREATEST\(\$2, created_at\) WHERE id = \$3 AND archived = \$4`).
		WithArgs(true, at, "p1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	skipped, err := s.ArchivePurchase(context.Background(), "p1", at)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ArchivePurchaseAlreadyArchivedRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "reminder" SET "status"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "purchase" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.ArchivePurchase(context.Background(), "p1", time.Now())
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func samplePurchase() (*models.Purchase, []models.Reminder) {
	p := &models.Purchase{
		ID:               "p1",
		OwnerID:          "u1",
		MerchantName:     "Acme",
		ItemName:         "Kettle",
		PurchaseDate:     date(2024, 1, 1),
		ReturnWindowDays: 10,
		ReturnDeadline:   date(2024, 1, 11),
		CreatedAt:        time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	reminders := []models.Reminder{
		{ID: "r1", Kind: models.SevenDaysBefore, ScheduledFor: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)},
		{ID: "r2", Kind: models.DeadlineReached, ScheduledFor: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)},
	}
	return p, reminders
}

func TestGormStore_CreatePurchaseWithReminders(t *testing.T) {
	s, mock := newMockStore(t)
	p, reminders := samplePurchase()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "app_user" WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO "purchase"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "reminder"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.CreatePurchaseWithReminders(context.Background(), p, reminders))
	for _, r := range reminders {
		assert.Equal(t, "p1", r.PurchaseID)
		assert.Equal(t, models.StatusPending, r.Status)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreatePurchaseReminderInsertFailsRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	p, reminders := samplePurchase()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "app_user" WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO "purchase"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "reminder"`).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	err := s.CreatePurchaseWithReminders(context.Background(), p, reminders)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "create purchase")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreatePurchaseUnknownOwnerRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	p, reminders := samplePurchase()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "app_user" WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := s.CreatePurchaseWithReminders(context.Background(), p, reminders)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ClaimReminder(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	until := now.Add(time.Minute)

	mock.ExpectExec(`UPDATE "reminder" SET "claim_token"=\$1,"claimed_until"=\$2 WHERE id = \$3 AND status = \$4 AND \(claimed_until IS NULL OR claimed_until <= \$5\)`).
		WithArgs("tok", until, "r1", "pending", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.ClaimReminder(context.Background(), "r1", "tok", now, until))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ClaimReminderHeldElsewhere(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE "reminder" SET "claim_token"=\$1,"claimed_until"=\$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.ClaimReminder(context.Background(), "r1", "tok", now, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReleaseReminder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "reminder" SET "claim_token"=\$1,"claimed_until"=\$2 WHERE id = \$3 AND claim_token = \$4 AND status = \$5`).
		WithArgs("", sqlmock.AnyArg(), "r1", "tok", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.ReleaseReminder(context.Background(), "r1", "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
