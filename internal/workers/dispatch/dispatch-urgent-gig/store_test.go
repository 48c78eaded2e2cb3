// internal/workers/dispatch/dispatch-urgent-gig/store_test.go
package dispatchurgentgig

import (
	"context"
	"testing"
	"time"

	"gig-dispatch/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gigColumns = []string{
	"id", "requester_id", "category", "skill", "genres", "lat", "lng",
	"radius_km", "duration_hours", "amount", "currency", "location_label",
	"needed_by", "payment_status", "payment_ref", "created_at",
}

var poolColumns = []string{
	"candidate_id", "live_lat", "live_lng", "live_location_at",
	"area_lat", "area_lng", "max_radius_km", "hourly_rate",
	"flat_rate", "negotiable", "schedule", "quiet_start",
	"quiet_end", "max_notifications_per_day",
}

func TestGigByPaymentRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	t.Run("found", func(t *testing.T) {
		neededBy := time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC)
		createdAt := neededBy.Add(-2 * time.Hour)
		mock.ExpectQuery("SELECT (.+) FROM gigs WHERE payment_ref").
			WithArgs("pay-abc").
			WillReturnRows(sqlmock.NewRows(gigColumns).AddRow(
				"gig-001", "req-001", "urgent", "guitarist", "{jazz,funk}",
				51.5074, -0.1278, 10.0, 3.0, 150.0, "£", "Soho, London",
				neededBy, "paid", "pay-abc", createdAt,
			))

		gig, err := store.GigByPaymentRef(context.Background(), "pay-abc")

		require.NoError(t, err)
		require.NotNil(t, gig)
		assert.Equal(t, "gig-001", gig.ID)
		assert.Equal(t, models.GigCategoryUrgent, gig.Category)
		assert.Equal(t, []string{"jazz", "funk"}, gig.Genres)
		assert.Equal(t, 51.5074, gig.Location.Lat)
		assert.Equal(t, 150.0, gig.Amount)
	})

	t.Run("not found returns nil without error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM gigs WHERE payment_ref").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(gigColumns))

		gig, err := store.GigByPaymentRef(context.Background(), "missing")

		require.NoError(t, err)
		assert.Nil(t, gig)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEscrowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectExec("UPDATE gigs SET payment_status").
		WithArgs("escrowed", "gig-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkEscrowed(context.Background(), "gig-001"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidatePool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	liveSince := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	freshAt := liveSince.Add(6 * time.Hour)
	staleAt := liveSince.Add(-6 * time.Hour)
	schedule := `{"saturday": {"available": true, "from": "10:00", "to": "22:00"}}`

	mock.ExpectQuery("SELECT (.+) FROM candidate_availability").
		WithArgs("req-001", liveSince).
		WillReturnRows(sqlmock.NewRows(poolColumns).
			AddRow("cand-fresh", 51.51, -0.13, freshAt, nil, nil, 20.0, 40.0, nil, false, schedule, "22:00", "08:00", 3).
			AddRow("cand-stale-live", 51.52, -0.14, staleAt, 51.50, -0.12, 15.0, 35.0, 200.0, true, nil, nil, nil, nil).
			AddRow("cand-area-only", nil, nil, nil, 51.49, -0.11, 10.0, 50.0, nil, false, "not json", nil, nil, 5))

	pool, err := store.CandidatePool(context.Background(), "req-001", liveSince)
	require.NoError(t, err)
	require.Len(t, pool, 3)

	fresh := pool[0]
	assert.Equal(t, "cand-fresh", fresh.CandidateID)
	require.NotNil(t, fresh.LiveLocation)
	assert.Equal(t, 51.51, fresh.LiveLocation.Lat)
	require.NotNil(t, fresh.Schedule)
	require.NotNil(t, fresh.QuietHours)
	assert.Equal(t, 3, fresh.MaxNotificationsPerDay)

	// stale live location drops away so the general area takes over
	stale := pool[1]
	assert.Nil(t, stale.LiveLocation)
	require.NotNil(t, stale.GeneralArea)
	assert.Equal(t, 51.50, stale.GeneralArea.Lat)
	require.NotNil(t, stale.FlatRate)
	assert.Equal(t, 200.0, *stale.FlatRate)
	assert.True(t, stale.Negotiable)

	// unparseable schedule stays nil, which scores as ambiguous downstream
	area := pool[2]
	assert.Nil(t, area.LiveLocation)
	assert.Nil(t, area.Schedule)
	assert.Nil(t, area.QuietHours)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectQuery("SELECT (.+) FROM candidate_profiles").
		WillReturnRows(sqlmock.NewRows([]string{
			"candidate_id", "skills", "genres", "rating_avg", "rating_count", "timezone", "urgent_opt_in",
		}).
			AddRow("cand-1", "{guitarist,vocalist}", "{jazz}", 4.5, 12, "Europe/London", true).
			AddRow("cand-2", "{}", "{}", 0.0, 0, "UTC", true))

	profiles, err := store.ProfilesByIDs(context.Background(), []string{"cand-1", "cand-2"})

	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, []string{"guitarist", "vocalist"}, profiles["cand-1"].Skills)
	assert.Equal(t, 4.5, profiles["cand-1"].RatingAvg)
	assert.Empty(t, profiles["cand-2"].Skills)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	since := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT candidate_id, COUNT\\(\\*\\)(.+)FROM notification_ledger").
		WillReturnRows(sqlmock.NewRows([]string{"candidate_id", "count"}).
			AddRow("cand-1", 4))

	counts, err := store.SentCountsSince(context.Background(), []string{"cand-1", "cand-2"}, models.CategoryUrgentGig, since)

	require.NoError(t, err)
	assert.Equal(t, 4, counts["cand-1"])
	_, present := counts["cand-2"]
	assert.False(t, present)

	mock.ExpectQuery("outcome = 'declined'").
		WillReturnRows(sqlmock.NewRows([]string{"candidate_id", "count"}).
			AddRow("cand-1", 3))

	declines, err := store.DeclineCountsSince(context.Background(), []string{"cand-1"}, models.CategoryUrgentGig, since)

	require.NoError(t, err)
	assert.Equal(t, 3, declines["cand-1"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertResponse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	resp := &models.GigResponse{
		ID:          "resp-1",
		GigID:       "gig-001",
		CandidateID: "cand-1",
		Status:      models.ResponseStatusPending,
		CreatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO gig_responses(.+)ON CONFLICT \\(gig_id, candidate_id\\) DO NOTHING").
		WithArgs("resp-1", "gig-001", "cand-1", "pending", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.InsertResponse(context.Background(), resp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLedgerEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	entry := &models.NotificationLedgerEntry{
		ID:          "led-1",
		CandidateID: "cand-1",
		Category:    models.CategoryUrgentGig,
		GigID:       "gig-001",
		Outcome:     models.OutcomeSent,
		CreatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO notification_ledger").
		WithArgs("led-1", "cand-1", "urgent_gig", "gig-001", "sent", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.InsertLedgerEntry(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}
