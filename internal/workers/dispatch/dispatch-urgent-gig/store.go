// internal/workers/dispatch/dispatch-urgent-gig/store.go
package dispatchurgentgig

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gig-dispatch/internal/models"

	"github.com/lib/pq"
)

// Store is the data-store surface the dispatch pass needs. Defined as an
// interface for mocking.
type Store interface {
	GigByPaymentRef(ctx context.Context, paymentRef string) (*models.GigRequest, error)
	MarkEscrowed(ctx context.Context, gigID string) error
	CandidatePool(ctx context.Context, requesterID string, liveSince time.Time) ([]*models.CandidateAvailability, error)
	ProfilesByIDs(ctx context.Context, ids []string) (map[string]*models.CandidateProfile, error)
	SentCountsSince(ctx context.Context, ids []string, category models.NotificationCategory, since time.Time) (map[string]int, error)
	DeclineCountsSince(ctx context.Context, ids []string, category models.NotificationCategory, since time.Time) (map[string]int, error)
	InsertResponse(ctx context.Context, resp *models.GigResponse) error
	InsertLedgerEntry(ctx context.Context, entry *models.NotificationLedgerEntry) error
}

// PostgresStore implements Store against the platform's Postgres schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GigByPaymentRef returns nil without error when no gig carries the ref.
func (s *PostgresStore) GigByPaymentRef(ctx context.Context, paymentRef string) (*models.GigRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, requester_id, category, skill, genres, lat, lng, radius_km,
		       duration_hours, amount, currency, location_label, needed_by,
		       payment_status, payment_ref, created_at
		FROM gigs WHERE payment_ref = $1`, paymentRef)

	var gig models.GigRequest
	err := row.Scan(
		&gig.ID, &gig.RequesterID, &gig.Category, &gig.Skill, pq.Array(&gig.Genres),
		&gig.Location.Lat, &gig.Location.Lng, &gig.RadiusKm,
		&gig.DurationHours, &gig.Amount, &gig.Currency, &gig.LocationLabel,
		&gig.NeededBy, &gig.PaymentStatus, &gig.PaymentRef, &gig.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load gig by payment ref: %w", err)
	}
	return &gig, nil
}

func (s *PostgresStore) MarkEscrowed(ctx context.Context, gigID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE gigs SET payment_status = $1 WHERE id = $2`,
		models.PaymentStatusEscrowed, gigID)
	if err != nil {
		return fmt.Errorf("mark gig escrowed: %w", err)
	}
	return nil
}

// CandidatePool loads every candidate opted into urgent dispatch, excluding
// the requester, whose live location is no older than liveSince or who has a
// general area on file. Live locations older than liveSince are dropped so
// the general area takes over.
func (s *PostgresStore) CandidatePool(ctx context.Context, requesterID string, liveSince time.Time) ([]*models.CandidateAvailability, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.candidate_id, a.live_lat, a.live_lng, a.live_location_at,
		       a.area_lat, a.area_lng, a.max_radius_km, a.hourly_rate,
		       a.flat_rate, a.negotiable, a.schedule, a.quiet_start,
		       a.quiet_end, a.max_notifications_per_day
		FROM candidate_availability a
		JOIN candidate_profiles p ON p.candidate_id = a.candidate_id
		WHERE p.urgent_opt_in = TRUE
		  AND a.candidate_id <> $1
		  AND (a.live_location_at >= $2 OR a.area_lat IS NOT NULL)`,
		requesterID, liveSince)
	if err != nil {
		return nil, fmt.Errorf("query candidate pool: %w", err)
	}
	defer rows.Close()

	var pool []*models.CandidateAvailability
	for rows.Next() {
		var (
			a                  models.CandidateAvailability
			liveLat, liveLng   sql.NullFloat64
			liveAt             sql.NullTime
			areaLat, areaLng   sql.NullFloat64
			flatRate           sql.NullFloat64
			schedule           []byte
			quietFrom, quietTo sql.NullString
			dailyMax           sql.NullInt64
		)
		if err := rows.Scan(
			&a.CandidateID, &liveLat, &liveLng, &liveAt,
			&areaLat, &areaLng, &a.MaxRadiusKm, &a.HourlyRate,
			&flatRate, &a.Negotiable, &schedule, &quietFrom,
			&quietTo, &dailyMax,
		); err != nil {
			return nil, fmt.Errorf("scan candidate pool row: %w", err)
		}

		if liveLat.Valid && liveLng.Valid && liveAt.Valid && !liveAt.Time.Before(liveSince) {
			a.LiveLocation = &models.GeoPoint{Lat: liveLat.Float64, Lng: liveLng.Float64}
			t := liveAt.Time
			a.LiveLocationAt = &t
		}
		if areaLat.Valid && areaLng.Valid {
			a.GeneralArea = &models.GeoPoint{Lat: areaLat.Float64, Lng: areaLng.Float64}
		}
		if flatRate.Valid {
			f := flatRate.Float64
			a.FlatRate = &f
		}
		if dailyMax.Valid {
			a.MaxNotificationsPerDay = int(dailyMax.Int64)
		}
		a.Schedule = parseSchedule(schedule)
		a.QuietHours = parseQuietWindow(quietFrom, quietTo)

		pool = append(pool, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate pool: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) ProfilesByIDs(ctx context.Context, ids []string) (map[string]*models.CandidateProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_id, skills, genres, rating_avg, rating_count,
		       timezone, urgent_opt_in
		FROM candidate_profiles
		WHERE candidate_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query candidate profiles: %w", err)
	}
	defer rows.Close()

	profiles := make(map[string]*models.CandidateProfile, len(ids))
	for rows.Next() {
		var p models.CandidateProfile
		if err := rows.Scan(
			&p.CandidateID, pq.Array(&p.Skills), pq.Array(&p.Genres),
			&p.RatingAvg, &p.RatingCount, &p.Timezone, &p.UrgentOptIn,
		); err != nil {
			return nil, fmt.Errorf("scan candidate profile row: %w", err)
		}
		profiles[p.CandidateID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate profiles: %w", err)
	}
	return profiles, nil
}

func (s *PostgresStore) SentCountsSince(ctx context.Context, ids []string, category models.NotificationCategory, since time.Time) (map[string]int, error) {
	return s.countLedger(ctx, `
		SELECT candidate_id, COUNT(*)
		FROM notification_ledger
		WHERE candidate_id = ANY($1) AND category = $2 AND created_at >= $3
		GROUP BY candidate_id`, ids, category, since)
}

func (s *PostgresStore) DeclineCountsSince(ctx context.Context, ids []string, category models.NotificationCategory, since time.Time) (map[string]int, error) {
	return s.countLedger(ctx, `
		SELECT candidate_id, COUNT(*)
		FROM notification_ledger
		WHERE candidate_id = ANY($1) AND category = $2 AND created_at >= $3
		  AND outcome = 'declined'
		GROUP BY candidate_id`, ids, category, since)
}

func (s *PostgresStore) countLedger(ctx context.Context, query string, ids []string, category models.NotificationCategory, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids), category, since)
	if err != nil {
		return nil, fmt.Errorf("query notification ledger counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan ledger count row: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger counts: %w", err)
	}
	return counts, nil
}

// InsertResponse is idempotent per (gig, candidate); replays of the same
// pass do not double-book.
func (s *PostgresStore) InsertResponse(ctx context.Context, resp *models.GigResponse) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gig_responses (id, gig_id, candidate_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (gig_id, candidate_id) DO NOTHING`,
		resp.ID, resp.GigID, resp.CandidateID, resp.Status, resp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert gig response: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertLedgerEntry(ctx context.Context, entry *models.NotificationLedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_ledger (id, candidate_id, category, gig_id, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.CandidateID, entry.Category, entry.GigID, entry.Outcome, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func parseSchedule(raw []byte) *models.WeekSchedule {
	if len(raw) == 0 {
		return nil
	}
	var rawWeek models.RawWeekSchedule
	if err := json.Unmarshal(raw, &rawWeek); err != nil {
		return nil
	}
	ws, err := models.ParseWeekSchedule(rawWeek)
	if err != nil {
		return nil
	}
	return ws
}

func parseQuietWindow(from, to sql.NullString) *models.TimeWindow {
	if !from.Valid || !to.Valid {
		return nil
	}
	start, err := models.ParseTimeOfDay(from.String)
	if err != nil {
		return nil
	}
	end, err := models.ParseTimeOfDay(to.String)
	if err != nil {
		return nil
	}
	return &models.TimeWindow{Start: start, End: end}
}
