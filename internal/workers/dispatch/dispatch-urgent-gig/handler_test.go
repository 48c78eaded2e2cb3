// internal/workers/dispatch/dispatch-urgent-gig/handler_test.go
package dispatchurgentgig

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	stderrors "gig-dispatch/internal/common/errors"
	"gig-dispatch/internal/common/logger"
	"gig-dispatch/internal/common/observability"
	"gig-dispatch/internal/common/push"
	"gig-dispatch/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type fakeStore struct {
	gigs          map[string]*models.GigRequest
	pool          []*models.CandidateAvailability
	profiles      map[string]*models.CandidateProfile
	sentCounts    map[string]int
	declineCounts map[string]int

	poolErr     error
	profileErr  error
	ledgerErr   error
	responseErr error

	mu             sync.Mutex
	escrowed       []string
	responses      []*models.GigResponse
	ledgerEntries  []*models.NotificationLedgerEntry
	profileFetches int
}

func (f *fakeStore) GigByPaymentRef(ctx context.Context, paymentRef string) (*models.GigRequest, error) {
	return f.gigs[paymentRef], nil
}

func (f *fakeStore) MarkEscrowed(ctx context.Context, gigID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escrowed = append(f.escrowed, gigID)
	return nil
}

func (f *fakeStore) CandidatePool(ctx context.Context, requesterID string, liveSince time.Time) ([]*models.CandidateAvailability, error) {
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	return f.pool, nil
}

func (f *fakeStore) ProfilesByIDs(ctx context.Context, ids []string) (map[string]*models.CandidateProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	f.mu.Lock()
	f.profileFetches++
	f.mu.Unlock()
	out := make(map[string]*models.CandidateProfile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeStore) SentCountsSince(ctx context.Context, ids []string, category models.NotificationCategory, since time.Time) (map[string]int, error) {
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	return f.sentCounts, nil
}

func (f *fakeStore) DeclineCountsSince(ctx context.Context, ids []string, category models.NotificationCategory, since time.Time) (map[string]int, error) {
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	return f.declineCounts, nil
}

func (f *fakeStore) InsertResponse(ctx context.Context, resp *models.GigResponse) error {
	if f.responseErr != nil {
		return f.responseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeStore) InsertLedgerEntry(ctx context.Context, entry *models.NotificationLedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledgerEntries = append(f.ledgerEntries, entry)
	return nil
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []*push.Notification
	err  error
}

func (g *fakeGateway) Send(ctx context.Context, n *push.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, n)
	return nil
}

func (g *fakeGateway) sentIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, len(g.sent))
	for i, n := range g.sent {
		ids[i] = n.RecipientID
	}
	return ids
}

// ==========================
// Test Helper Functions
// ==========================

var (
	testNow = time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	london  = models.GeoPoint{Lat: 51.5074, Lng: -0.1278}
	soho    = models.GeoPoint{Lat: 51.5136, Lng: -0.1365}
	paris   = models.GeoPoint{Lat: 48.8566, Lng: 2.3522}
)

func testGig() *models.GigRequest {
	return &models.GigRequest{
		ID:            "gig-001",
		RequesterID:   "req-001",
		Category:      models.GigCategoryUrgent,
		Skill:         "guitarist",
		Genres:        []string{"jazz"},
		Location:      london,
		RadiusKm:      10,
		DurationHours: 3,
		Amount:        150,
		Currency:      "£",
		LocationLabel: "Soho, London",
		NeededBy:      testNow.Add(4 * time.Hour),
		PaymentStatus: models.PaymentStatusPaid,
		PaymentRef:    "pay-abc",
	}
}

func candidate(id string, loc models.GeoPoint) *models.CandidateAvailability {
	point := loc
	return &models.CandidateAvailability{
		CandidateID:  id,
		LiveLocation: &point,
		MaxRadiusKm:  20,
		HourlyRate:   40,
	}
}

func profile(id string, rating float64) *models.CandidateProfile {
	return &models.CandidateProfile{
		CandidateID: id,
		Skills:      []string{"guitarist"},
		Genres:      []string{"jazz"},
		RatingAvg:   rating,
		RatingCount: 10,
		Timezone:    "Europe/London",
		UrgentOptIn: true,
	}
}

func newTestHandler(t *testing.T, store Store, gateway push.Gateway) (*Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &Config{
		Timeout:           30 * time.Second,
		ProfileCacheTTL:   10 * time.Minute,
		LocationFreshness: 24 * time.Hour,
		GuardTTL:          24 * time.Hour,
		DeepLinkBaseURL:   "https://app.example.com",
	}

	h := NewHandler(cfg, store, rdb, gateway, &observability.Observability{}, logger.NewTestLogger(t))
	h.now = func() time.Time { return testNow }
	return h, mr
}

// ==========================
// Dispatch Pass Tests
// ==========================

func TestExecute_HappyPath(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{
			candidate("cand-1", soho),
			candidate("cand-2", soho),
		},
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
			"cand-2": profile("cand-2", 4.2),
		},
	}
	gateway := &fakeGateway{}
	h, _ := newTestHandler(t, store, gateway)

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.Equal(t, "gig-001", out.GigID)
	assert.Equal(t, 2, out.ShortlistedCount)
	assert.Equal(t, 2, out.NotifiedCount)
	assert.False(t, out.AlreadyDispatched)

	assert.Equal(t, []string{"gig-001"}, store.escrowed)
	assert.Len(t, store.responses, 2)
	assert.Len(t, store.ledgerEntries, 2)
	for _, resp := range store.responses {
		assert.Equal(t, models.ResponseStatusPending, resp.Status)
	}
	assert.ElementsMatch(t, []string{"cand-1", "cand-2"}, gateway.sentIDs())
}

func TestExecute_GigNotFound(t *testing.T) {
	store := &fakeStore{gigs: map[string]*models.GigRequest{}}
	h, _ := newTestHandler(t, store, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{PaymentRef: "no-such-ref"})

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeGigNotFound, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Empty(t, store.escrowed)
}

func TestExecute_NotUrgentCategory(t *testing.T) {
	gig := testGig()
	gig.Category = models.GigCategoryStandard
	store := &fakeStore{gigs: map[string]*models.GigRequest{"pay-abc": gig}}
	h, _ := newTestHandler(t, store, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeGigNotUrgent, stdErr.Code)
	assert.Empty(t, store.escrowed)
}

func TestExecute_EmptyPoolIsSuccess(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
	}
	h, _ := newTestHandler(t, store, &fakeGateway{})

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.Equal(t, 0, out.NotifiedCount)
	assert.Equal(t, []string{"gig-001"}, store.escrowed)
}

func TestExecute_AlreadyDispatchedGuard(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{candidate("cand-1", soho)},
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
		},
	}
	gateway := &fakeGateway{}
	h, _ := newTestHandler(t, store, gateway)

	first, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.NotifiedCount)

	second, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})
	require.NoError(t, err)
	assert.True(t, second.AlreadyDispatched)
	assert.Equal(t, 0, second.NotifiedCount)

	// no duplicate side effects from the replay
	assert.Len(t, store.escrowed, 1)
	assert.Len(t, store.responses, 1)
	assert.Len(t, gateway.sentIDs(), 1)
}

func TestExecute_GuardOutageFailsOpen(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{candidate("cand-1", soho)},
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
		},
	}
	h, mr := newTestHandler(t, store, &fakeGateway{})
	mr.Close()

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.Equal(t, 1, out.NotifiedCount)
}

func TestExecute_PoolQueryFailureIsRetryable(t *testing.T) {
	store := &fakeStore{
		gigs:    map[string]*models.GigRequest{"pay-abc": testGig()},
		poolErr: errors.New("connection reset"),
	}
	h, _ := newTestHandler(t, store, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodePoolQueryFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestExecute_GuardReleasedOnFailedPass(t *testing.T) {
	store := &fakeStore{
		gigs:    map[string]*models.GigRequest{"pay-abc": testGig()},
		pool:    []*models.CandidateAvailability{candidate("cand-1", soho)},
		poolErr: errors.New("connection reset"),
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
		},
	}
	gateway := &fakeGateway{}
	h, mr := newTestHandler(t, store, gateway)

	// transient pool failure after the guard claim
	_, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})
	require.Error(t, err)
	assert.False(t, mr.Exists("dispatch:gig:gig-001"))

	// the broker's retry must run a real pass, not the duplicate branch
	store.poolErr = nil
	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.False(t, out.AlreadyDispatched)
	assert.Equal(t, 1, out.NotifiedCount)
	assert.Equal(t, []string{"cand-1"}, gateway.sentIDs())
}

func TestExecute_GeoAndRatingFiltering(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{
			candidate("cand-near", soho),
			candidate("cand-far", paris),
			candidate("cand-low-rated", soho),
			{CandidateID: "cand-no-location", MaxRadiusKm: 20, HourlyRate: 40},
		},
		profiles: map[string]*models.CandidateProfile{
			"cand-near":        profile("cand-near", 4.8),
			"cand-far":         profile("cand-far", 4.8),
			"cand-low-rated":   profile("cand-low-rated", 3.5),
			"cand-no-location": profile("cand-no-location", 4.8),
		},
	}
	gateway := &fakeGateway{}
	h, _ := newTestHandler(t, store, gateway)

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.Equal(t, 1, out.NotifiedCount)
	assert.Equal(t, []string{"cand-near"}, gateway.sentIDs())
}

func TestExecute_GovernorSuppression(t *testing.T) {
	optedOut := profile("cand-out", 4.8)
	optedOut.UrgentOptIn = false

	// testNow is 15:00 in Europe/London, inside this window
	quiet := candidate("cand-quiet", soho)
	quiet.QuietHours = &models.TimeWindow{
		Start: models.TimeOfDay{Hour: 14},
		End:   models.TimeOfDay{Hour: 16},
	}

	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{
			candidate("cand-ok", soho),
			candidate("cand-out", soho),
			candidate("cand-capped", soho),
			candidate("cand-declining", soho),
			quiet,
		},
		profiles: map[string]*models.CandidateProfile{
			"cand-ok":        profile("cand-ok", 4.8),
			"cand-out":       optedOut,
			"cand-capped":    profile("cand-capped", 4.8),
			"cand-declining": profile("cand-declining", 4.8),
			"cand-quiet":     profile("cand-quiet", 4.8),
		},
		sentCounts:    map[string]int{"cand-capped": 5},
		declineCounts: map[string]int{"cand-declining": 3},
	}
	gateway := &fakeGateway{}
	h, _ := newTestHandler(t, store, gateway)

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.Equal(t, 5, out.ShortlistedCount)
	assert.Equal(t, 1, out.NotifiedCount)
	assert.Equal(t, []string{"cand-ok"}, gateway.sentIDs())

	// suppressed candidates get no rows at all
	assert.Len(t, store.responses, 1)
	assert.Len(t, store.ledgerEntries, 1)
}

func TestExecute_ShortlistCapAtTen(t *testing.T) {
	store := &fakeStore{
		gigs:     map[string]*models.GigRequest{"pay-abc": testGig()},
		profiles: map[string]*models.CandidateProfile{},
	}
	for i := 0; i < 15; i++ {
		id := string(rune('a'+i)) + "-cand"
		store.pool = append(store.pool, candidate(id, soho))
		store.profiles[id] = profile(id, 4.8)
	}
	gateway := &fakeGateway{}
	h, _ := newTestHandler(t, store, gateway)

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.Equal(t, 10, out.ShortlistedCount)
	assert.Equal(t, 10, out.NotifiedCount)
	assert.Len(t, gateway.sentIDs(), 10)
}

func TestExecute_PushFailureDoesNotFailPass(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{candidate("cand-1", soho)},
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
		},
	}
	gateway := &fakeGateway{err: errors.New("gateway down")}
	h, _ := newTestHandler(t, store, gateway)

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	// rows are written before delivery; the failed send is only logged
	assert.Equal(t, 1, out.NotifiedCount)
	assert.Len(t, store.responses, 1)
	assert.Len(t, store.ledgerEntries, 1)
}

func TestExecute_ResponseInsertFailureSkipsCandidate(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{candidate("cand-1", soho)},
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
		},
		responseErr: errors.New("constraint violation"),
	}
	gateway := &fakeGateway{}
	h, _ := newTestHandler(t, store, gateway)

	out, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.NoError(t, err)
	assert.Equal(t, 0, out.NotifiedCount)
	assert.Empty(t, gateway.sentIDs())
}

func TestLoadProfiles_UsesCache(t *testing.T) {
	store := &fakeStore{
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
		},
	}
	h, _ := newTestHandler(t, store, &fakeGateway{})

	first, err := h.loadProfiles(context.Background(), []string{"cand-1"})
	require.NoError(t, err)
	require.Contains(t, first, "cand-1")
	assert.Equal(t, 1, store.profileFetches)

	second, err := h.loadProfiles(context.Background(), []string{"cand-1"})
	require.NoError(t, err)
	require.Contains(t, second, "cand-1")
	assert.Equal(t, 1, store.profileFetches, "second load should be served from cache")
}

func TestExecute_LedgerQueryFailureIsFatal(t *testing.T) {
	store := &fakeStore{
		gigs: map[string]*models.GigRequest{"pay-abc": testGig()},
		pool: []*models.CandidateAvailability{candidate("cand-1", soho)},
		profiles: map[string]*models.CandidateProfile{
			"cand-1": profile("cand-1", 4.8),
		},
		ledgerErr: errors.New("timeout"),
	}
	h, _ := newTestHandler(t, store, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{PaymentRef: "pay-abc"})

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeLedgerQueryFailed, stdErr.Code)
}
