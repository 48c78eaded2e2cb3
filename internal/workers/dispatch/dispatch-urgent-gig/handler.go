// internal/workers/dispatch/dispatch-urgent-gig/handler.go
package dispatchurgentgig

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gig-dispatch/internal/common/camunda"
	stderrors "gig-dispatch/internal/common/errors"
	"gig-dispatch/internal/common/logger"
	"gig-dispatch/internal/common/metrics"
	"gig-dispatch/internal/common/observability"
	"gig-dispatch/internal/common/push"
	"gig-dispatch/internal/common/validation"
	"gig-dispatch/internal/matching/geo"
	"gig-dispatch/internal/matching/governor"
	"gig-dispatch/internal/matching/scoring"
	"gig-dispatch/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "dispatch-urgent-gig"

	profileCachePrefix  = "candidate:profile:"
	dispatchGuardPrefix = "dispatch:gig:"
)

type Handler struct {
	config       *Config
	store        Store
	redis        *redis.Client
	gateway      push.Gateway
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
	obs          *observability.Observability
	now          func() time.Time
}

func NewHandler(config *Config, store Store, redisClient *redis.Client, gateway push.Gateway, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		redis:        redisClient,
		gateway:      gateway,
		logger:       scoped,
		errorHandler: stderrors.NewErrorHandler(scoped),
		obs:          obs,
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &doc); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			stderrors.NewInvalidTriggerPayloadError(fmt.Sprintf("parse variables: %v", err)))
		return nil
	}
	if result, err := validation.ValidateDocument(doc, triggerSchema); err != nil || !result.Valid {
		details := "schema validation unavailable"
		if result != nil {
			details = result.Summary()
		}
		h.errorHandler.HandleJobError(ctx, client, job,
			stderrors.NewInvalidTriggerPayloadError(details))
		return nil
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			stderrors.NewInvalidTriggerPayloadError(fmt.Sprintf("parse input: %v", err)))
		return nil
	}

	start := h.now()
	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
		h.obs.RecordPass(ctx, "error")
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return nil
	}

	result := "success"
	if output.AlreadyDispatched {
		result = "duplicate"
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.DispatchPassDuration.Observe(h.now().Sub(start).Seconds())
	h.obs.RecordPass(ctx, result)
	h.obs.RecordPassDuration(ctx, h.now().Sub(start), result)

	h.completeJob(ctx, client, job, output)
	return nil
}

// execute runs one dispatch pass: load, escrow, match, govern, record, push.
func (h *Handler) execute(ctx context.Context, input *Input) (out *Output, err error) {
	gig, err := h.store.GigByPaymentRef(ctx, input.PaymentRef)
	if err != nil {
		return nil, stderrors.NewDatabaseConnectionFailedError(err)
	}
	if gig == nil {
		return nil, stderrors.NewGigNotFoundError(input.PaymentRef)
	}
	if gig.Category != models.GigCategoryUrgent {
		return nil, stderrors.NewGigNotUrgentError(gig.ID)
	}

	log := h.logger.WithFields(map[string]interface{}{"gigId": gig.ID})

	if done := h.alreadyDispatched(ctx, gig.ID, log); done {
		log.Info("gig already dispatched, skipping pass", nil)
		return &Output{GigID: gig.ID, AlreadyDispatched: true}, nil
	}

	// The guard must not outlive a failed pass: the broker retries the job,
	// and a stale claim would turn that retry into a silent no-op.
	defer func() {
		if err != nil {
			h.releaseGuard(gig.ID, log)
		}
	}()

	if err := h.store.MarkEscrowed(ctx, gig.ID); err != nil {
		return nil, stderrors.NewEscrowUpdateFailedError(gig.ID, err)
	}

	now := h.now()
	pool, err := h.store.CandidatePool(ctx, gig.RequesterID, now.Add(-h.config.LocationFreshness))
	if err != nil {
		return nil, stderrors.NewPoolQueryFailedError(err)
	}
	if len(pool) == 0 {
		log.Info("no candidates in pool", nil)
		return &Output{GigID: gig.ID}, nil
	}

	ids := make([]string, 0, len(pool))
	availByID := make(map[string]*models.CandidateAvailability, len(pool))
	for _, a := range pool {
		ids = append(ids, a.CandidateID)
		availByID[a.CandidateID] = a
	}

	profiles, err := h.loadProfiles(ctx, ids)
	if err != nil {
		return nil, stderrors.NewProfileQueryFailedError(err)
	}

	var scores []models.MatchScore
	for _, a := range pool {
		profile, ok := profiles[a.CandidateID]
		if !ok {
			continue
		}
		if !scoring.MeetsRatingFloor(profile) {
			continue
		}
		distance, eligible := geo.Eligible(gig, a)
		if !eligible {
			continue
		}
		scores = append(scores, scoring.Score(gig, profile, a, distance, now))
	}

	shortlist := scoring.Shortlist(scores)
	if len(shortlist) == 0 {
		log.Info("no eligible candidates after matching", map[string]interface{}{
			"poolSize": len(pool),
		})
		return &Output{GigID: gig.ID}, nil
	}

	shortIDs := make([]string, len(shortlist))
	for i, s := range shortlist {
		shortIDs[i] = s.CandidateID
	}

	sentToday, err := h.store.SentCountsSince(ctx, shortIDs, models.CategoryUrgentGig, utcMidnight(now))
	if err != nil {
		return nil, stderrors.NewLedgerQueryFailedError(err)
	}
	declines, err := h.store.DeclineCountsSince(ctx, shortIDs, models.CategoryUrgentGig, now.Add(-governor.DeclineCooldownWindow))
	if err != nil {
		return nil, stderrors.NewLedgerQueryFailedError(err)
	}

	notified := h.recordAndNotify(ctx, gig, shortlist, availByID, profiles, sentToday, declines, now, log)

	log.Info("dispatch pass complete", map[string]interface{}{
		"poolSize":    len(pool),
		"shortlisted": len(shortlist),
		"notified":    notified,
	})

	return &Output{
		GigID:            gig.ID,
		ShortlistedCount: len(shortlist),
		NotifiedCount:    notified,
	}, nil
}

// alreadyDispatched claims the per-gig guard key. Replays of the same
// trigger see the claim and skip; a guard-store outage fails open since the
// response insert is idempotent anyway.
func (h *Handler) alreadyDispatched(ctx context.Context, gigID string, log logger.Logger) bool {
	set, err := h.redis.SetNX(ctx, dispatchGuardPrefix+gigID, h.now().UTC().Format(time.RFC3339), h.config.GuardTTL).Result()
	if err != nil {
		log.Warn("dispatch guard unavailable, proceeding", map[string]interface{}{"error": err})
		return false
	}
	return !set
}

// releaseGuard drops the guard claim after a failed pass so the broker's
// retry runs a real pass instead of the duplicate branch. Uses a fresh
// context since the pass context may already be expired.
func (h *Handler) releaseGuard(gigID string, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.redis.Del(ctx, dispatchGuardPrefix+gigID).Err(); err != nil {
		log.Warn("failed to release dispatch guard", map[string]interface{}{"error": err})
	}
}

// loadProfiles serves candidate profiles from the Redis cache, fetching all
// misses in one batched query and back-filling the cache.
func (h *Handler) loadProfiles(ctx context.Context, ids []string) (map[string]*models.CandidateProfile, error) {
	profiles := make(map[string]*models.CandidateProfile, len(ids))
	var misses []string

	for _, id := range ids {
		val, err := h.redis.Get(ctx, profileCachePrefix+id).Result()
		if err != nil {
			misses = append(misses, id)
			continue
		}
		var p models.CandidateProfile
		if err := json.Unmarshal([]byte(val), &p); err != nil {
			misses = append(misses, id)
			continue
		}
		profiles[id] = &p
	}

	if len(misses) == 0 {
		return profiles, nil
	}

	fetched, err := h.store.ProfilesByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, p := range fetched {
		profiles[id] = p
		if data, err := json.Marshal(p); err == nil {
			h.redis.Set(ctx, profileCachePrefix+id, data, h.config.ProfileCacheTTL)
		}
	}
	return profiles, nil
}

// recordAndNotify applies the governor to the shortlist, writes the
// GigResponse and ledger rows for every surviving candidate, then issues the
// push sends concurrently. Rows are written before any push goes out, so a
// crash mid-delivery is safe to replay.
func (h *Handler) recordAndNotify(
	ctx context.Context,
	gig *models.GigRequest,
	shortlist []models.MatchScore,
	availByID map[string]*models.CandidateAvailability,
	profiles map[string]*models.CandidateProfile,
	sentToday, declines map[string]int,
	now time.Time,
	log logger.Logger,
) int {
	type delivery struct {
		notification *push.Notification
	}
	var deliveries []delivery

	for _, match := range shortlist {
		decision := governor.Evaluate(governor.Input{
			Profile:        profiles[match.CandidateID],
			Availability:   availByID[match.CandidateID],
			SentToday:      sentToday[match.CandidateID],
			RecentDeclines: declines[match.CandidateID],
			Now:            now,
		})
		if !decision.Allowed {
			metrics.DispatchCandidatesSuppressed.WithLabelValues(decision.Reason).Inc()
			log.Debug("candidate suppressed", map[string]interface{}{
				"candidateId": match.CandidateID,
				"reason":      decision.Reason,
			})
			continue
		}

		resp := &models.GigResponse{
			ID:          uuid.New().String(),
			GigID:       gig.ID,
			CandidateID: match.CandidateID,
			Status:      models.ResponseStatusPending,
			CreatedAt:   now,
		}
		if err := h.store.InsertResponse(ctx, resp); err != nil {
			log.Error("failed to insert gig response, skipping candidate", map[string]interface{}{
				"candidateId": match.CandidateID,
				"error":       err,
			})
			continue
		}

		entry := &models.NotificationLedgerEntry{
			ID:          uuid.New().String(),
			CandidateID: match.CandidateID,
			Category:    models.CategoryUrgentGig,
			GigID:       gig.ID,
			Outcome:     models.OutcomeSent,
			CreatedAt:   now,
		}
		if err := h.store.InsertLedgerEntry(ctx, entry); err != nil {
			log.Error("failed to insert ledger entry, skipping candidate", map[string]interface{}{
				"candidateId": match.CandidateID,
				"error":       err,
			})
			continue
		}

		deliveries = append(deliveries, delivery{
			notification: push.BuildUrgentGigNotification(gig, match.CandidateID, match.DistanceKm, h.config.DeepLinkBaseURL),
		})
	}

	// Sends are independent; one slow or failed delivery must not block or
	// roll back the others.
	var wg sync.WaitGroup
	for _, d := range deliveries {
		wg.Add(1)
		go func(n *push.Notification) {
			defer wg.Done()
			if err := h.gateway.Send(ctx, n); err != nil {
				metrics.PushSendFailures.WithLabelValues("gateway").Inc()
				log.Error("push send failed", map[string]interface{}{
					"candidateId": n.RecipientID,
					"error":       err,
				})
			}
		}(d.notification)
	}
	wg.Wait()

	metrics.DispatchCandidatesNotified.Add(float64(len(deliveries)))
	return len(deliveries)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	err = camunda.SendWithRetry(ctx, camunda.DefaultRetryConfig, "complete job", func(ctx context.Context) error {
		_, sendErr := cmd.Send(ctx)
		return sendErr
	})
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func utcMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func errorCode(err error) string {
	if stdErr, ok := err.(*stderrors.StandardError); ok {
		return string(stdErr.Code)
	}
	return "INTERNAL_ERROR"
}

// Execute exposes the pass for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
