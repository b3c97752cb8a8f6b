// Package audit records every prediction outcome for later lookup.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fraudguard/db"
	"fraudguard/ml"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Store persists audit records. *db.Store satisfies it.
type Store interface {
	SavePrediction(ctx context.Context, p db.Prediction) error
	GetPrediction(ctx context.Context, id string) (db.Prediction, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher receives every recorded prediction.
type Publisher interface {
	PublishPrediction(p db.Prediction)
}

type Recorder struct {
	store     Store
	cache     *lru.Cache[string, db.Prediction]
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
	cron      *cron.Cron
}

type Option func(*Recorder)

func WithStore(store Store) Option {
	return func(r *Recorder) { r.store = store }
}

func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder keeps the most recent cacheSize records in memory; without a store
// only those remain retrievable.
func NewRecorder(cacheSize int, logger *zap.Logger, opts ...Option) (*Recorder, error) {
	cache, err := lru.New[string, db.Prediction](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("audit cache: %w", err)
	}
	r := &Recorder{
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record stores the outcome and returns the audit record. Storage failures are
// logged and never change the returned record.
func (r *Recorder) Record(ctx context.Context, outcome ml.Outcome, tx ml.Transaction, modelVersion string) db.Prediction {
	p := db.Prediction{
		ID:           uuid.NewString(),
		CreatedAt:    r.now().UTC(),
		Outcome:      string(outcome.Kind),
		Threshold:    outcome.Threshold,
		ModelVersion: modelVersion,
		Amount:       tx["Amount"],
	}
	if outcome.Succeeded() {
		prob := ml.RoundProbability(outcome.Probability)
		p.Probability = &prob
		p.Verdict = outcome.Verdict.String()
	}
	if outcome.Err != nil {
		p.Error = outcome.Err.Error()
	}

	r.cache.Add(p.ID, p)
	if r.store != nil {
		if err := r.store.SavePrediction(ctx, p); err != nil {
			r.logger.Warn("failed to persist prediction", zap.String("id", p.ID), zap.Error(err))
		}
	}
	if r.publisher != nil {
		r.publisher.PublishPrediction(p)
	}
	return p
}

func (r *Recorder) Lookup(ctx context.Context, id string) (db.Prediction, error) {
	if p, ok := r.cache.Get(id); ok {
		return p, nil
	}
	if r.store == nil {
		return db.Prediction{}, db.ErrNotFound
	}
	p, err := r.store.GetPrediction(ctx, id)
	if err != nil {
		return db.Prediction{}, err
	}
	r.cache.Add(p.ID, p)
	return p, nil
}

// Purge removes records older than retention from the store and the cache.
func (r *Recorder) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.now().Add(-retention)
	var removed int64
	if r.store != nil {
		n, err := r.store.PurgeBefore(ctx, cutoff)
		if err != nil {
			return 0, err
		}
		removed = n
	}

	evicted := 0
	for _, id := range r.cache.Keys() {
		// Peek不改变LRU顺序
		if p, ok := r.cache.Peek(id); ok && p.CreatedAt.Before(cutoff) {
			r.cache.Remove(id)
			evicted++
		}
	}
	if r.store == nil {
		removed = int64(evicted)
	}
	return removed, nil
}

// StartRetention schedules Purge with a cron spec such as "@daily" or "0 3 * * *".
func (r *Recorder) StartRetention(schedule string, retention time.Duration) error {
	if retention <= 0 {
		return errors.New("retention must be positive")
	}
	if r.cron != nil {
		return errors.New("retention already started")
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		removed, err := r.Purge(context.Background(), retention)
		if err != nil {
			r.logger.Warn("prediction purge failed", zap.Error(err))
			return
		}
		r.logger.Info("purged old predictions", zap.Int64("removed", removed))
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Stop waits for a running purge to finish.
func (r *Recorder) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
