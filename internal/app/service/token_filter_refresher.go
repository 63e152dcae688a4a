package service

import (
	"context"
	"time"

	apprepository "github.com/scantrail/scantrail/internal/app/repository"
	"go.uber.org/zap"
)

// TokenFilterRefresher periodically rebuilds the token bloom filter from the
// registry so that deleted tokens eventually stop registering as hits.
type TokenFilterRefresher struct {
	logger   *zap.Logger
	repo     apprepository.QRCodeRepository
	filter   *TokenFilter
	interval time.Duration
	stopChan chan struct{}
}

// NewTokenFilterRefresher creates a refresher with the given rebuild interval.
func NewTokenFilterRefresher(logger *zap.Logger, repo apprepository.QRCodeRepository, filter *TokenFilter, interval time.Duration) *TokenFilterRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &TokenFilterRefresher{
		logger:   logger,
		repo:     repo,
		filter:   filter,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start performs an initial warm load and begins periodic rebuilding.
func (r *TokenFilterRefresher) Start() {
	r.refresh()
	go r.run()
}

// Stop stops the periodic rebuilding.
func (r *TokenFilterRefresher) Stop() {
	close(r.stopChan)
}

func (r *TokenFilterRefresher) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refresh()
		case <-r.stopChan:
			r.logger.Info("token filter refresher stopped")
			return
		}
	}
}

func (r *TokenFilterRefresher) refresh() {
	ctx := context.Background()

	tokens, err := r.repo.ListTokens(ctx)
	if err != nil {
		// Filter keeps serving its previous state; a stale filter only
		// means extra datastore lookups.
		r.logger.Error("failed to load tokens for bloom filter", zap.Error(err))
		return
	}

	r.filter.Reload(tokens)
	r.logger.Debug("token filter rebuilt", zap.Int("tokens", len(tokens)))
}
