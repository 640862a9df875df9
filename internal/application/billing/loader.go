package billing

import (
	"context"
	"errors"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/agency/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Snapshot is the configuration and commission data one summary runs on
type Snapshot struct {
	BookingID  string
	Seq        uint64
	Config     billing.CalcConfig
	Commission *commission.Feed

	// CommissionDefaulted is set when the commission feed could not be retrieved
	CommissionDefaulted bool
}

// UsingDefaults reports whether any stage fell back to defaults
func (s Snapshot) UsingDefaults() bool {
	return s.Config.UsingDefaults || s.CommissionDefaulted
}

// Loader runs the staged retrieval: agency configuration first, then the
// commission feed of the booking. Failures are replaced by defaults; only
// cancellation aborts a run.
type Loader struct {
	configs     billing.CalcConfigRepository
	commissions commission.Repository
	agencyID    string
	timeout     time.Duration
	logger      *zap.Logger
	metrics     MetricsRecorder
}

// NewLoader creates a loader. A zero timeout disables the per-stage deadline.
func NewLoader(
	configs billing.CalcConfigRepository,
	commissions commission.Repository,
	agencyID string,
	timeout time.Duration,
	logger *zap.Logger,
	metrics MetricsRecorder,
) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Loader{
		configs:     configs,
		commissions: commissions,
		agencyID:    agencyID,
		timeout:     timeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// Load retrieves both stages in order. The returned error is non-nil only
// when ctx is cancelled.
func (l *Loader) Load(ctx context.Context, bookingID string) (Snapshot, error) {
	snap := Snapshot{BookingID: bookingID}

	snap.Config = l.loadConfig(ctx)
	if err := ctx.Err(); err != nil {
		l.metrics.ObserveRetrieval(StageConfig, OutcomeCanceled, 0)
		return Snapshot{}, err
	}

	snap.Commission, snap.CommissionDefaulted = l.loadCommission(ctx, bookingID)
	if err := ctx.Err(); err != nil {
		l.metrics.ObserveRetrieval(StageCommission, OutcomeCanceled, 0)
		return Snapshot{}, err
	}
	return snap, nil
}

func (l *Loader) loadConfig(ctx context.Context) billing.CalcConfig {
	start := time.Now()
	stageCtx, cancel := l.stageContext(ctx)
	defer cancel()

	raw, err := l.configs.FindByAgency(stageCtx, l.agencyID)
	if err == nil && raw == nil {
		err = shared.ErrNotFound
	}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		l.logger.Debug("No calc configuration stored, using defaults", zap.String("agency_id", l.agencyID))
		l.metrics.ObserveRetrieval(StageConfig, OutcomeOK, time.Since(start))
		return billing.DefaultCalcConfig()
	case err != nil:
		l.logger.Warn("Calc configuration unavailable, using defaults",
			zap.String("agency_id", l.agencyID),
			zap.Error(err))
		l.metrics.ObserveRetrieval(StageConfig, OutcomeDefaults, time.Since(start))
		cfg := billing.DefaultCalcConfig()
		cfg.UsingDefaults = true
		return cfg
	}

	cfg := raw.Parse()
	for _, entry := range cfg.Discarded {
		l.logger.Debug("Dropped calc configuration entry", zap.String("entry", entry))
	}
	l.metrics.ObserveRetrieval(StageConfig, OutcomeOK, time.Since(start))
	return cfg
}

func (l *Loader) loadCommission(ctx context.Context, bookingID string) (*commission.Feed, bool) {
	start := time.Now()
	stageCtx, cancel := l.stageContext(ctx)
	defer cancel()

	feed, err := l.commissions.FindFeed(stageCtx, bookingID)
	if err != nil || feed == nil {
		l.logger.Warn("Commission feed unavailable, using defaults",
			zap.String("booking_id", bookingID),
			zap.Error(err))
		l.metrics.ObserveRetrieval(StageCommission, OutcomeDefaults, time.Since(start))
		return commission.EmptyFeed(), true
	}
	for _, entry := range feed.Discarded {
		l.logger.Debug("Dropped commission feed entry",
			zap.String("booking_id", bookingID),
			zap.String("entry", entry))
	}
	l.metrics.ObserveRetrieval(StageCommission, OutcomeOK, time.Since(start))
	return feed, false
}

func (l *Loader) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}
