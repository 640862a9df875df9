package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SummaryServiceConfig holds the dependencies of SummaryService
type SummaryServiceConfig struct {
	Configs               billing.CalcConfigRepository
	Commissions           commission.Repository
	AgencyID              string
	// DefaultTransferFeePct applies when a booking sets none; nil selects
	// billing.DefaultTransferFeePct
	DefaultTransferFeePct *decimal.Decimal
	RetrievalTimeout      time.Duration
	Logger                *zap.Logger
	Metrics               MetricsRecorder
}

// SummaryRequest is the booking snapshot a caller wants summarised.
// Commission, when set, replaces the stored feed.
type SummaryRequest struct {
	Services          []billing.Service
	Receipts          []billing.Receipt
	OperatorDues      []billing.OperatorDue
	BookingSaleTotals map[string]decimal.Decimal
	Commission        *commission.Feed
}

// SummaryResult is the outcome of SummaryService.Summarize
type SummaryResult struct {
	BookingID     string
	Seq           uint64
	Mode          billing.BreakdownMode
	UsingDefaults bool
	Summaries     []billing.CurrencySummary
}

// SummaryService loads booking configuration and runs the billing engine
type SummaryService struct {
	loader      *Loader
	commissions commission.Repository
	defaultPct  decimal.Decimal
	logger      *zap.Logger
	metrics     MetricsRecorder

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSummaryService creates a new summary service
func NewSummaryService(cfg SummaryServiceConfig) *SummaryService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	defaultPct := billing.DefaultTransferFeePct
	if cfg.DefaultTransferFeePct != nil {
		defaultPct = *cfg.DefaultTransferFeePct
	}
	return &SummaryService{
		loader:      NewLoader(cfg.Configs, cfg.Commissions, cfg.AgencyID, cfg.RetrievalTimeout, logger, metrics),
		commissions: cfg.Commissions,
		defaultPct:  defaultPct,
		logger:      logger,
		metrics:     metrics,
		sessions:    make(map[string]*Session),
	}
}

// Session returns the session of a booking, creating it on first use
func (s *SummaryService) Session(bookingID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[bookingID]
	if !ok {
		session = NewSession(bookingID, s.loader)
		s.sessions[bookingID] = session
	}
	return session
}

// PruneSessions forgets sessions idle for longer than maxIdle and returns
// how many were removed
func (s *SummaryService) PruneSessions(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.IdleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Load refreshes the booking's snapshot. A superseded refresh falls back
// to the last committed snapshot when there is one.
func (s *SummaryService) Load(ctx context.Context, bookingID string) (Snapshot, error) {
	session := s.Session(bookingID)
	snap, err := session.Refresh(ctx)
	if err == nil {
		return snap, nil
	}
	if IsStale(err) {
		s.metrics.IncStaleRetrieval()
		if current, ok := session.Current(); ok {
			s.logger.Debug("Retrieval superseded, using committed snapshot",
				zap.String("booking_id", bookingID),
				zap.Uint64("seq", current.Seq))
			return current, nil
		}
	}
	return Snapshot{}, err
}

// Summarize loads the booking's configuration and commission data and
// computes its per-currency summaries
func (s *SummaryService) Summarize(ctx context.Context, bookingID string, req SummaryRequest) (*SummaryResult, error) {
	if bookingID == "" {
		return nil, shared.ErrInvalidInput
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "summarize",
		telemetry.WithAttribute(telemetry.SpanAttrBookingID, bookingID),
		telemetry.WithAttribute(telemetry.SpanAttrServices, len(req.Services)),
		telemetry.WithAttribute(telemetry.SpanAttrReceipts, len(req.Receipts)),
	)
	defer span.End()
	start := time.Now()

	snap, err := s.Load(ctx, bookingID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	feed := snap.Commission
	if req.Commission != nil {
		feed = req.Commission
	}
	defaultPct := s.defaultPct

	summaries := billing.Summarize(billing.SummaryInput{
		Services:              req.Services,
		Receipts:              req.Receipts,
		OperatorDues:          req.OperatorDues,
		Config:                snap.Config,
		BookingSaleTotals:     req.BookingSaleTotals,
		Commission:            feed,
		DefaultTransferFeePct: &defaultPct,
	})

	s.metrics.ObserveSummary(len(summaries), time.Since(start))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrRetrievalID, snap.Seq,
		telemetry.SpanAttrCurrencies, len(summaries),
		telemetry.SpanAttrDefaults, snap.UsingDefaults(),
	)
	s.logger.Debug("Booking summarised",
		zap.String("booking_id", bookingID),
		zap.Int("currencies", len(summaries)),
		zap.Bool("using_defaults", snap.UsingDefaults()))

	return &SummaryResult{
		BookingID:     bookingID,
		Seq:           snap.Seq,
		Mode:          snap.Config.Mode,
		UsingDefaults: snap.UsingDefaults(),
		Summaries:     summaries,
	}, nil
}

// SaveCommissionOverride validates and stores an override, then drops the
// booking's cached snapshot so the next summary sees it
func (s *SummaryService) SaveCommissionOverride(ctx context.Context, bookingID string, target commission.Target, split commission.Split) error {
	if bookingID == "" {
		return shared.ErrInvalidInput
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "commission_override", "save",
		telemetry.WithAttribute(telemetry.SpanAttrBookingID, bookingID),
		telemetry.WithAttribute(telemetry.SpanAttrScope, string(target.Scope)),
		telemetry.WithAttribute(telemetry.SpanAttrScopeKey, target.Key),
	)
	defer span.End()

	if err := commission.ValidateSplit(split); err != nil {
		s.metrics.IncOverrideWrite("save", "rejected")
		telemetry.RecordError(span, err)
		return err
	}

	// Leaders the payload leaves out inherit the base rule's pct
	feed, err := s.commissions.FindFeed(ctx, bookingID)
	if err != nil {
		s.metrics.IncOverrideWrite("save", "error")
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to load commission rule", zap.String("booking_id", bookingID), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save commission override")
	}
	if err := commission.ValidateEffective(feed.BaseRule(), split); err != nil {
		s.metrics.IncOverrideWrite("save", "rejected")
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("Saving commission override",
		zap.String("booking_id", bookingID),
		zap.String("scope", string(target.Scope)),
		zap.String("key", target.Key))

	if err := s.commissions.SaveOverride(ctx, bookingID, target, split); err != nil {
		s.metrics.IncOverrideWrite("save", "error")
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to save commission override", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save commission override")
	}

	s.metrics.IncOverrideWrite("save", "ok")
	s.Session(bookingID).Invalidate()
	return nil
}

// SaveCommissionRule stores the base rule, owner pct and precomputed figures
// of a booking and drops its cached snapshot
func (s *SummaryService) SaveCommissionRule(ctx context.Context, bookingID string, feed *commission.Feed) error {
	if bookingID == "" {
		return shared.ErrInvalidInput
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "commission_rule", "save",
		telemetry.WithAttribute(telemetry.SpanAttrBookingID, bookingID),
	)
	defer span.End()

	if err := commission.ValidateFeed(feed); err != nil {
		s.metrics.IncOverrideWrite("save_rule", "rejected")
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("Saving commission rule",
		zap.String("booking_id", bookingID),
		zap.Bool("has_rule", feed.Rule != nil),
		zap.Strings("discarded", feed.Discarded))

	if err := s.commissions.SaveRule(ctx, bookingID, feed); err != nil {
		s.metrics.IncOverrideWrite("save_rule", "error")
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to save commission rule", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save commission rule")
	}

	s.metrics.IncOverrideWrite("save_rule", "ok")
	s.Session(bookingID).Invalidate()
	return nil
}

// DeleteCommissionOverride removes an override and drops the booking's
// cached snapshot
func (s *SummaryService) DeleteCommissionOverride(ctx context.Context, bookingID string, target commission.Target) error {
	if bookingID == "" {
		return shared.ErrInvalidInput
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "commission_override", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrBookingID, bookingID),
		telemetry.WithAttribute(telemetry.SpanAttrScope, string(target.Scope)),
		telemetry.WithAttribute(telemetry.SpanAttrScopeKey, target.Key),
	)
	defer span.End()

	s.logger.Info("Deleting commission override",
		zap.String("booking_id", bookingID),
		zap.String("scope", string(target.Scope)),
		zap.String("key", target.Key))

	if err := s.commissions.DeleteOverride(ctx, bookingID, target); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.metrics.IncOverrideWrite("delete", "not_found")
			return shared.ErrNotFound
		}
		s.metrics.IncOverrideWrite("delete", "error")
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to delete commission override", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete commission override")
	}

	s.metrics.IncOverrideWrite("delete", "ok")
	s.Session(bookingID).Invalidate()
	return nil
}
