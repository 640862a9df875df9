package handler

import (
	"context"

	appbilling "github.com/agency/backoffice/internal/application/billing"
	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/agency/backoffice/internal/infrastructure/logger"
	"github.com/agency/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SummaryService is what BillingHandler needs from the billing application layer
type SummaryService interface {
	Summarize(ctx context.Context, bookingID string, req appbilling.SummaryRequest) (*appbilling.SummaryResult, error)
	SaveCommissionRule(ctx context.Context, bookingID string, feed *commission.Feed) error
	SaveCommissionOverride(ctx context.Context, bookingID string, target commission.Target, split commission.Split) error
	DeleteCommissionOverride(ctx context.Context, bookingID string, target commission.Target) error
}

var _ SummaryService = (*appbilling.SummaryService)(nil)

// BillingHandler serves booking summaries and commission overrides
type BillingHandler struct {
	BaseHandler
	service SummaryService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(service SummaryService) *BillingHandler {
	return &BillingHandler{service: service}
}

// Summarize computes the per-currency summaries of a booking.
// POST /bookings/:id/summary
func (h *BillingHandler) Summarize(c *gin.Context) {
	bookingID := c.Param("id")

	var req dto.SummaryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	summaryReq, err := req.ToSummaryRequest()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx, log := logger.WithBookingID(c.Request.Context(), logger.GetGinLogger(c), bookingID)
	result, err := h.service.Summarize(ctx, bookingID, summaryReq)
	if err != nil {
		log.Warn("Summary failed", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToSummaryResponse(result), dto.Meta{
		RetrievalID:   result.Seq,
		UsingDefaults: result.UsingDefaults,
	})
}

// SaveCommissionRule stores the base rule and precomputed figures of a
// booking. The body uses the commission feed format; overrides in it are ignored.
// PUT /bookings/:id/commission
func (h *BillingHandler) SaveCommissionRule(c *gin.Context) {
	bookingID := c.Param("id")

	body, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	feed, err := commission.ParseFeed(body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.service.SaveCommissionRule(c.Request.Context(), bookingID, feed); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCommissionRuleResponse(bookingID, feed))
}

// SaveCommissionOverride stores the override of one scope.
// PUT /bookings/:id/commission-overrides/:scope?key=
func (h *BillingHandler) SaveCommissionOverride(c *gin.Context) {
	bookingID := c.Param("id")
	target, ok := h.target(c)
	if !ok {
		return
	}

	var req dto.CommissionOverrideRequest
	if !h.BindJSON(c, &req) {
		return
	}
	split := req.ToSplit()

	if err := h.service.SaveCommissionOverride(c.Request.Context(), bookingID, target, split); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCommissionOverrideResponse(bookingID, target, split))
}

// DeleteCommissionOverride removes the override of one scope.
// DELETE /bookings/:id/commission-overrides/:scope?key=
func (h *BillingHandler) DeleteCommissionOverride(c *gin.Context) {
	bookingID := c.Param("id")
	target, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCommissionOverride(c.Request.Context(), bookingID, target); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *BillingHandler) target(c *gin.Context) (commission.Target, bool) {
	var q dto.CommissionOverrideQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return commission.Target{}, false
	}
	target, err := commission.NewTarget(c.Param("scope"), q.Key)
	if err != nil {
		h.HandleError(c, err)
		return commission.Target{}, false
	}
	return target, true
}

// RegisterRoutes mounts the billing endpoints on rg
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings/:id")
	bookings.POST("/summary", h.Summarize)
	bookings.PUT("/commission", h.SaveCommissionRule)
	bookings.PUT("/commission-overrides/:scope", h.SaveCommissionOverride)
	bookings.DELETE("/commission-overrides/:scope", h.DeleteCommissionOverride)
}
