package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"crownbidder/internal/domain"
	"crownbidder/internal/gateway"
	"crownbidder/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AuctionHandler exposes the operator surface for auction lifecycle plus
// the status endpoint clients hit to reconcile after a reconnect.
type AuctionHandler struct {
	statuses *gateway.StatusService
	log      logger.Logger
}

type CreateAuctionRequest struct {
	TenantID string `json:"tenant_id"`
}

type ScheduleAuctionRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func NewAuctionHandler(statuses *gateway.StatusService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		statuses: statuses,
		log:      log,
	}
}

func (h *AuctionHandler) Register(g *echo.Group) {
	g.POST("/auctions", h.CreateAuction)
	g.POST("/auctions/:id/schedule", h.ScheduleAuction)
	g.POST("/auctions/:id/pause", h.PauseAuction)
	g.POST("/auctions/:id/resume", h.ResumeAuction)
	g.POST("/auctions/:id/end", h.EndAuction)
	g.GET("/auctions/:id/status", h.GetStatus)
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.TenantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tenant_id is required"})
	}

	auction, err := h.statuses.CreateAuction(c.Request().Context(), req.TenantID)
	if err != nil {
		h.log.Error("Failed to create auction", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create auction"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"data": auction})
}

func (h *AuctionHandler) ScheduleAuction(c echo.Context) error {
	auctionID := c.Param("id")

	var req ScheduleAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.StartTime.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Start time must be in the future"})
	}
	if !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "End time must be after start time"})
	}

	if err := h.statuses.Schedule(c.Request().Context(), auctionID, req.StartTime, req.EndTime); err != nil {
		h.log.Error("Failed to schedule auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Auction scheduled"})
}

func (h *AuctionHandler) PauseAuction(c echo.Context) error {
	return h.transition(c, h.statuses.Pause, "Auction paused")
}

func (h *AuctionHandler) ResumeAuction(c echo.Context) error {
	return h.transition(c, h.statuses.Resume, "Auction resumed")
}

func (h *AuctionHandler) EndAuction(c echo.Context) error {
	return h.transition(c, h.statuses.End, "Auction ended")
}

func (h *AuctionHandler) transition(c echo.Context, apply func(ctx context.Context, auctionID string) error, message string) error {
	auctionID := c.Param("id")

	if err := apply(c.Request().Context(), auctionID); err != nil {
		h.log.Error("Status transition rejected", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": message})
}

func (h *AuctionHandler) GetStatus(c echo.Context) error {
	auctionID := c.Param("id")

	status, err := h.statuses.Status(c.Request().Context(), auctionID)
	if errors.Is(err, domain.ErrAuctionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
	}
	if err != nil {
		h.log.Error("Failed to read auction status", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read status"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": map[string]string{
			"auction_id": auctionID,
			"status":     string(status),
		},
	})
}
