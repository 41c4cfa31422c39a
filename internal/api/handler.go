// Package api exposes orders and delay statistics over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/orders"
	"github.com/alenjb/deli/internal/repositories"
	"github.com/alenjb/deli/internal/stats"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	orders     *orders.Service
	aggregator *stats.Aggregator
	stores     repositories.StoreRepository
	log        *slog.Logger
}

func NewHandler(orderService *orders.Service, aggregator *stats.Aggregator, stores repositories.StoreRepository, log *slog.Logger) *Handler {
	return &Handler{
		orders:     orderService,
		aggregator: aggregator,
		stores:     stores,
		log:        log,
	}
}

// SetupRoutes configures all routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	o := router.Group("/orders")
	{
		o.POST("", h.MakeOrder)
		o.GET("/:orderId", h.GetOrder)
		o.POST("/:orderId/complete", h.CompleteDelivery)
		o.POST("/:orderId/confirm", h.ConfirmDelivery)
		o.POST("/:orderId/eta/adjust", h.AdjustEta)
		o.POST("/:orderId/eta/cooking-completed", h.CookingCompleted)
		o.GET("/:orderId/eta-history", h.EtaHistory)
	}

	api := router.Group("/api")
	{
		api.GET("/stores", h.ListStores)
		api.GET("/stores/ranking", h.StoreRanking)
		api.GET("/stores/:storeId", h.GetStore)
		api.GET("/stores/:storeId/delay-summary", h.GetDelaySummary)
		api.POST("/stores/:storeId/delay-summary/refresh", h.RefreshDelaySummary)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) MakeOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	order, err := h.orders.MakeOrder(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewOrderResponse(order))
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":          models.NewOrderResponse(order),
		"status_message": order.Status.Message(),
		"delayed":        order.IsDelayed(),
		"delay_minutes":  order.DelayMinutes(),
	})
}

func (h *Handler) CompleteDelivery(c *gin.Context) {
	deliveredAt, ok := h.deliveredAt(c)
	if !ok {
		return
	}

	order, summary, err := h.orders.CompleteDelivery(c.Request.Context(), c.Param("orderId"), deliveredAt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":         models.NewOrderResponse(order),
		"delayed":       order.IsDelayed(),
		"delay_minutes": order.DelayMinutes(),
		"store_summary": models.NewStoreDelaySummaryResponse(*summary),
	})
}

func (h *Handler) ConfirmDelivery(c *gin.Context) {
	deliveredAt, ok := h.deliveredAt(c)
	if !ok {
		return
	}

	evt, err := h.orders.ConfirmDelivery(c.Request.Context(), c.Param("orderId"), deliveredAt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, evt)
}

type adjustEtaRequest struct {
	AdditionalMinutes int    `json:"additional_minutes"`
	Reason            string `json:"reason"`
}

func (h *Handler) AdjustEta(c *gin.Context) {
	var req adjustEtaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	order, err := h.orders.AdjustEtaByStore(c.Request.Context(), c.Param("orderId"), req.AdditionalMinutes, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewOrderResponse(order))
}

func (h *Handler) CookingCompleted(c *gin.Context) {
	order, err := h.orders.AdjustEtaOnCookingCompleted(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewOrderResponse(order))
}

func (h *Handler) EtaHistory(c *gin.Context) {
	history, err := h.orders.EtaHistory(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if history == nil {
		history = []*models.EtaHistory{}
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("orderId"), "history": history})
}

func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.stores.GetAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if stores == nil {
		stores = []*models.Store{}
	}
	c.JSON(http.StatusOK, stores)
}

func (h *Handler) GetStore(c *gin.Context) {
	store, err := h.stores.Get(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

func (h *Handler) GetDelaySummary(c *gin.Context) {
	summary, err := h.aggregator.GetStoreSummary(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewStoreDelaySummaryResponse(*summary))
}

func (h *Handler) RefreshDelaySummary(c *gin.Context) {
	summary, applied, err := h.aggregator.UpdateDelayStats(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applied": applied,
		"summary": models.NewStoreDelaySummaryResponse(*summary),
	})
}

func (h *Handler) StoreRanking(c *gin.Context) {
	summaries, err := h.aggregator.GetStoreRanking(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ranking := make([]models.StoreDelaySummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		ranking = append(ranking, models.NewStoreDelaySummaryResponse(*s))
	}
	c.JSON(http.StatusOK, ranking)
}

// deliveredAt reads the optional RFC 3339 deliveredAt query parameter. It writes the 400
// response itself and reports false when the value does not parse.
func (h *Handler) deliveredAt(c *gin.Context) (time.Time, bool) {
	raw := c.Query("deliveredAt")
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deliveredAt must be an RFC 3339 timestamp"})
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrStoreNotFound),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrSummaryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyDelivered):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidRequest):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
