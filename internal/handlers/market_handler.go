package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/services"
)

type MarketHandler struct {
	marketService     *services.MarketService
	projectionService *services.ProjectionService
}

func NewMarketHandler(marketService *services.MarketService, projectionService *services.ProjectionService) *MarketHandler {
	return &MarketHandler{
		marketService:     marketService,
		projectionService: projectionService,
	}
}

func (h *MarketHandler) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := h.marketService.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		respondMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (h *MarketHandler) GetHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	rng := c.DefaultQuery("range", marketdata.Range6Month)
	interval := c.DefaultQuery("interval", marketdata.Interval1Day)

	if !marketdata.ValidRange(rng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid range: " + rng})
		return
	}
	if !marketdata.ValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval: " + interval})
		return
	}

	bars, err := h.marketService.GetHistory(c.Request.Context(), symbol, rng, interval)
	if err != nil {
		respondMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"range":    rng,
		"interval": interval,
		"bars":     bars,
	})
}

func (h *MarketHandler) GetStatistics(c *gin.Context) {
	symbol := c.Param("symbol")

	stats, err := h.marketService.GetStatistics(c.Request.Context(), symbol)
	if err != nil {
		respondMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *MarketHandler) GetProjection(c *gin.Context) {
	symbol := c.Param("symbol")

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
		return
	}

	projection, err := h.projectionService.GetProjection(c.Request.Context(), symbol, days)
	if errors.Is(err, services.ErrInsufficientHistory) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, projection)
}

func (h *MarketHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	results, err := h.marketService.Search(c.Request.Context(), query)
	if err != nil {
		respondMarketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// respondMarketError maps provider failures onto HTTP statuses: unknown
// symbols are 404, everything else is a 502 with a generic message so
// upstream URLs never leak to clients.
func respondMarketError(c *gin.Context, err error) {
	var noData *marketdata.NoDataError
	if errors.As(err, &noData) {
		c.JSON(http.StatusNotFound, gin.H{"error": noData.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch market data"})
}
