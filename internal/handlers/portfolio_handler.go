package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-tracker/internal/services"
)

type PortfolioHandler struct {
	portfolioService *services.PortfolioService
}

func NewPortfolioHandler(portfolioService *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// AddHoldingRequest - records a purchased lot
type AddHoldingRequest struct {
	Symbol       string  `json:"symbol" binding:"required"`
	Shares       float64 `json:"shares" binding:"required,gt=0"`
	AvgPrice     float64 `json:"avgPrice" binding:"required,gt=0"`
	PurchaseDate string  `json:"purchaseDate"` // YYYY-MM-DD, defaults to today
}

func (h *PortfolioHandler) AddHolding(c *gin.Context) {
	// Get authenticated user ID from JWT
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req AddHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	var purchaseDate time.Time
	if req.PurchaseDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "purchaseDate must be YYYY-MM-DD"})
			return
		}
		purchaseDate = parsed
	}

	holding, err := h.portfolioService.AddHolding(
		c.Request.Context(), userID.(string), req.Symbol, req.Shares, req.AvgPrice, purchaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Holding added successfully",
		"holding": holding,
	})
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	// Get authenticated user ID from JWT
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	valuation, err := h.portfolioService.GetValuation(c.Request.Context(), userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, valuation)
}

func (h *PortfolioHandler) RemoveHolding(c *gin.Context) {
	// Get authenticated user ID from JWT
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	symbol := c.Param("symbol")
	err := h.portfolioService.RemoveHolding(c.Request.Context(), userID.(string), symbol)
	if errors.Is(err, services.ErrHoldingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no holding found for " + symbol})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove holding: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Holding removed successfully",
		"symbol":  symbol,
	})
}
