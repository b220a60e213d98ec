package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/handlers"
	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize MongoDB
	config.ConnectDB(cfg)

	// Initialize services
	provider := marketdata.NewYahooProvider(cfg.Provider.BaseURL, cfg.ProviderTimeout())
	marketService := services.NewMarketService(provider, cfg)
	projectionService := services.NewProjectionService(marketService, cfg)
	portfolioService := services.NewPortfolioService(marketService)
	newsService := services.NewNewsService(provider, cfg.News.Topics)
	chatService := services.NewChatService(marketService, portfolioService, newsService)
	authService := services.NewAuthService()
	wsHub := services.NewWebSocketHub()
	scheduler := services.NewScheduler(cfg, newsService, portfolioService, marketService)

	// Start WebSocket hub in goroutine
	go wsHub.Run()

	// Start live quote streaming
	go streamQuotes(cfg, wsHub, marketService, portfolioService)

	// Start background jobs
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize handlers
	marketHandler := handlers.NewMarketHandler(marketService, projectionService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	chatHandler := handlers.NewChatHandler(chatService)
	newsHandler := handlers.NewNewsHandler(newsService)
	authHandler := handlers.NewAuthHandler(authService, cfg.Auth.JWTSecret)

	// Auth middleware helper
	authMiddleware := authHandler.AuthMiddleware()

	// Routes
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "OK",
			"message": "Portfolio Tracker API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /health",
				"GET /api/stocks/search?q=",
				"GET /api/stocks/:symbol",
				"GET /api/stocks/:symbol/history",
				"GET /api/stocks/:symbol/statistics",
				"GET /api/stocks/:symbol/projection",
				"GET /ws",
				"GET /api/portfolio",
				"POST /api/portfolio/holdings",
				"DELETE /api/portfolio/holdings/:symbol",
				"POST /api/chat",
				"GET /api/chat/history",
				"GET /api/news",
				"POST /api/auth/register",
				"POST /api/auth/login",
				"GET /api/auth/me",
			},
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "OK",
			"message": "Portfolio Tracker API is running",
		})
	})

	// Market data routes
	router.GET("/api/stocks/search", marketHandler.Search)
	router.GET("/api/stocks/:symbol", marketHandler.GetQuote)
	router.GET("/api/stocks/:symbol/history", marketHandler.GetHistory)
	router.GET("/api/stocks/:symbol/statistics", marketHandler.GetStatistics)
	router.GET("/api/stocks/:symbol/projection", marketHandler.GetProjection)

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		username := c.Query("username")
		if username == "" {
			username = "Anonymous"
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to upgrade to WebSocket"})
			return
		}

		client := wsHub.RegisterClient(conn, username)
		log.Printf("WebSocket connection established for user: %s", username)

		// Start client pumps
		go client.WritePump()
		go client.ReadPump()
	})

	// Protected portfolio routes - require authentication
	router.GET("/api/portfolio", authMiddleware, portfolioHandler.GetPortfolio)
	router.POST("/api/portfolio/holdings", authMiddleware, portfolioHandler.AddHolding)
	router.DELETE("/api/portfolio/holdings/:symbol", authMiddleware, portfolioHandler.RemoveHolding)

	// Protected chat routes - require authentication
	router.POST("/api/chat", authMiddleware, chatHandler.SendMessage)
	router.GET("/api/chat/history", authMiddleware, chatHandler.GetHistory)

	// News routes
	router.GET("/api/news", newsHandler.GetNews)

	// Auth routes
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)
	router.GET("/api/auth/me", authMiddleware, authHandler.GetCurrentUser)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		fmt.Printf("🚀 Portfolio Tracker API running on port %s\n", cfg.Server.Port)
		fmt.Printf("📊 API available at http://localhost:%s\n", cfg.Server.Port)
		fmt.Printf("🔌 WebSocket available at ws://localhost:%s/ws\n", cfg.Server.Port)
		fmt.Printf("🔐 Auth available at http://localhost:%s/api/auth\n", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	scheduler.Stop()
	config.DisconnectDB()
	log.Println("Goodbye")
}

// streamQuotes pushes fresh quotes for the watched symbols into the
// hub, which fans them out per client watch set. Held symbols take
// priority over the configured watchlist so users see their own
// positions move.
func streamQuotes(cfg *config.Config, hub *services.WebSocketHub, marketService *services.MarketService, portfolioService *services.PortfolioService) {
	// Add delay before starting to allow server to fully initialize
	time.Sleep(2 * time.Second)
	log.Println("📈 Starting live quote stream...")

	broadcast := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StreamInterval())
		defer cancel()

		symbols, err := portfolioService.AllSymbols(ctx)
		if err != nil || len(symbols) == 0 {
			symbols = cfg.Stream.Watchlist
		}
		for _, symbol := range symbols {
			quote, err := marketService.GetQuote(ctx, symbol)
			if err != nil {
				log.Printf("Error fetching %s: %v", symbol, err)
				continue
			}
			hub.BroadcastQuote(*quote)
		}
	}

	broadcast()
	ticker := time.NewTicker(cfg.StreamInterval())
	defer ticker.Stop()
	for range ticker.C {
		broadcast()
	}
}
