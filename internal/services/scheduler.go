package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"portfolio-tracker/config"
)

// Scheduler runs the recurring background jobs: the daily news refresh
// and the pre-open quote cache warmup.
type Scheduler struct {
	cron      *cron.Cron
	cfg       *config.Config
	news      *NewsService
	portfolio *PortfolioService
	market    *MarketService
}

func NewScheduler(cfg *config.Config, news *NewsService, portfolio *PortfolioService, market *MarketService) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		cfg:       cfg,
		news:      news,
		portfolio: portfolio,
		market:    market,
	}
}

// Start registers the jobs and launches the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.News.RefreshCron, s.refreshNews); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.Jobs.WarmupCron, s.warmQuotes); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("✅ Scheduler started: news refresh %q, cache warmup %q",
		s.cfg.News.RefreshCron, s.cfg.Jobs.WarmupCron)
	return nil
}

// Stop halts the cron loop and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) refreshNews() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	s.news.Refresh(ctx)
}

// warmQuotes primes the quote cache for every held symbol so the first
// portfolio views of the day do not pay provider round-trips.
func (s *Scheduler) warmQuotes() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	symbols, err := s.portfolio.AllSymbols(ctx)
	if err != nil {
		log.Printf("Error loading symbols for warmup: %v", err)
		return
	}
	if len(symbols) == 0 {
		return
	}
	quotes, failed := s.market.GetQuotes(ctx, symbols)
	log.Printf("✅ Quote warmup: %d cached, %d failed", len(quotes), len(failed))
}
