package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/models"
)

// NewsService keeps a curated set of market headlines in Mongo,
// refreshed on a schedule from the provider's news search.
type NewsService struct {
	articles *mongo.Collection
	provider marketdata.Provider
	topics   []string
}

func NewNewsService(provider marketdata.Provider, topics []string) *NewsService {
	return &NewsService{
		articles: config.GetCollection("news"),
		provider: provider,
		topics:   topics,
	}
}

// List returns the most recent stored headlines, newest first. An empty
// store is seeded with starter articles so the feed is never blank.
func (s *NewsService) List(ctx context.Context, limit int64) ([]models.NewsArticle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	articles, err := s.query(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		s.seed(ctx)
		return s.query(ctx, limit)
	}
	return articles, nil
}

// Refresh pulls fresh headlines for every configured topic and upserts
// them by link. Topics that fail leave the stored set untouched.
func (s *NewsService) Refresh(ctx context.Context) {
	stored := 0
	for _, topic := range s.topics {
		articles, err := s.provider.News(ctx, topic)
		if err != nil {
			log.Printf("⚠️ News refresh failed for topic %q: %v", topic, err)
			continue
		}
		for _, a := range articles {
			filter := bson.M{"link": a.Link}
			update := bson.M{
				"$set": bson.M{
					"title":           a.Title,
					"publisher":       a.Publisher,
					"link":            a.Link,
					"summary":         a.Summary,
					"topic":           topic,
					"related_symbols": a.RelatedSymbols,
					"published_at":    a.PublishedAt,
				},
				"$setOnInsert": bson.M{
					"created_at": time.Now(),
				},
			}
			opts := options.Update().SetUpsert(true)
			if _, err := s.articles.UpdateOne(ctx, filter, update, opts); err != nil {
				log.Printf("Error storing article %q: %v", a.Title, err)
				continue
			}
			stored++
		}
	}
	log.Printf("✅ News refresh complete: %d articles stored", stored)
}

func (s *NewsService) query(ctx context.Context, limit int64) ([]models.NewsArticle, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.articles.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	articles := make([]models.NewsArticle, 0)
	if err := cur.All(ctx, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// seed inserts starter headlines so a fresh deployment has content
// before the first scheduled refresh lands.
func (s *NewsService) seed(ctx context.Context) {
	now := time.Now()
	starters := []interface{}{
		models.NewsArticle{
			ID:          primitive.NewObjectID(),
			Title:       "Markets steady as investors weigh the rate path",
			Publisher:   "Portfolio Tracker",
			Topic:       "stock market",
			PublishedAt: now,
			CreatedAt:   now,
		},
		models.NewsArticle{
			ID:          primitive.NewObjectID(),
			Title:       "Fed officials signal patience on policy shifts",
			Publisher:   "Portfolio Tracker",
			Topic:       "federal reserve",
			PublishedAt: now.Add(-time.Hour),
			CreatedAt:   now,
		},
		models.NewsArticle{
			ID:          primitive.NewObjectID(),
			Title:       "Earnings season opens with the megacaps in focus",
			Publisher:   "Portfolio Tracker",
			Topic:       "earnings",
			PublishedAt: now.Add(-2 * time.Hour),
			CreatedAt:   now,
		},
	}
	if _, err := s.articles.InsertMany(ctx, starters); err != nil {
		log.Printf("Error seeding news: %v", err)
	}
}
