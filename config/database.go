package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	DB           *mongo.Client
	databaseName string
)

func ConnectDB(cfg *Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}

	// Ping the database
	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}

	DB = client
	databaseName = cfg.Mongo.Database
	fmt.Println("✅ Connected to MongoDB")
}

// Getting database collections
func GetCollection(collectionName string) *mongo.Collection {
	return DB.Database(databaseName).Collection(collectionName)
}

// DisconnectDB closes the MongoDB connection
func DisconnectDB() {
	if DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := DB.Disconnect(ctx); err != nil {
			log.Printf("Error closing MongoDB connection: %v", err)
			return
		}
		fmt.Println("MongoDB connection closed")
	}
}
