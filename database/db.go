package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"broadway/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoClient holds chat transcripts and their rolling summaries.
var MongoClient *mongo.Client

// InitDB connects to MongoDB and exits the process if it stays unreachable.
func InitDB() {
	client, err := connectMongo(context.Background(), config.AppConfig.MongoURL)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	MongoClient = client
	log.Printf("Connected to MongoDB (database %q)", config.AppConfig.MongoDatabase)
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("broadway").
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping primary: %w", err)
	}
	return client, nil
}

// MongoDatabase is the transcript database named by MONGO_DATABASE.
func MongoDatabase() *mongo.Database {
	return MongoClient.Database(config.AppConfig.MongoDatabase)
}

// CloseDB disconnects the transcript store.
func CloseDB() {
	if MongoClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := MongoClient.Disconnect(ctx); err != nil {
		log.Printf("MongoDB disconnect: %v", err)
	}
}
