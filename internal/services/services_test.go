package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gigbazaar/api/internal/config"
)

var testMongoURI string

func init() {
	// Get current file path
	_, filename, _, _ := runtime.Caller(0)
	// Try to load .env from project root (3 levels up from this file)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		// Try current directory as fallback
		godotenv.Load()
	}

	testMongoURI = os.Getenv("MONGO_URI_TEST")
	if testMongoURI == "" {
		panic("MONGO_URI_TEST environment variable is required for tests")
	}
}

func setupTestDB(t *testing.T, dbName string) (*mongo.Database, func()) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(testMongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")
	db := client.Database(dbName)

	cleanup := func() {
		if err := db.Drop(context.Background()); err != nil {
			t.Logf("Failed to drop database %s: %v", dbName, err)
		}
		if err := client.Disconnect(context.Background()); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %v", err)
		}
	}
	return db, cleanup
}

func testConfig() *config.Config {
	return &config.Config{
		OfferTTL:            48 * time.Hour,
		ExpirySweepInterval: time.Minute,
		MaxNegotiationRound: 0,
		MinOfferPrice:       0.01,
		AppName:             "GigBazaar",
	}
}

func uniqueDBName(prefix string) string {
	return fmt.Sprintf("testdb_%s_%d", prefix, time.Now().UnixNano())
}
