package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config is the process-wide dependency handle, constructed once in main and
// passed explicitly; no package keeps its own global client.
type Config struct {
	MongoClient *mongo.Client
	DBName      string
	JWTSecret   string

	TelegramBotToken string
	TelegramChatID   int64

	// BoxCost is the price of one charity box in whole currency units; it is
	// the divisor for deriving box counts from bare amounts.
	BoxCost int64

	Port string
}

// Load reads the environment and connects to MongoDB. Missing optional values
// fall back to fixed defaults with a log line; only an unreachable database is
// fatal to startup.
func Load() (*Config, error) {
	cfg := &Config{
		DBName:           getEnv("DB_NAME", "athar"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-me"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Port:             getEnv("PORT", "8080"),
		BoxCost:          250,
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Printf("invalid TELEGRAM_CHAT_ID %q, telegram disabled", v)
		} else {
			cfg.TelegramChatID = id
		}
	}
	if v := os.Getenv("BOX_COST"); v != "" {
		cost, err := strconv.ParseInt(v, 10, 64)
		if err != nil || cost <= 0 {
			log.Printf("invalid BOX_COST %q, using default %d", v, cfg.BoxCost)
		} else {
			cfg.BoxCost = cost
		}
	}

	uri := getEnv("MONGO_URI", "mongodb://localhost:27017")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	cfg.MongoClient = client

	return cfg, nil
}

// Collection is shorthand for a collection in the configured database.
func (c *Config) Collection(name string) *mongo.Collection {
	return c.MongoClient.Database(c.DBName).Collection(name)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	log.Printf("%s not set, using default", key)
	return fallback
}
