package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sketchwars/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort          string
	DatabaseURL      string
	JWTSecret        string
	ModelServiceBase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Game tunables
	SoftmaxFactor   float64
	DistancePerTurn float64
	TotalNumTurns   int
	CanvasSize      int

	// Realtime behavior
	DisconnectGrace time.Duration
	AIStrokeTimeout time.Duration

	// Label pairs available to new rooms, each entry "label1-label2"
	LabelPairs []string
}

// Load reads the configuration from the environment.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	msBase := os.Getenv("MODEL_SERVICE_BASE")
	if msBase == "" {
		msBase = "http://localhost:5002"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := &Config{
		AppPort:          port,
		DatabaseURL:      dbURL,
		JWTSecret:        jwtSecret,
		ModelServiceBase: msBase,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envInt("REDIS_DB", 0),
		SoftmaxFactor:    envFloat("SOFTMAX_FACTOR", 7.0),
		DistancePerTurn:  envFloat("DISTANCE_PER_TURN", 40),
		TotalNumTurns:    envInt("TOTAL_NUM_TURNS", 10),
		CanvasSize:       envInt("CANVAS_SIZE", 100),
		DisconnectGrace:  envDuration("DISCONNECT_GRACE_SECONDS", 2*time.Second),
		AIStrokeTimeout:  envDuration("AI_STROKE_TIMEOUT_SECONDS", 90*time.Second),
		LabelPairs:       envList("LABEL_PAIRS", []string{"clock-sheep", "duck-pig", "guitar-tree"}),
	}

	if cfg.TotalNumTurns%2 != 0 {
		logger.Warn("TOTAL_NUM_TURNS is odd, turn counts will be unfair", "turns", cfg.TotalNumTurns)
	}

	return cfg
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func envList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, item := range strings.Split(v, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				out = append(out, item)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
