package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries every runtime knob recognized by the service.
// Chunking and retry values default to the tuned production values; the
// hybrid-selection thresholds and heading length rule are heuristics kept
// configurable for tuning against real documents.
type Config struct {
	// Chunking
	ChunkSize          int
	ChunkOverlap       int
	MaxChunkSize       int
	MinChunkSize       int
	HeadingPatterns    []string
	HeadingMaxLen      int
	MaxOversizedRatio  float64
	MaxUndersizedRatio float64

	// Batch ingestion
	BatchSize  int
	MaxRetries int

	// Vector store
	VectorStore    string // "pgvector" or "weaviate"
	DatabaseURL    string
	WeaviateURL    string
	WeaviateAPIKey string
	CollectionBase string

	// Embeddings
	AIAPIKey   string
	EmbedModel string
	EmbedDim   int

	// Object storage (worker fetch path)
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	// Service
	Port          string
	IngestWorkers int
}

// DefaultHeadingPatterns are the heading-detection regexes used by the topic
// segmenter when HEADING_PATTERNS is not set: markdown hashes, underlined
// titles, numbered sections and Chapter/Section prefixes.
var DefaultHeadingPatterns = []string{
	`(?m)^#{1,6}\s+.+$`,
	`(?m)^.+\n[=\-]{3,}\s*$`,
	`(?m)^\d+(\.\d+)*\.?\s+\S.*$`,
	`(?mi)^(chapter|section|part)\s+\d+.*$`,
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		ChunkSize:          getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 200),
		MaxChunkSize:       getEnvInt("MAX_CHUNK_SIZE", 2000),
		MinChunkSize:       getEnvInt("MIN_CHUNK_SIZE", 100),
		HeadingPatterns:    getEnvList("HEADING_PATTERNS", DefaultHeadingPatterns),
		HeadingMaxLen:      getEnvInt("HEADING_MAX_LEN", 100),
		MaxOversizedRatio:  getEnvFloat("MAX_OVERSIZED_RATIO", 0.30),
		MaxUndersizedRatio: getEnvFloat("MAX_UNDERSIZED_RATIO", 0.50),

		BatchSize:  getEnvInt("BATCH_SIZE", 50),
		MaxRetries: getEnvInt("MAX_RETRIES", 5),

		VectorStore:    getEnv("VECTOR_STORE", "pgvector"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		WeaviateURL:    getEnv("WEAVIATE_URL", ""),
		WeaviateAPIKey: getEnv("WEAVIATE_API_KEY", ""),
		CollectionBase: getEnv("COLLECTION_BASE", "AnyDocChunk"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "anydoc-files"),

		Port:          getEnv("PORT", "8080"),
		IngestWorkers: getEnvInt("INGEST_WORKERS", 4),
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		log.Printf("WARN: CHUNK_OVERLAP %d >= CHUNK_SIZE %d, using %d", cfg.ChunkOverlap, cfg.ChunkSize, cfg.ChunkSize/4)
		cfg.ChunkOverlap = cfg.ChunkSize / 4
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}

// getEnvList splits on "|||" so regex patterns can contain pipes and commas.
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	parts := strings.Split(v, "|||")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
