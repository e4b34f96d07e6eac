package main

import (
	"os"
	"strconv"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	DefaultTenant   string
	TopK            int
	MaxContextChars int
	EmbedModel      string
	ChatModel       string
	EmbedDims       int
	GatewayID       string
	IngestToken     string
	OllamaURL       string
	QdrantURL       string
	Collection      string
	NATSURL         string
	CORSOrigin      string
	ChatRPS         float64
	ChatBurst       int
	BreakerFailures int
}

func loadConfig() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		DefaultTenant:   envOr("DEFAULT_TENANT", "public"),
		TopK:            envInt("TOP_K", 6),
		MaxContextChars: envInt("MAX_CONTEXT_CHARS", 8000),
		EmbedModel:      envOr("EMBED_MODEL", "nomic-embed-text"),
		ChatModel:       envOr("CHAT_MODEL", "llama3.1:8b"),
		EmbedDims:       envInt("EMBED_DIMS", 768),
		GatewayID:       envOr("AI_GATEWAY_ID", "edgerag"),
		IngestToken:     os.Getenv("INGEST_TOKEN"),
		OllamaURL:       envOr("OLLAMA_URL", "http://localhost:11434"),
		QdrantURL:       envOr("QDRANT_URL", "localhost:6334"),
		Collection:      envOr("QDRANT_COLLECTION", "edgerag"),
		NATSURL:         os.Getenv("NATS_URL"),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
		ChatRPS:         envFloat("CHAT_RPS", 10),
		ChatBurst:       envInt("CHAT_BURST", 20),
		BreakerFailures: envInt("BREAKER_FAILURES", 5),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses key as an integer; missing or non-numeric values use fallback.
func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}
