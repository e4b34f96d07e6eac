package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/engine/ingest"
	"github.com/WessleyAI/edgerag-helpdesk/engine/rag"
	"github.com/WessleyAI/edgerag-helpdesk/pkg/mid"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// Asker answers chat questions.
type Asker interface {
	Ask(ctx context.Context, q rag.Question) (*rag.Answer, error)
}

// server holds the handler dependencies.
type server struct {
	cfg     Config
	ingest  ingest.Ingester
	chat    Asker
	metrics *apiMetrics
	log     *slog.Logger
}

// routes builds the HTTP handler with its middleware chain.
func (s *server) routes() http.Handler {
	var limiter *rate.Limiter
	if s.cfg.ChatRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.ChatRPS), max(s.cfg.ChatBurst, 1))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("POST /api/ingest", mid.Bearer(s.cfg.IngestToken)(http.HandlerFunc(s.handleIngest)))
	mux.Handle("POST /api/chat", mid.RateLimit(limiter)(http.HandlerFunc(s.handleChat)))
	mux.Handle("GET /metrics", s.metrics.reg.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		mid.Error(w, http.StatusNotFound, "Not found")
	})

	return mid.Chain(mux,
		mid.Recover(s.log),
		mid.OTel("edgerag-api"),
		mid.Logger(s.log),
		mid.CORS(s.cfg.CORSOrigin),
	)
}

// HealthResponse is the JSON response for GET /api/health.
type HealthResponse struct {
	OK         bool   `json:"ok"`
	Gateway    string `json:"gateway"`
	EmbedModel string `json:"embedModel"`
	ChatModel  string `json:"chatModel"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	mid.JSON(w, http.StatusOK, HealthResponse{
		OK:         true,
		Gateway:    s.cfg.GatewayID,
		EmbedModel: s.cfg.EmbedModel,
		ChatModel:  s.cfg.ChatModel,
	})
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if err := decodeBody(w, r, &req); err != nil {
		mid.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.ingest.Ingest(r.Context(), req.Documents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	mid.JSON(w, http.StatusOK, res)
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var q rag.Question
	if err := decodeBody(w, r, &q); err != nil {
		mid.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ans, err := s.chat.Ask(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	mid.JSON(w, http.StatusOK, ans)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeError maps pipeline errors onto the {"error"} envelope.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		mid.Error(w, http.StatusBadRequest, ve.Wrapped.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		mid.Error(w, http.StatusUnauthorized, "Unauthorized")
	default:
		s.log.Error("request failed", "err", err)
		mid.Error(w, http.StatusInternalServerError, err.Error())
	}
}
