package ingest

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/pkg/natsutil"
)

// NATS subjects used for asynchronous ingestion.
const (
	SubjectIngest   = "edgerag.ingest"
	SubjectDLQ      = "edgerag.ingest.dlq"
	SubjectIngested = "edgerag.ingested"
)

// Ingester is the part of Service the consumer drives.
type Ingester interface {
	Ingest(ctx context.Context, docs []domain.Document) (*Result, error)
}

// DeadLetter is published to SubjectDLQ when a request cannot be ingested.
type DeadLetter struct {
	Subject string `json:"subject"`
	Error   string `json:"error"`
	Data    string `json:"data"`
}

// StartConsumer subscribes to SubjectIngest. Each message is ingested once;
// failures are published to SubjectDLQ and successes to SubjectIngested.
func StartConsumer(nc *nats.Conn, svc Ingester, log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}

	handle := func(ctx context.Context, req Request) error {
		res, err := svc.Ingest(ctx, req.Documents)
		if err != nil {
			return err
		}
		log.Info("ingest: async batch stored", "docs", res.TotalDocs, "chunks", res.TotalChunks)
		if err := natsutil.Publish(ctx, nc, SubjectIngested, res); err != nil {
			log.Warn("ingest: publish ingested event", "err", err)
		}
		return nil
	}

	deadLetter := func(ctx context.Context, msg *nats.Msg, err error) {
		log.Error("ingest: async batch failed", "subject", msg.Subject, "err", err)
		dl := DeadLetter{Subject: msg.Subject, Error: err.Error(), Data: string(msg.Data)}
		if perr := natsutil.Publish(ctx, nc, SubjectDLQ, dl); perr != nil {
			log.Error("ingest: publish dead letter", "err", perr)
		}
	}

	return natsutil.Subscribe(nc, SubjectIngest, handle, deadLetter)
}
