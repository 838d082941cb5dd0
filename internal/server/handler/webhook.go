package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/predicthub/predicthub/internal/crypto"
	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/indexer"
)

// maxWebhookBody caps the accepted webhook payload size.
const maxWebhookBody = 1 << 20 // 1 MiB

// EventIngestor defines the ingestion entrypoint the webhook handler requires.
type EventIngestor interface {
	Ingest(ctx context.Context, env indexer.Envelope) (domain.OnchainEvent, error)
}

// WebhookHandler receives on-chain event envelopes from the chain indexer.
// Every delivery must carry a valid HMAC-SHA256 signature over the raw body
// in the X-Webhook-Signature header.
type WebhookHandler struct {
	ingestor EventIngestor
	secret   string
	logger   *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. An empty secret disables
// signature verification, which is only acceptable in local development.
func NewWebhookHandler(ingestor EventIngestor, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestor: ingestor,
		secret:   secret,
		logger:   logger,
	}
}

// HandleEvent verifies, ingests, and acknowledges one envelope. Replays of
// an already-recorded (tx_hash, log_index) key are acknowledged with the
// stored event marked duplicate; they are never re-applied.
// POST /api/indexer/webhook
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxWebhookBody {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if h.secret != "" {
		sig := r.Header.Get("X-Webhook-Signature")
		if !crypto.VerifySignature(h.secret, body, sig) {
			h.logger.WarnContext(r.Context(), "handler: webhook signature rejected",
				slog.String("remote_addr", r.RemoteAddr),
			)
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var env indexer.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid envelope")
		return
	}

	ev, err := h.ingestor.Ingest(r.Context(), env)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: webhook ingest failed",
				slog.String("tx_hash", env.TxHash),
				slog.Int64("log_index", env.LogIndex),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if !ev.Duplicate {
		status = http.StatusCreated
	}
	writeJSON(w, status, ev)
}
