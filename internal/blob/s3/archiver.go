package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/predicthub/predicthub/internal/domain"
)

// Archiver exports the full history of resolved markets to object storage.
// Each archived market becomes a small directory of objects under the
// configured prefix:
//
//	{prefix}/{marketID}/manifest.json   market, resolution, record counts
//	{prefix}/{marketID}/trades.jsonl    every trade, newline-delimited JSON
//	{prefix}/{marketID}/prices.jsonl    the per-trade price series
//
// The manifest is written last and doubles as the completion marker: a
// market whose manifest exists is never re-exported. Nothing is deleted
// from the primary store here; pruning is a separate, explicit step to be
// run after an archive has been verified.
type Archiver struct {
	writer      domain.BlobWriter
	reader      domain.BlobReader
	markets     domain.MarketStore
	trades      domain.TradeStore
	prices      domain.PriceHistoryStore
	resolutions domain.ResolutionStore
	audit       domain.AuditStore
	prefix      string
	logger      *slog.Logger
}

// NewArchiver creates an Archiver writing under the given key prefix.
func NewArchiver(
	writer domain.BlobWriter,
	reader domain.BlobReader,
	markets domain.MarketStore,
	trades domain.TradeStore,
	prices domain.PriceHistoryStore,
	resolutions domain.ResolutionStore,
	audit domain.AuditStore,
	prefix string,
	logger *slog.Logger,
) *Archiver {
	if prefix == "" {
		prefix = "markets"
	}
	return &Archiver{
		writer:      writer,
		reader:      reader,
		markets:     markets,
		trades:      trades,
		prices:      prices,
		resolutions: resolutions,
		audit:       audit,
		prefix:      prefix,
		logger:      logger,
	}
}

// manifest is the top-level descriptor written for each archived market.
type manifest struct {
	Market     domain.Market     `json:"market"`
	Resolution domain.Resolution `json:"resolution"`
	TradeCount int               `json:"trade_count"`
	PriceCount int               `json:"price_count"`
	ArchivedAt time.Time         `json:"archived_at"`
}

// Archived reports whether the market has already been exported, using the
// manifest object as the marker.
func (a *Archiver) Archived(ctx context.Context, marketID string) (bool, error) {
	return a.reader.Exists(ctx, a.key(marketID, "manifest.json"))
}

// ArchiveMarket exports one resolved market and returns the number of
// trades written. Markets in any other status are rejected.
func (a *Archiver) ArchiveMarket(ctx context.Context, marketID string) (int64, error) {
	market, err := a.markets.GetByID(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s: %w", marketID, err)
	}
	if market.Status != domain.MarketStatusResolved {
		return 0, fmt.Errorf("s3blob: archive market %s: status %s, want resolved", marketID, market.Status)
	}

	resolution, err := a.resolutions.GetByMarket(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s resolution: %w", marketID, err)
	}

	trades, err := a.trades.ListByMarket(ctx, marketID, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s trades: %w", marketID, err)
	}
	points, err := a.prices.ListByMarket(ctx, marketID, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s prices: %w", marketID, err)
	}

	if err := putJSONL(ctx, a.writer, a.key(marketID, "trades.jsonl"), trades); err != nil {
		return 0, err
	}
	if err := putJSONL(ctx, a.writer, a.key(marketID, "prices.jsonl"), points); err != nil {
		return 0, err
	}

	m := manifest{
		Market:     market,
		Resolution: resolution,
		TradeCount: len(trades),
		PriceCount: len(points),
		ArchivedAt: time.Now().UTC(),
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s manifest: %w", marketID, err)
	}
	if err := a.writer.Put(ctx, a.key(marketID, "manifest.json"), bytes.NewReader(buf), "application/json"); err != nil {
		return 0, fmt.Errorf("s3blob: archive market %s manifest upload: %w", marketID, err)
	}

	count := int64(len(trades))
	if err := a.audit.Log(ctx, "market_archived", map[string]any{
		"market_id":   marketID,
		"trade_count": count,
		"price_count": len(points),
	}); err != nil {
		a.logger.WarnContext(ctx, "archive audit log failed",
			slog.String("market_id", marketID), slog.Any("error", err))
	}
	return count, nil
}

// Sweep archives every resolved market that has no manifest yet and
// returns how many markets were exported. Failures on individual markets
// are logged and skipped so one bad market cannot stall the sweep.
func (a *Archiver) Sweep(ctx context.Context) (int, error) {
	markets, err := a.markets.List(ctx, domain.MarketStatusResolved, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: sweep: %w", err)
	}

	archived := 0
	for _, m := range markets {
		done, err := a.Archived(ctx, m.ID)
		if err != nil {
			a.logger.WarnContext(ctx, "archive marker check failed",
				slog.String("market_id", m.ID), slog.Any("error", err))
			continue
		}
		if done {
			continue
		}
		if _, err := a.ArchiveMarket(ctx, m.ID); err != nil {
			a.logger.WarnContext(ctx, "market archive failed",
				slog.String("market_id", m.ID), slog.Any("error", err))
			continue
		}
		archived++
	}
	return archived, nil
}

func (a *Archiver) key(marketID, name string) string {
	return fmt.Sprintf("%s/%s/%s", a.prefix, marketID, name)
}

func putJSONL[T any](ctx context.Context, w domain.BlobWriter, path string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: marshal %s: %w", path, err)
	}
	if err := w.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", path, err)
	}
	return nil
}

// marshalJSONL serialises a slice as newline-delimited JSON, one compact
// line per element.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
