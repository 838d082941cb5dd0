package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

type memBlob struct {
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: map[string][]byte{}}
}

func (m *memBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = buf
	return nil
}

func (m *memBlob) Get(_ context.Context, path string) (io.ReadCloser, error) {
	buf, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (m *memBlob) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			infos = append(infos, domain.BlobInfo{Path: k, Size: int64(len(v))})
		}
	}
	return infos, nil
}

func (m *memBlob) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

type archiveFixture struct {
	markets     map[string]domain.Market
	trades      map[string][]domain.Trade
	prices      map[string][]domain.PricePoint
	resolutions map[string]domain.Resolution
	audits      []string
}

func (f *archiveFixture) Create(_ context.Context, m domain.Market) error {
	f.markets[m.ID] = m
	return nil
}

func (f *archiveFixture) GetByID(_ context.Context, id string) (domain.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *archiveFixture) Update(_ context.Context, m domain.Market) error {
	f.markets[m.ID] = m
	return nil
}

func (f *archiveFixture) List(_ context.Context, status domain.MarketStatus, _ domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *archiveFixture) CreateTrade(_ context.Context, t domain.Trade) error {
	f.trades[t.MarketID] = append(f.trades[t.MarketID], t)
	return nil
}

func (f *archiveFixture) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.Trade, error) {
	return f.trades[marketID], nil
}

func (f *archiveFixture) ListByUser(_ context.Context, _ string, _ domain.ListOpts) ([]domain.Trade, error) {
	return nil, nil
}

func (f *archiveFixture) CountByUser(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (f *archiveFixture) CountWinsByUser(_ context.Context, _ string, _ domain.Outcome) (int64, error) {
	return 0, nil
}

type fixturePrices archiveFixture

func (f *fixturePrices) Append(_ context.Context, p domain.PricePoint) error {
	f.prices[p.MarketID] = append(f.prices[p.MarketID], p)
	return nil
}

func (f *fixturePrices) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.PricePoint, error) {
	return f.prices[marketID], nil
}

type fixtureResolutions archiveFixture

func (f *fixtureResolutions) Create(_ context.Context, r domain.Resolution) error {
	f.resolutions[r.MarketID] = r
	return nil
}

func (f *fixtureResolutions) GetByMarket(_ context.Context, marketID string) (domain.Resolution, error) {
	r, ok := f.resolutions[marketID]
	if !ok {
		return domain.Resolution{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fixtureResolutions) MarkSettled(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type fixtureAudit archiveFixture

func (f *fixtureAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.audits = append(f.audits, event)
	return nil
}

func (f *fixtureAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func newFixture() *archiveFixture {
	return &archiveFixture{
		markets:     map[string]domain.Market{},
		trades:      map[string][]domain.Trade{},
		prices:      map[string][]domain.PricePoint{},
		resolutions: map[string]domain.Resolution{},
	}
}

func newTestArchiver(f *archiveFixture, blob *memBlob) *Archiver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewArchiver(blob, blob, f, tradeStoreAdapter{f}, (*fixturePrices)(f), (*fixtureResolutions)(f), (*fixtureAudit)(f), "markets", logger)
}

// tradeStoreAdapter maps the fixture's CreateTrade onto the TradeStore
// interface, whose Create collides with the market store's.
type tradeStoreAdapter struct{ f *archiveFixture }

func (a tradeStoreAdapter) Create(ctx context.Context, t domain.Trade) error {
	return a.f.CreateTrade(ctx, t)
}

func (a tradeStoreAdapter) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	return a.f.ListByMarket(ctx, marketID, opts)
}

func (a tradeStoreAdapter) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	return a.f.ListByUser(ctx, userID, opts)
}

func (a tradeStoreAdapter) CountByUser(ctx context.Context, userID string) (int64, error) {
	return a.f.CountByUser(ctx, userID)
}

func (a tradeStoreAdapter) CountWinsByUser(ctx context.Context, userID string, outcome domain.Outcome) (int64, error) {
	return a.f.CountWinsByUser(ctx, userID, outcome)
}

func seedResolvedMarket(f *archiveFixture, id string, trades int) {
	outcome := domain.OutcomeYes
	f.markets[id] = domain.Market{
		ID:                id,
		Title:             "Will it rain tomorrow?",
		Status:            domain.MarketStatusResolved,
		ResolutionOutcome: &outcome,
	}
	f.resolutions[id] = domain.Resolution{
		ID:              "res-" + id,
		MarketID:        id,
		ResolvedOutcome: outcome,
	}
	for i := 0; i < trades; i++ {
		f.trades[id] = append(f.trades[id], domain.Trade{
			ID:           "t" + id,
			MarketID:     id,
			UserID:       "alice",
			Outcome:      domain.OutcomeYes,
			Side:         domain.TradeSideBuy,
			AmountStaked: decimal.NewFromInt(100),
		})
		f.prices[id] = append(f.prices[id], domain.PricePoint{
			MarketID: id,
			YesPrice: decimal.NewFromFloat(0.6),
			NoPrice:  decimal.NewFromFloat(0.4),
		})
	}
}

func TestArchiveMarketWritesObjects(t *testing.T) {
	f := newFixture()
	blob := newMemBlob()
	seedResolvedMarket(f, "mkt-1", 2)

	arch := newTestArchiver(f, blob)
	count, err := arch.ArchiveMarket(context.Background(), "mkt-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.Contains(t, blob.objects, "markets/mkt-1/manifest.json")
	require.Contains(t, blob.objects, "markets/mkt-1/trades.jsonl")
	require.Contains(t, blob.objects, "markets/mkt-1/prices.jsonl")

	var m manifest
	require.NoError(t, json.Unmarshal(blob.objects["markets/mkt-1/manifest.json"], &m))
	assert.Equal(t, "mkt-1", m.Market.ID)
	assert.Equal(t, 2, m.TradeCount)
	assert.Equal(t, 2, m.PriceCount)
	assert.False(t, m.ArchivedAt.IsZero())

	lines := strings.Split(strings.TrimRight(string(blob.objects["markets/mkt-1/trades.jsonl"]), "\n"), "\n")
	assert.Len(t, lines, 2)

	assert.Equal(t, []string{"market_archived"}, f.audits)
}

func TestArchiveMarketRejectsUnresolved(t *testing.T) {
	f := newFixture()
	f.markets["mkt-open"] = domain.Market{ID: "mkt-open", Status: domain.MarketStatusActive}

	arch := newTestArchiver(f, newMemBlob())
	_, err := arch.ArchiveMarket(context.Background(), "mkt-open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want resolved")
}

func TestSweepSkipsAlreadyArchived(t *testing.T) {
	f := newFixture()
	blob := newMemBlob()
	seedResolvedMarket(f, "mkt-1", 1)
	seedResolvedMarket(f, "mkt-2", 1)
	f.markets["mkt-open"] = domain.Market{ID: "mkt-open", Status: domain.MarketStatusActive}

	arch := newTestArchiver(f, blob)
	ctx := context.Background()

	n, err := arch.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Second sweep finds the manifests and exports nothing.
	n, err = arch.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	archived, err := arch.Archived(ctx, "mkt-1")
	require.NoError(t, err)
	assert.True(t, archived)
}
