package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// memStores is an in-memory implementation of domain.Stores for service
// tests. It is not safe for concurrent use; tests that need serialization
// exercise the service-level locks instead.
type memStores struct {
	markets     map[string]domain.Market
	tokens      map[string]*domain.Pool
	positions   map[string]domain.Position // key: userID + "/" + marketID
	trades      []domain.Trade
	prices      []domain.PricePoint
	resolutions map[string]domain.Resolution // key: marketID
	disputes    []domain.Dispute
	users       map[string]domain.UserStats
	liquidity   []domain.LiquidityEvent
	events      map[string]domain.OnchainEvent // key: txHash + "/" + logIndex
	audit       []domain.AuditEntry
}

func newMemStores() *memStores {
	return &memStores{
		markets:     map[string]domain.Market{},
		tokens:      map[string]*domain.Pool{},
		positions:   map[string]domain.Position{},
		resolutions: map[string]domain.Resolution{},
		users:       map[string]domain.UserStats{},
		events:      map[string]domain.OnchainEvent{},
	}
}

func (m *memStores) bundle() domain.Stores {
	return domain.Stores{
		Markets:     (*memMarketStore)(m),
		Tokens:      (*memTokenStore)(m),
		Positions:   (*memPositionStore)(m),
		Trades:      (*memTradeStore)(m),
		Prices:      (*memPriceStore)(m),
		Resolutions: (*memResolutionStore)(m),
		Disputes:    (*memDisputeStore)(m),
		Users:       (*memUserStore)(m),
		Liquidity:   (*memLiquidityStore)(m),
		Events:      (*memEventStore)(m),
		Audit:       (*memAuditStore)(m),
	}
}

// memTx satisfies domain.TxRunner without transactional semantics; service
// tests assert on outcomes, not rollback mechanics.
type memTx struct{ m *memStores }

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	return fn(ctx, t.m.bundle())
}

type memMarketStore memStores

func (s *memMarketStore) Create(_ context.Context, m domain.Market) error {
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarketStore) Update(_ context.Context, m domain.Market) error {
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) List(_ context.Context, status domain.MarketStatus, _ domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

type memTokenStore memStores

func (s *memTokenStore) EnsurePair(_ context.Context, marketID string) (*domain.Pool, error) {
	if pool, ok := s.tokens[marketID]; ok {
		return pool, nil
	}
	now := time.Now().UTC()
	pool := &domain.Pool{
		Yes: &domain.OutcomeToken{ID: uuid.New().String(), MarketID: marketID, Outcome: domain.OutcomeYes, Supply: decimal.Zero, Price: decimal.New(5, -1), CreatedAt: now, UpdatedAt: now},
		No:  &domain.OutcomeToken{ID: uuid.New().String(), MarketID: marketID, Outcome: domain.OutcomeNo, Supply: decimal.Zero, Price: decimal.New(5, -1), CreatedAt: now, UpdatedAt: now},
	}
	s.tokens[marketID] = pool
	return pool, nil
}

func (s *memTokenStore) GetPair(_ context.Context, marketID string) (*domain.Pool, error) {
	pool, ok := s.tokens[marketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return pool, nil
}

func (s *memTokenStore) UpdatePair(_ context.Context, pool *domain.Pool) error {
	s.tokens[pool.Yes.MarketID] = pool
	return nil
}

type memPositionStore memStores

func posKey(userID, marketID string) string { return userID + "/" + marketID }

func (s *memPositionStore) GetOrCreate(_ context.Context, userID, marketID string) (domain.Position, error) {
	key := posKey(userID, marketID)
	if p, ok := s.positions[key]; ok {
		return p, nil
	}
	p := domain.Position{
		ID:          uuid.New().String(),
		UserID:      userID,
		MarketID:    marketID,
		YesTokens:   decimal.Zero,
		NoTokens:    decimal.Zero,
		TotalStaked: decimal.Zero,
	}
	s.positions[key] = p
	return p, nil
}

func (s *memPositionStore) Get(_ context.Context, userID, marketID string) (domain.Position, error) {
	p, ok := s.positions[posKey(userID, marketID)]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *memPositionStore) Update(_ context.Context, p domain.Position) error {
	s.positions[posKey(p.UserID, p.MarketID)] = p
	return nil
}

func (s *memPositionStore) ListByMarket(_ context.Context, marketID string) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range s.positions {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memPositionStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memTradeStore memStores

func (s *memTradeStore) Create(_ context.Context, t domain.Trade) error {
	s.trades = append(s.trades, t)
	return nil
}

func (s *memTradeStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range s.trades {
		if t.MarketID == marketID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTradeStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range s.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTradeStore) CountByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, t := range s.trades {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memTradeStore) CountWinsByUser(_ context.Context, userID string, outcome domain.Outcome) (int64, error) {
	var n int64
	for _, t := range s.trades {
		if t.UserID != userID || t.Outcome != outcome {
			continue
		}
		if m, ok := s.markets[t.MarketID]; ok && m.Status == domain.MarketStatusResolved {
			n++
		}
	}
	return n, nil
}

type memPriceStore memStores

func (s *memPriceStore) Append(_ context.Context, p domain.PricePoint) error {
	s.prices = append(s.prices, p)
	return nil
}

func (s *memPriceStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	for _, p := range s.prices {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memResolutionStore memStores

func (s *memResolutionStore) Create(_ context.Context, r domain.Resolution) error {
	if _, ok := s.resolutions[r.MarketID]; ok {
		return domain.ErrAlreadyResolved
	}
	s.resolutions[r.MarketID] = r
	return nil
}

func (s *memResolutionStore) GetByMarket(_ context.Context, marketID string) (domain.Resolution, error) {
	r, ok := s.resolutions[marketID]
	if !ok {
		return domain.Resolution{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *memResolutionStore) MarkSettled(_ context.Context, id string, at time.Time) error {
	for marketID, r := range s.resolutions {
		if r.ID != id {
			continue
		}
		if r.SettledAt != nil {
			return domain.ErrAlreadySettled
		}
		r.SettledAt = &at
		s.resolutions[marketID] = r
		return nil
	}
	return domain.ErrNotFound
}

type memDisputeStore memStores

func (s *memDisputeStore) Create(_ context.Context, d domain.Dispute) error {
	s.disputes = append(s.disputes, d)
	return nil
}

func (s *memDisputeStore) ListByMarket(_ context.Context, marketID string) ([]domain.Dispute, error) {
	var out []domain.Dispute
	for _, d := range s.disputes {
		if d.MarketID == marketID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memUserStore memStores

func (s *memUserStore) GetStats(_ context.Context, userID string) (domain.UserStats, error) {
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return domain.UserStats{UserID: userID, TotalPoints: decimal.Zero, WinRate: decimal.Zero}, nil
}

func (s *memUserStore) UpdateStats(_ context.Context, stats domain.UserStats) error {
	s.users[stats.UserID] = stats
	return nil
}

func (s *memUserStore) ListTop(_ context.Context, limit int) ([]domain.UserStats, error) {
	out := make([]domain.UserStats, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalPoints.Cmp(out[j].TotalPoints) > 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memLiquidityStore memStores

func (s *memLiquidityStore) Append(_ context.Context, ev domain.LiquidityEvent) error {
	s.liquidity = append(s.liquidity, ev)
	return nil
}

func (s *memLiquidityStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.LiquidityEvent, error) {
	var out []domain.LiquidityEvent
	for _, ev := range s.liquidity {
		if ev.MarketID == marketID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type memEventStore memStores

func eventKey(txHash string, logIndex int64) string {
	return fmt.Sprintf("%s/%d", txHash, logIndex)
}

func (s *memEventStore) Record(_ context.Context, ev domain.OnchainEvent) (domain.OnchainEvent, bool, error) {
	key := eventKey(ev.TxHash, ev.LogIndex)
	if stored, ok := s.events[key]; ok {
		return stored, false, nil
	}
	s.events[key] = ev
	return ev, true, nil
}

func (s *memEventStore) MarkProcessed(_ context.Context, id string, at time.Time) error {
	for key, ev := range s.events {
		if ev.ID == id {
			ev.ProcessedAt = &at
			s.events[key] = ev
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memEventStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.OnchainEvent, error) {
	var out []domain.OnchainEvent
	for _, ev := range s.events {
		if ev.MarketID == marketID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type memAuditStore memStores

func (s *memAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.audit = append(s.audit, domain.AuditEntry{
		ID:        int64(len(s.audit) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *memAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return s.audit, nil
}
