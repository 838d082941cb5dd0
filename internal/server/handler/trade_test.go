package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/service"
)

type fakeTradeService struct {
	req service.TradeRequest
	err error
}

func (f *fakeTradeService) Execute(_ context.Context, req service.TradeRequest) (domain.TradeResult, error) {
	f.req = req
	if f.err != nil {
		return domain.TradeResult{}, f.err
	}
	return domain.TradeResult{
		TradeID:   "t1",
		YesTokens: decimal.NewFromInt(100),
		YesPrice:  decimal.NewFromFloat(0.5),
		NoPrice:   decimal.NewFromFloat(0.5),
	}, nil
}

func postTrade(h *TradeHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExecuteTrade(rec, req)
	return rec
}

func TestExecuteTradeSuccess(t *testing.T) {
	svc := &fakeTradeService{}
	h := NewTradeHandler(svc, discardLogger())

	rec := postTrade(h, `{"user_id":"alice","market_id":"mkt-1","outcome":"YES","side":"BUY","amount":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.TradeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "t1", result.TradeID)

	assert.Equal(t, "alice", svc.req.UserID)
	assert.Equal(t, domain.OutcomeYes, svc.req.Outcome)
	assert.Equal(t, domain.TradeSideBuy, svc.req.Side)
	assert.True(t, svc.req.Amount.Equal(decimal.NewFromInt(100)))
}

func TestExecuteTradeErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid outcome", domain.ErrInvalidOutcome, http.StatusBadRequest},
		{"invalid side", domain.ErrInvalidSide, http.StatusBadRequest},
		{"unknown market", domain.ErrNotFound, http.StatusNotFound},
		{"inactive market", domain.ErrMarketNotActive, http.StatusConflict},
		{"insufficient tokens", domain.ErrInsufficientTokens, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTradeHandler(&fakeTradeService{err: tt.err}, discardLogger())
			rec := postTrade(h, `{"user_id":"alice","market_id":"mkt-1","outcome":"YES","side":"BUY","amount":"100"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestExecuteTradeRejectsBadBody(t *testing.T) {
	h := NewTradeHandler(&fakeTradeService{}, discardLogger())

	rec := postTrade(h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postTrade(h, `{"outcome":"YES","side":"BUY","amount":"100"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
