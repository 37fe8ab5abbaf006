// Package api provides the HTTP handlers for the risk engine: availability
// and solvency checks, exposure registration, draw settlement, capital
// administration, and audit reads.
//
// Monetary fields in request bodies are decimals; conversion to integer
// cents happens here, at the I/O boundary.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/numgame/risk-engine/internal/capital"
	"github.com/numgame/risk-engine/internal/exposure"
	"github.com/numgame/risk-engine/internal/metrics"
	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
	"github.com/numgame/risk-engine/internal/settle"
	"github.com/numgame/risk-engine/internal/store"
)

const defaultHistoryLimit = 50

// Service wires the engine components behind HTTP handlers.
type Service struct {
	store   store.Store
	tracker *exposure.Tracker
	gate    *exposure.Gate
	engine  *settle.Engine
	capital *capital.Service
	wsHub   *WSHub // optional hub for live exposure/settlement events
}

// NewService creates the HTTP service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, tracker *exposure.Tracker, gate *exposure.Gate,
	engine *settle.Engine, cap *capital.Service, hub *WSHub) *Service {
	return &Service{
		store:   st,
		tracker: tracker,
		gate:    gate,
		engine:  engine,
		capital: cap,
		wsHub:   hub,
	}
}

// Routes mounts all engine endpoints on the router.
func (s *Service) Routes(r chi.Router) {
	r.Get("/ws", s.handleWS)

	r.Get("/draws/{drawID}/availability", s.CheckAvailability)
	r.Post("/bets/authorize", s.AuthorizeBet)
	r.Post("/exposure", s.RegisterExposure)
	r.Get("/draws/{drawID}/exposure", s.GetDrawExposure)
	r.Post("/draws/{drawID}/settle", s.SettleDraw)

	r.Post("/capital/initialize", s.InitializeCapital)
	r.Post("/capital/adjust", s.AdjustCapital)
	r.Get("/capital", s.GetCapital)
	r.Get("/status", s.GetStatus)

	r.Get("/settlements", s.ListSettlements)
	r.Get("/settlements/{drawID}", s.GetSettlement)
	r.Get("/transactions", s.ListTransactions)
}

func (s *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		writeError(w, "websocket feed not enabled", http.StatusNotFound)
		return
	}
	s.wsHub.HandleWS(w, r)
}

// --- Request types ---

// BetRequest identifies one prospective or accepted wager.
type BetRequest struct {
	DrawID   string          `json:"draw_id"`
	GameType model.GameType  `json:"game_type"`
	Number   string          `json:"number"`
	Amount   decimal.Decimal `json:"amount"`
}

// AdjustRequest is the JSON body for POST /capital/adjust.
type AdjustRequest struct {
	Fund    model.Fund      `json:"fund"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
	ActorID string          `json:"actor_id"`
}

// InitializeRequest is the JSON body for POST /capital/initialize.
type InitializeRequest struct {
	InitialReserve decimal.Decimal `json:"initial_reserve"`
}

// StatusResponse is the reduced public capital snapshot: no fund balances.
type StatusResponse struct {
	LimitPerNumber  money.Cents `json:"limit_per_number"`
	TotalStaked     money.Cents `json:"total_staked"`
	TotalPrizesPaid money.Cents `json:"total_prizes_paid"`
}

func decodeBet(r *http.Request) (BetRequest, money.Cents, error) {
	var req BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, 0, errors.New("invalid request body")
	}
	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		return req, 0, err
	}
	return req, amount, nil
}

// --- Bet admission ---

// CheckAvailability handles
// GET /api/v1/draws/{drawID}/availability?game_type=&number=&amount=
// The public "how much can I still bet on this number" read.
func (s *Service) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	drawID := chi.URLParam(r, "drawID")
	gameType := model.GameType(r.URL.Query().Get("game_type"))
	number := r.URL.Query().Get("number")

	amountDec, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, "invalid amount", http.StatusBadRequest)
		return
	}
	amount, err := money.FromDecimal(amountDec)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dec, err := s.tracker.CheckAvailability(r.Context(), drawID, gameType, number, amount)
	if err != nil {
		s.writeCheckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

// AuthorizeBet handles POST /api/v1/bets/authorize
// Runs both gates (per-number cap, then reserve solvency) and returns the
// structured decision. Read-only: the bet-placement flow calls this before
// committing the wager.
func (s *Service) AuthorizeBet(w http.ResponseWriter, r *http.Request) {
	req, amount, err := decodeBet(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dec, err := s.gate.CanAcceptBet(r.Context(), req.DrawID, req.GameType, req.Number, amount)
	if err != nil {
		s.writeCheckError(w, err)
		return
	}
	if !dec.Available {
		metrics.BetsRejected.WithLabelValues(rejectionReason(dec)).Inc()
	}
	writeJSON(w, http.StatusOK, dec)
}

// RegisterExposure handles POST /api/v1/exposure
// Called by the bet-placement flow inside the same commit that records the
// wager. Re-runs the solvency gate, then performs the atomic insert-or-add;
// losing the race for the last headroom returns 409 with the refreshed
// decision.
func (s *Service) RegisterExposure(w http.ResponseWriter, r *http.Request) {
	req, amount, err := decodeBet(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	dec, err := s.gate.CanAcceptBet(ctx, req.DrawID, req.GameType, req.Number, amount)
	if err != nil {
		s.writeCheckError(w, err)
		return
	}
	if !dec.Available {
		metrics.BetsRejected.WithLabelValues(rejectionReason(dec)).Inc()
		writeJSON(w, http.StatusConflict, dec)
		return
	}

	rec, err := s.tracker.RegisterExposure(ctx, req.DrawID, req.GameType, req.Number, amount)
	if err != nil {
		if errors.Is(err, store.ErrLimitExhausted) {
			// A concurrent registration consumed the headroom between the
			// check and the upsert; the atomic guard held the invariant.
			metrics.BetsRejected.WithLabelValues("race_lost").Inc()
			writeError(w, "per-number limit exhausted by a concurrent bet", http.StatusConflict)
			return
		}
		s.writeCheckError(w, err)
		return
	}

	metrics.BetsAccepted.WithLabelValues(string(rec.GameType)).Inc()
	slog.Info("exposure registered",
		"draw_id", rec.DrawID,
		"game_type", string(rec.GameType),
		"number", rec.Number,
		"amount", amount.String(),
		"total", rec.TotalAmount.String(),
		"sold_out", rec.IsSoldOut,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "exposure_registered",
			DrawID:      rec.DrawID,
			GameType:    string(rec.GameType),
			Number:      rec.Number,
			TotalAmount: rec.TotalAmount.String(),
			Limit:       rec.LimitSnapshot.String(),
			SoldOut:     rec.IsSoldOut,
		})
	}

	writeJSON(w, http.StatusCreated, rec)
}

// GetDrawExposure handles GET /api/v1/draws/{drawID}/exposure
// Per-game-type aggregate for admin monitoring.
func (s *Service) GetDrawExposure(w http.ResponseWriter, r *http.Request) {
	drawID := chi.URLParam(r, "drawID")

	summaries, err := s.store.SummarizeDrawExposure(r.Context(), drawID)
	if err != nil {
		writeError(w, "failed to summarize draw exposure", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []model.GameTypeExposure{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"draw_id":    drawID,
		"game_types": summaries,
	})
}

// --- Settlement ---

// SettleDraw handles POST /api/v1/draws/{drawID}/settle
// Invoked exactly once per draw by the draw-resolution flow, after winners
// were determined and credited. Idempotent on retry.
func (s *Service) SettleDraw(w http.ResponseWriter, r *http.Request) {
	var params settle.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	params.DrawID = chi.URLParam(r, "drawID")

	st, err := s.engine.SettleDrawPool(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrLedgerNotFound):
			writeError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, settle.ErrReserveDeficit):
			writeError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, settle.ErrMissingDrawID),
			errors.Is(err, settle.ErrInvalidPool),
			errors.Is(err, settle.ErrInvalidPrizes),
			errors.Is(err, settle.ErrPrizesMismatch),
			errors.Is(err, model.ErrInvalidGameType),
			errors.Is(err, model.ErrInvalidNumber):
			writeError(w, err.Error(), http.StatusBadRequest)
		default:
			writeError(w, "settlement failed", http.StatusInternalServerError)
		}
		return
	}

	metrics.SettlementsTotal.WithLabelValues(strconv.FormatBool(st.HasWinner)).Inc()
	s.publishCapitalGauges(st.NewBankroll, st.NewReserve, st.NewLimit)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:       "draw_settled",
			DrawID:     st.DrawID,
			Pool:       st.TotalPool.String(),
			PrizesPaid: st.PrizesPaid.String(),
			NewLimit:   st.NewLimit.String(),
		})
	}

	writeJSON(w, http.StatusOK, st)
}

// --- Capital administration ---

// InitializeCapital handles POST /api/v1/capital/initialize
func (s *Service) InitializeCapital(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	reserve, err := money.FromDecimal(req.InitialReserve)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	led, err := s.capital.InitializeCapital(r.Context(), reserve)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrLedgerExists):
			writeError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, capital.ErrInvalidReserve):
			writeError(w, err.Error(), http.StatusBadRequest)
		default:
			writeError(w, "initialization failed", http.StatusInternalServerError)
		}
		return
	}

	s.publishCapitalGauges(led.Bankroll, led.Reserve, led.LimitPerNumber)
	writeJSON(w, http.StatusCreated, led)
}

// AdjustCapital handles POST /api/v1/capital/adjust
func (s *Service) AdjustCapital(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	led, err := s.capital.AdjustCapital(r.Context(), req.Fund, amount, req.Reason, req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, capital.ErrInvalidFund),
			errors.Is(err, capital.ErrZeroAdjustment),
			errors.Is(err, capital.ErrReasonRequired):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, capital.ErrInsufficientFunds),
			errors.Is(err, store.ErrLedgerNotFound):
			writeError(w, err.Error(), http.StatusConflict)
		default:
			writeError(w, "adjustment failed", http.StatusInternalServerError)
		}
		return
	}

	s.publishCapitalGauges(led.Bankroll, led.Reserve, led.LimitPerNumber)
	writeJSON(w, http.StatusOK, led)
}

// GetCapital handles GET /api/v1/capital — the full admin snapshot.
func (s *Service) GetCapital(w http.ResponseWriter, r *http.Request) {
	led, err := s.store.GetLedger(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrLedgerNotFound) {
			writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeError(w, "failed to load capital ledger", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, led)
}

// GetStatus handles GET /api/v1/status — the reduced public snapshot.
func (s *Service) GetStatus(w http.ResponseWriter, r *http.Request) {
	led, err := s.store.GetLedger(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrLedgerNotFound) {
			writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeError(w, "failed to load status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		LimitPerNumber:  led.LimitPerNumber,
		TotalStaked:     led.TotalStaked,
		TotalPrizesPaid: led.TotalPrizesPaid,
	})
}

// --- History ---

// GetSettlement handles GET /api/v1/settlements/{drawID}
func (s *Service) GetSettlement(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetSettlement(r.Context(), chi.URLParam(r, "drawID"))
	if err != nil {
		if errors.Is(err, store.ErrSettlementNotFound) {
			writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeError(w, "failed to load settlement", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListSettlements handles GET /api/v1/settlements?limit=
func (s *Service) ListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.store.ListSettlements(r.Context(), historyLimit(r))
	if err != nil {
		writeError(w, "failed to list settlements", http.StatusInternalServerError)
		return
	}
	if settlements == nil {
		settlements = []model.DrawSettlement{}
	}
	writeJSON(w, http.StatusOK, settlements)
}

// ListTransactions handles GET /api/v1/transactions?limit=
func (s *Service) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.store.ListTransactions(r.Context(), historyLimit(r))
	if err != nil {
		writeError(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []model.CapitalTransaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// --- Helpers ---

func historyLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultHistoryLimit
}

// writeCheckError maps tracker/gate errors to HTTP statuses.
func (s *Service) writeCheckError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidGameType),
		errors.Is(err, model.ErrInvalidNumber),
		errors.Is(err, exposure.ErrInvalidAmount):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrLedgerNotFound):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, "availability check failed", http.StatusInternalServerError)
	}
}

// rejectionReason buckets a rejected decision for metrics.
func rejectionReason(dec *exposure.Decision) string {
	if dec.Reason != "" {
		return dec.Reason
	}
	return "unknown"
}

func (s *Service) publishCapitalGauges(bankroll, reserve, limit money.Cents) {
	metrics.BankrollBalance.Set(bankroll.Decimal().InexactFloat64())
	metrics.ReserveBalance.Set(reserve.Decimal().InexactFloat64())
	metrics.CurrentLimit.Set(limit.Decimal().InexactFloat64())
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
