package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parsec/internal/config"
	"parsec/internal/economy"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes the economy engine to the other game processes. Callers are
// trusted services, not end users, so auth is a single shared service token.
type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	economy *economy.Service
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, econ *economy.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		economy: econ,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/accounts", s.handleCreateAccount)
		r.Get("/accounts/{owner_type}/{owner_id}/balance", s.handleBalance)
		r.Post("/accounts/{owner_type}/{owner_id}/deposit", s.handleDeposit)
		r.Post("/accounts/{owner_type}/{owner_id}/withdraw", s.handleWithdraw)
		r.Get("/accounts/{owner_type}/{owner_id}/transactions", s.handleTransactions)

		r.Post("/transfers", s.handleTransfer)

		r.Get("/stocks", s.handleStocksList)
		r.Get("/stocks/{ticker}", s.handleStockDetail)
		r.Post("/stocks/ipo", s.handleIPO)
		r.Post("/stocks/{ticker}/buy", s.handleBuyShares)
		r.Post("/stocks/{ticker}/sell", s.handleSellShares)
		r.Post("/stocks/dividends", s.handleDeclareDividend)

		r.Get("/players/{id}/holdings", s.handleHoldings)
		r.Post("/players/{id}/freeze", s.handleFreeze)
		r.Get("/players/{id}/commission", s.handleCommission)
		r.Post("/players/{id}/commission/recompute", s.handleRecomputeCommission)

		r.Post("/jobs/dividends/run", s.handleRunDividends)
		r.Post("/jobs/tax/run", s.handleRunTax)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.ServiceToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid service token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ownerFromURL(r *http.Request) (economy.Owner, error) {
	t, err := economy.ParseOwnerType(chi.URLParam(r, "owner_type"))
	if err != nil {
		return economy.Owner{}, err
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "owner_id"), 10, 64)
	if err != nil || id < 0 {
		return economy.Owner{}, errors.New("invalid owner id")
	}
	return economy.Owner{Type: t, ID: id}, nil
}

func playerFromURL(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid player id")
	}
	return id, nil
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OwnerType      string `json:"owner_type"`
		OwnerID        int64  `json:"owner_id"`
		InitialBalance int64  `json:"initial_balance"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := economy.ParseOwnerType(in.OwnerType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.economy.CreateAccount(r.Context(), economy.Owner{Type: t, ID: in.OwnerID}, in.InitialBalance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"account_id": id})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	balance, err := s.economy.GetBalance(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":    owner.String(),
		"balance":  balance,
		"currency": economy.Currency,
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleMovement(w, r, s.economy.Deposit, economy.TxDeposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleMovement(w, r, s.economy.Withdraw, economy.TxWithdrawal)
}

func (s *Server) handleMovement(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, owner economy.Owner, amount int64, txType, description string) (int64, error),
	defaultType string,
) {
	owner, err := ownerFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		Amount      int64  `json:"amount"`
		TxType      string `json:"tx_type"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txType := strings.TrimSpace(in.TxType)
	if txType == "" {
		txType = defaultType
	}
	balance, err := op(r.Context(), owner, in.Amount, txType, in.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := economy.TxFilter{
		TxType:    strings.TrimSpace(q.Get("type")),
		Direction: strings.ToUpper(strings.TrimSpace(q.Get("direction"))),
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	entries, err := s.economy.ListTransactions(r.Context(), owner, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": entries})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FromType    string `json:"from_type"`
		FromID      int64  `json:"from_id"`
		ToType      string `json:"to_type"`
		ToID        int64  `json:"to_id"`
		Amount      int64  `json:"amount"`
		TxType      string `json:"tx_type"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fromType, err := economy.ParseOwnerType(in.FromType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	toType, err := economy.ParseOwnerType(in.ToType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from := economy.Owner{Type: fromType, ID: in.FromID}
	to := economy.Owner{Type: toType, ID: in.ToID}
	if from == to {
		writeError(w, http.StatusBadRequest, "source and destination are the same account")
		return
	}
	out, err := s.economy.Transfer(r.Context(), economy.TransferInput{
		From:        from,
		To:          to,
		Amount:      in.Amount,
		TxType:      in.TxType,
		Description: in.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStocksList(w http.ResponseWriter, r *http.Request) {
	out, err := s.economy.ListStocks(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stocks": out})
}

func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	out, err := s.economy.StockByTicker(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIPO(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CorpID      int64  `json:"corp_id"`
		CEOPlayerID int64  `json:"ceo_player_id"`
		Ticker      string `json:"ticker"`
		TotalShares int64  `json:"total_shares"`
		ParValue    int64  `json:"par_value"`
		Price       int64  `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.economy.RegisterIPO(r.Context(), economy.IPOInput{
		CorpID:      in.CorpID,
		CEOPlayerID: in.CEOPlayerID,
		Ticker:      in.Ticker,
		TotalShares: in.TotalShares,
		ParValue:    in.ParValue,
		Price:       in.Price,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleBuyShares(w http.ResponseWriter, r *http.Request) {
	s.handleShareTrade(s.economy.BuyShares, w, r)
}

func (s *Server) handleSellShares(w http.ResponseWriter, r *http.Request) {
	s.handleShareTrade(s.economy.SellShares, w, r)
}

func (s *Server) handleShareTrade(
	op func(ctx context.Context, in economy.TradeInput) (economy.TradeResult, error),
	w http.ResponseWriter,
	r *http.Request,
) {
	var in struct {
		PlayerID int64 `json:"player_id"`
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := op(r.Context(), economy.TradeInput{
		PlayerID: in.PlayerID,
		Ticker:   chi.URLParam(r, "ticker"),
		Quantity: in.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeclareDividend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CorpID         int64 `json:"corp_id"`
		CEOPlayerID    int64 `json:"ceo_player_id"`
		AmountPerShare int64 `json:"amount_per_share"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.economy.DeclareDividend(r.Context(), economy.DividendInput{
		CorpID:         in.CorpID,
		CEOPlayerID:    in.CEOPlayerID,
		AmountPerShare: in.AmountPerShare,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.economy.ListHoldings(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"holdings": out})
}

func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		Frozen bool `json:"frozen"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.economy.SetFrozen(r.Context(), playerID, in.Frozen); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "frozen": in.Frozen})
}

func (s *Server) handleCommission(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.economy.GetProgress(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecomputeCommission(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.economy.UpdateCommission(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunDividends(w http.ResponseWriter, r *http.Request) {
	out, err := s.economy.RunDividendPayout(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payouts": out})
}

func (s *Server) handleRunTax(w http.ResponseWriter, r *http.Request) {
	out, err := s.economy.ApplyDailyTax(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrInvalidAmount),
		errors.Is(err, economy.ErrInvalidOwner),
		errors.Is(err, economy.ErrInvalidTicker):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, economy.ErrInsufficientShares):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, economy.ErrAccountFrozen),
		errors.Is(err, economy.ErrNotCEO),
		errors.Is(err, economy.ErrLowCreditRating):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, economy.ErrAccountNotFound),
		errors.Is(err, economy.ErrPlayerNotFound),
		errors.Is(err, economy.ErrStockNotFound),
		errors.Is(err, economy.ErrCorpNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, economy.ErrDuplicateTicker),
		errors.Is(err, economy.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
