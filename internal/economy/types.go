package economy

import "time"

type TransferInput struct {
	From        Owner
	To          Owner
	Amount      int64
	TxType      string
	GroupID     string
	Description string
}

type TransferResult struct {
	FromBalance int64  `json:"from_balance"`
	ToBalance   int64  `json:"to_balance"`
	GroupID     string `json:"tx_group_id"`
}

type IPOInput struct {
	CorpID      int64
	CEOPlayerID int64
	Ticker      string
	TotalShares int64
	ParValue    int64
	Price       int64
}

type TradeInput struct {
	PlayerID int64
	Ticker   string
	Quantity int64
}

type TradeResult struct {
	Ticker        string `json:"ticker"`
	Quantity      int64  `json:"quantity"`
	PricePerShare int64  `json:"price_per_share"`
	Total         int64  `json:"total"`
	PlayerBalance int64  `json:"player_balance"`
	CorpBalance   int64  `json:"corp_balance"`
	PlayerShares  int64  `json:"player_shares"`
	GroupID       string `json:"tx_group_id"`
}

type DividendInput struct {
	CorpID         int64
	CEOPlayerID    int64
	AmountPerShare int64
}

type StockView struct {
	ID             int64      `json:"id"`
	CorpID         int64      `json:"corp_id"`
	Ticker         string     `json:"ticker"`
	TotalShares    int64      `json:"total_shares"`
	ParValue       int64      `json:"par_value"`
	CurrentPrice   int64      `json:"current_price"`
	LastDividendTs *time.Time `json:"last_dividend_ts,omitempty"`
}

type HoldingView struct {
	CorpID int64  `json:"corp_id"`
	Ticker string `json:"ticker"`
	Shares int64  `json:"shares"`
}

type DividendView struct {
	ID             int64      `json:"id"`
	StockID        int64      `json:"stock_id"`
	Ticker         string     `json:"ticker"`
	AmountPerShare int64      `json:"amount_per_share"`
	DeclaredTs     time.Time  `json:"declared_ts"`
	PaidTs         *time.Time `json:"paid_ts,omitempty"`
}

type PayoutReport struct {
	DividendID   int64  `json:"dividend_id"`
	Ticker       string `json:"ticker"`
	Shareholders int    `json:"shareholders"`
	TotalPaid    int64  `json:"total_paid"`
}

type TaxSweepReport struct {
	AccountsTaxed int   `json:"accounts_taxed"`
	Collected     int64 `json:"collected"`
}

// TxFilter narrows a transaction history listing. Zero values mean "no
// filter"; Limit defaults to 50 and is capped at 500.
type TxFilter struct {
	TxType    string
	Direction string
	Since     time.Time
	Limit     int
}

type TxEntry struct {
	ID           int64     `json:"id"`
	TxType       string    `json:"tx_type"`
	Direction    string    `json:"direction"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	BalanceAfter int64     `json:"balance_after"`
	GroupID      string    `json:"tx_group_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	Ts           time.Time `json:"ts"`
}

type Progress struct {
	PlayerID       int64 `json:"player_id"`
	Alignment      int64 `json:"alignment"`
	Experience     int64 `json:"experience"`
	CommissionRank int   `json:"commission_rank"`
	Commission     int64 `json:"commission"`
}
