package economy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Currency is the only currency the universe trades in.
const Currency = "CRD"

// OwnerType identifies which subsystem an account belongs to.
type OwnerType string

const (
	OwnerPlayer OwnerType = "player"
	OwnerCorp   OwnerType = "corp"
	OwnerNPC    OwnerType = "npc"
	OwnerPort   OwnerType = "port"
	OwnerPlanet OwnerType = "planet"
	OwnerSystem OwnerType = "system"
	OwnerGov    OwnerType = "gov"
)

var ownerTypes = map[OwnerType]bool{
	OwnerPlayer: true,
	OwnerCorp:   true,
	OwnerNPC:    true,
	OwnerPort:   true,
	OwnerPlanet: true,
	OwnerSystem: true,
	OwnerGov:    true,
}

func (t OwnerType) Valid() bool {
	return ownerTypes[t]
}

// ParseOwnerType normalizes and validates an owner type string.
func ParseOwnerType(s string) (OwnerType, error) {
	t := OwnerType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: owner type %q", ErrInvalidOwner, s)
	}
	return t, nil
}

// Owner is the unit of account identity: one balance per (type, id) pair.
type Owner struct {
	Type OwnerType
	ID   int64
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%d", o.Type, o.ID)
}

func (o Owner) valid() bool {
	return o.Type.Valid() && o.ID >= 0
}

// Transaction type labels. tx_type is free-form in the schema; these are the
// labels the engine itself writes.
const (
	TxDeposit         = "DEPOSIT"
	TxWithdrawal      = "WITHDRAWAL"
	TxTransfer        = "TRANSFER"
	TxTax             = "TAX"
	TxDividend        = "DIVIDEND"
	TxStockBuy        = "STOCK_BUY"
	TxStockSell       = "STOCK_SELL"
	TxCorpCreationFee = "CORP_CREATION_FEE"
	TxAdjustment      = "ADJUSTMENT"
	TxRefund          = "REFUND"
)

// Ledger entry directions.
const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

var (
	// ErrInvalidAmount and ErrInvalidOwner are contract violations by the
	// caller. Never retried.
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidOwner  = errors.New("invalid owner")
	ErrInvalidTicker = errors.New("ticker must be 3-5 uppercase alphanumerics")

	ErrAccountNotFound = errors.New("account not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrStockNotFound   = errors.New("stock not found")
	ErrCorpNotFound    = errors.New("corporation not found")

	// ErrInsufficientFunds is a normal business outcome, not a fault.
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")

	ErrAccountFrozen   = errors.New("account is frozen")
	ErrNotCEO          = errors.New("only the corporation CEO may do this")
	ErrLowCreditRating = errors.New("corporate credit rating too low")
	ErrDuplicateTicker = errors.New("ticker already registered")

	// ErrTxConflict surfaces after the contention retry budget is spent.
	ErrTxConflict = errors.New("transaction conflict, try again")

	// ErrBalanceOverflow means a credit wrapped a balance negative. That is
	// an integrity fault, never a business outcome.
	ErrBalanceOverflow = errors.New("balance overflow")
)

var tickerRE = regexp.MustCompile(`^[A-Z0-9]{3,5}$`)

// ValidateTicker enforces the IPO ticker format.
func ValidateTicker(ticker string) error {
	if !tickerRE.MatchString(strings.TrimSpace(ticker)) {
		return ErrInvalidTicker
	}
	return nil
}

// Config carries every tunable the engine consumes. It is passed into
// NewService explicitly; the engine holds no process-wide state.
type Config struct {
	// MaxTxAttempts bounds the contention retry loop. RetryBackoff is the
	// initial sleep between attempts; it doubles per retry.
	MaxTxAttempts int
	RetryBackoff  time.Duration

	// AlertThresholds maps an owner type to the transfer amount at which the
	// alert monitor fires. DefaultAlertThreshold covers unlisted types; zero
	// or negative disables alerting for that type.
	AlertThresholds       map[OwnerType]int64
	DefaultAlertThreshold int64

	// TaxRateBps is the daily wealth tax in basis points of each player
	// balance. GovOwnerID is the government account that collects it.
	TaxRateBps int64
	GovOwnerID int64

	// MinIPORating gates stock registration on corporate credit rating.
	MinIPORating int64
}

// DefaultConfig mirrors the live game tuning.
func DefaultConfig() Config {
	return Config{
		MaxTxAttempts:         3,
		RetryBackoff:          50 * time.Millisecond,
		AlertThresholds:       map[OwnerType]int64{},
		DefaultAlertThreshold: 1_000_000,
		TaxRateBps:            0,
		GovOwnerID:            1,
		MinIPORating:          600,
	}
}

// AlertThreshold resolves the threshold for one owner type.
func (c Config) AlertThreshold(t OwnerType) int64 {
	if v, ok := c.AlertThresholds[t]; ok {
		return v
	}
	return c.DefaultAlertThreshold
}

func (c Config) withDefaults() Config {
	if c.MaxTxAttempts <= 0 {
		c.MaxTxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}
