package economy

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"parsec/internal/db"
)

// These tests need a throwaway Postgres. They truncate the game schema, so
// never point PARSEC_TEST_DATABASE_URL at anything you care about.

func testService(t *testing.T, cfg Config, deps Deps) *Service {
	t.Helper()
	url := os.Getenv("PARSEC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PARSEC_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, url, "parsec-test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	_, err = pool.Exec(ctx, `
		TRUNCATE game.bank_transactions, game.bank_accounts, game.bank_flags,
			game.corp_shareholders, game.stock_dividends, game.stocks,
			game.corps, game.player_progress
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if deps.Corps == nil {
		deps.Corps = NewPgCorpDirectory(pool)
	}
	return NewService(pool, logger, cfg, deps)
}

func seedCorp(t *testing.T, s *Service, name string, ceoPlayerID, rating int64) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRow(context.Background(), `
		INSERT INTO game.corps (name, ceo_player_id, credit_rating)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, ceoPlayerID, rating).Scan(&id)
	if err != nil {
		t.Fatalf("seed corp: %v", err)
	}
	return id
}

func TestDepositWithdrawTransfer(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	ctx := context.Background()
	alice := Owner{Type: OwnerPlayer, ID: 7}
	bob := Owner{Type: OwnerPlayer, ID: 9}

	balance, err := s.Deposit(ctx, alice, 1_000, "", "starting stake")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if balance != 1_000 {
		t.Fatalf("balance got %d want 1000", balance)
	}

	balance, err = s.Withdraw(ctx, alice, 300, "", "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if balance != 700 {
		t.Fatalf("balance got %d want 700", balance)
	}

	out, err := s.Transfer(ctx, TransferInput{From: alice, To: bob, Amount: 500})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if out.FromBalance != 200 || out.ToBalance != 500 {
		t.Fatalf("balances got %d/%d want 200/500", out.FromBalance, out.ToBalance)
	}
	if out.GroupID == "" {
		t.Fatalf("expected a tx group id")
	}

	// Value is conserved across the two legs and both carry the group id.
	var legs int
	err = s.db.QueryRow(ctx, `
		SELECT count(*) FROM game.bank_transactions WHERE tx_group_id = $1
	`, out.GroupID).Scan(&legs)
	if err != nil {
		t.Fatalf("count legs: %v", err)
	}
	if legs != 2 {
		t.Fatalf("legs got %d want 2", legs)
	}

	entries, err := s.ListTransactions(ctx, alice, TxFilter{Direction: DirectionDebit})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("debit entries got %d want 2", len(entries))
	}
	for _, e := range entries {
		if e.Direction != DirectionDebit {
			t.Fatalf("unexpected direction %s", e.Direction)
		}
	}
}

func TestWithdrawAbsentAccount(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	_, err := s.Withdraw(context.Background(), Owner{Type: OwnerPlayer, ID: 404}, 10, "", "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v want ErrInsufficientFunds", err)
	}
}

func TestTransferInsufficientFundsIsAtomic(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	ctx := context.Background()
	alice := Owner{Type: OwnerPlayer, ID: 7}
	bob := Owner{Type: OwnerPlayer, ID: 9}

	if _, err := s.Deposit(ctx, alice, 100, "", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	_, err := s.Transfer(ctx, TransferInput{From: alice, To: bob, Amount: 101})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v want ErrInsufficientFunds", err)
	}

	balance, err := s.GetBalance(ctx, alice)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("source balance mutated: %d", balance)
	}
	if _, err := s.GetBalance(ctx, bob); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("destination should not have been funded: %v", err)
	}
}

func TestConcurrentOverdraft(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	ctx := context.Background()
	alice := Owner{Type: OwnerPlayer, ID: 7}

	if _, err := s.Deposit(ctx, alice, 100, "", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Withdraw(ctx, alice, 60, "", "")
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("got %d ok / %d insufficient, want 1/1", ok, insufficient)
	}
	balance, err := s.GetBalance(ctx, alice)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 40 {
		t.Fatalf("balance got %d want 40", balance)
	}
}

func TestFrozenPlayer(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	ctx := context.Background()
	alice := Owner{Type: OwnerPlayer, ID: 7}
	bob := Owner{Type: OwnerPlayer, ID: 9}

	if _, err := s.Deposit(ctx, alice, 500, "", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := s.SetFrozen(ctx, alice.ID, true); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	if _, err := s.Withdraw(ctx, alice, 10, "", ""); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("withdraw got %v want ErrAccountFrozen", err)
	}
	if _, err := s.Transfer(ctx, TransferInput{From: alice, To: bob, Amount: 10}); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("transfer got %v want ErrAccountFrozen", err)
	}
	// Frozen accounts can still receive.
	if _, err := s.Deposit(ctx, alice, 10, "", ""); err != nil {
		t.Fatalf("credit to frozen account: %v", err)
	}

	if err := s.SetFrozen(ctx, alice.ID, false); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if _, err := s.Withdraw(ctx, alice, 10, "", ""); err != nil {
		t.Fatalf("withdraw after unfreeze: %v", err)
	}
}

func TestEquityLifecycle(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	ctx := context.Background()
	const ceoID = int64(3)
	corpID := seedCorp(t, s, "Quantum Relay Mining", ceoID, 800)
	corp := Owner{Type: OwnerCorp, ID: corpID}
	buyer := Owner{Type: OwnerPlayer, ID: 11}

	stock, err := s.RegisterIPO(ctx, IPOInput{
		CorpID:      corpID,
		CEOPlayerID: ceoID,
		Ticker:      "qrm",
		TotalShares: 1_000,
		Price:       50,
	})
	if err != nil {
		t.Fatalf("ipo: %v", err)
	}
	if stock.Ticker != "QRM" {
		t.Fatalf("ticker got %q", stock.Ticker)
	}

	// Second listing for the same corp hits the unique corp_id constraint.
	if _, err := s.RegisterIPO(ctx, IPOInput{
		CorpID: corpID, CEOPlayerID: ceoID, Ticker: "QRM2", TotalShares: 10, Price: 1,
	}); err == nil {
		t.Fatalf("expected duplicate listing to fail")
	}

	// Not the CEO.
	if _, err := s.RegisterIPO(ctx, IPOInput{
		CorpID: corpID, CEOPlayerID: ceoID + 1, Ticker: "XYZ", TotalShares: 10, Price: 1,
	}); !errors.Is(err, ErrNotCEO) {
		t.Fatalf("got %v want ErrNotCEO", err)
	}

	if _, err := s.Deposit(ctx, buyer, 10_000, "", ""); err != nil {
		t.Fatalf("fund buyer: %v", err)
	}
	trade, err := s.BuyShares(ctx, TradeInput{PlayerID: buyer.ID, Ticker: "QRM", Quantity: 40})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if trade.Total != 2_000 || trade.PlayerBalance != 8_000 || trade.PlayerShares != 40 {
		t.Fatalf("trade got total=%d balance=%d shares=%d", trade.Total, trade.PlayerBalance, trade.PlayerShares)
	}
	corpBal, err := s.GetBalance(ctx, corp)
	if err != nil {
		t.Fatalf("corp balance: %v", err)
	}
	if corpBal != 2_000 {
		t.Fatalf("corp balance got %d want 2000", corpBal)
	}

	// Cannot buy more shares than remain in the float.
	if _, err := s.BuyShares(ctx, TradeInput{PlayerID: buyer.ID, Ticker: "QRM", Quantity: 961}); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("got %v want ErrInsufficientShares", err)
	}

	sell, err := s.SellShares(ctx, TradeInput{PlayerID: buyer.ID, Ticker: "QRM", Quantity: 10})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if sell.PlayerShares != 30 || sell.PlayerBalance != 8_500 {
		t.Fatalf("sell got shares=%d balance=%d", sell.PlayerShares, sell.PlayerBalance)
	}

	// A declaration the corp balance cannot cover is rejected up front.
	if _, err := s.DeclareDividend(ctx, DividendInput{
		CorpID: corpID, CEOPlayerID: ceoID, AmountPerShare: 100,
	}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v want ErrInsufficientFunds", err)
	}

	div, err := s.DeclareDividend(ctx, DividendInput{
		CorpID: corpID, CEOPlayerID: ceoID, AmountPerShare: 1,
	})
	if err != nil {
		t.Fatalf("declare: %v", err)
	}

	reports, err := s.RunDividendPayout(ctx)
	if err != nil {
		t.Fatalf("payout: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports got %d want 1", len(reports))
	}
	// Only the buyer's 30 shares pay out; the corp's own float does not.
	if reports[0].DividendID != div.ID || reports[0].TotalPaid != 30 || reports[0].Shareholders != 1 {
		t.Fatalf("report got %+v", reports[0])
	}

	// Settled dividends are not paid twice.
	reports, err = s.RunDividendPayout(ctx)
	if err != nil {
		t.Fatalf("second payout: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("expected no further payouts, got %d", len(reports))
	}
}

func TestDailyTaxSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaxRateBps = 100 // 1% per sweep
	s := testService(t, cfg, Deps{})
	ctx := context.Background()

	if _, err := s.Deposit(ctx, Owner{Type: OwnerPlayer, ID: 7}, 10_000, "", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := s.Deposit(ctx, Owner{Type: OwnerPlayer, ID: 9}, 50, "", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// NPC balances are never taxed.
	if _, err := s.Deposit(ctx, Owner{Type: OwnerNPC, ID: 1}, 100_000, "", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	report, err := s.ApplyDailyTax(ctx)
	if err != nil {
		t.Fatalf("tax: %v", err)
	}
	// Player 9 owes 0 (50 * 1% rounds down), so only player 7 pays.
	if report.AccountsTaxed != 1 || report.Collected != 100 {
		t.Fatalf("report got %+v", report)
	}
	govBal, err := s.GetBalance(ctx, Owner{Type: OwnerGov, ID: cfg.GovOwnerID})
	if err != nil {
		t.Fatalf("gov balance: %v", err)
	}
	if govBal != 100 {
		t.Fatalf("gov balance got %d want 100", govBal)
	}
}

func TestUpdateCommission(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	ctx := context.Background()

	if _, err := s.db.Exec(ctx, `
		INSERT INTO game.player_progress (player_id, alignment, experience)
		VALUES (7, 1000, 20000)
	`); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	out, err := s.UpdateCommission(ctx, 7)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.CommissionRank != 3 {
		t.Fatalf("rank got %d want 3", out.CommissionRank)
	}
	if out.Commission != 3*commissionPerRank+100 {
		t.Fatalf("commission got %d", out.Commission)
	}

	if _, err := s.UpdateCommission(ctx, 404); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("got %v want ErrPlayerNotFound", err)
	}

	got, err := s.GetProgress(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != out {
		t.Fatalf("stored progress %+v differs from %+v", got, out)
	}
}

func TestCreateAccountIdempotent(t *testing.T) {
	s := testService(t, DefaultConfig(), Deps{})
	ctx := context.Background()
	port := Owner{Type: OwnerPort, ID: 12}

	id1, err := s.CreateAccount(ctx, port, 5_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Second creation resolves to the same row; the initial balance of the
	// loser is discarded, not added.
	id2, err := s.CreateAccount(ctx, port, 9_999)
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %d vs %d", id1, id2)
	}
	balance, err := s.GetBalance(ctx, port)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5_000 {
		t.Fatalf("balance got %d want 5000", balance)
	}
}

func TestTransferUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s := testService(t, DefaultConfig(), Deps{Clock: func() time.Time { return fixed }})
	ctx := context.Background()
	alice := Owner{Type: OwnerPlayer, ID: 7}

	if _, err := s.Deposit(ctx, alice, 100, "", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	entries, err := s.ListTransactions(ctx, alice, TxFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries got %d want 1", len(entries))
	}
	if !entries[0].Ts.Equal(fixed) {
		t.Fatalf("ts got %v want %v", entries[0].Ts, fixed)
	}
}
