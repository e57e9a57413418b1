package main

import (
	"encoding/json"
	"fmt"
	"time"

	"parsec/internal/economy"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

type historyPayload struct {
	Transactions []economy.TxEntry `json:"transactions"`
}

type stocksPayload struct {
	Stocks []economy.StockView `json:"stocks"`
}

type holdingsPayload struct {
	Holdings []economy.HoldingView `json:"holdings"`
}

type payoutsPayload struct {
	Payouts []economy.PayoutReport `json:"payouts"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

// reshape round-trips a generic API payload into a typed view.
func reshape(raw map[string]any, out any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, out)
}

func renderBalance(raw map[string]any) error {
	accent.Printf("%v\n", raw["owner"])
	neutral.Printf("  balance: %v %v\n", raw["balance"], raw["currency"])
	return nil
}

func renderHistory(raw map[string]any) error {
	var payload historyPayload
	if err := reshape(raw, &payload); err != nil {
		return err
	}
	if len(payload.Transactions) == 0 {
		printInfo("no transactions")
		return nil
	}
	for _, e := range payload.Transactions {
		line := fmt.Sprintf("%s  %-18s %-6s %12d  balance %12d",
			e.Ts.Format(time.RFC3339), e.TxType, e.Direction, e.Amount, e.BalanceAfter)
		if e.Direction == economy.DirectionDebit {
			danger.Println(line)
		} else {
			success.Println(line)
		}
		if e.Description != "" {
			neutral.Printf("    %s\n", e.Description)
		}
	}
	return nil
}

func renderStocksList(raw map[string]any) error {
	var payload stocksPayload
	if err := reshape(raw, &payload); err != nil {
		return err
	}
	if len(payload.Stocks) == 0 {
		printInfo("no stocks registered")
		return nil
	}
	accent.Printf("%-8s %-8s %14s %14s\n", "TICKER", "CORP", "PRICE", "SHARES")
	for _, s := range payload.Stocks {
		neutral.Printf("%-8s %-8d %14d %14d\n", s.Ticker, s.CorpID, s.CurrentPrice, s.TotalShares)
	}
	return nil
}

func renderStockDetail(raw map[string]any) error {
	var s economy.StockView
	if err := reshape(raw, &s); err != nil {
		return err
	}
	accent.Printf("%s (corp %d)\n", s.Ticker, s.CorpID)
	neutral.Printf("  price:        %d CRD\n", s.CurrentPrice)
	neutral.Printf("  total shares: %d\n", s.TotalShares)
	neutral.Printf("  par value:    %d CRD\n", s.ParValue)
	if s.LastDividendTs != nil {
		neutral.Printf("  last payout:  %s\n", s.LastDividendTs.Format(time.RFC3339))
	}
	return nil
}

func renderTrade(side string, raw map[string]any) error {
	var t economy.TradeResult
	if err := reshape(raw, &t); err != nil {
		return err
	}
	verb := "bought"
	if side == "sell" {
		verb = "sold"
	}
	printSuccess(fmt.Sprintf("%s %d x %s @ %d CRD (total %d)", verb, t.Quantity, t.Ticker, t.PricePerShare, t.Total))
	neutral.Printf("  player balance: %d CRD, shares held: %d\n", t.PlayerBalance, t.PlayerShares)
	return nil
}

func renderHoldings(raw map[string]any) error {
	var payload holdingsPayload
	if err := reshape(raw, &payload); err != nil {
		return err
	}
	if len(payload.Holdings) == 0 {
		printInfo("no holdings")
		return nil
	}
	for _, h := range payload.Holdings {
		neutral.Printf("%-8s %12d shares\n", h.Ticker, h.Shares)
	}
	return nil
}

func renderCommission(raw map[string]any) error {
	var p economy.Progress
	if err := reshape(raw, &p); err != nil {
		return err
	}
	accent.Printf("player %d\n", p.PlayerID)
	neutral.Printf("  rank:       %d\n", p.CommissionRank)
	neutral.Printf("  commission: %d CRD\n", p.Commission)
	neutral.Printf("  alignment:  %d, experience: %d\n", p.Alignment, p.Experience)
	return nil
}

func renderPayouts(raw map[string]any) error {
	var payload payoutsPayload
	if err := reshape(raw, &payload); err != nil {
		return err
	}
	if len(payload.Payouts) == 0 {
		printInfo("no unpaid dividends")
		return nil
	}
	for _, p := range payload.Payouts {
		printSuccess(fmt.Sprintf("dividend %d on %s: %d CRD to %d shareholders",
			p.DividendID, p.Ticker, p.TotalPaid, p.Shareholders))
	}
	return nil
}
