package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	cl "parsec/internal/cli"
	"parsec/internal/config"
	"parsec/internal/economy"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "psc",
		Short:        "Parsec economy operator console",
		SilenceUsage: true,
	}

	root.AddCommand(
		newAccountCmd(cfg),
		newBalanceCmd(cfg),
		newDepositCmd(cfg),
		newWithdrawCmd(cfg),
		newTransferCmd(cfg),
		newHistoryCmd(cfg),
		newFreezeCmd(cfg),
		newStocksCmd(cfg),
		newIPOCmd(cfg),
		newTradeCmd(cfg, "buy"),
		newTradeCmd(cfg, "sell"),
		newDividendCmd(cfg),
		newHoldingsCmd(cfg),
		newCommissionCmd(cfg),
		newJobsCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

func newClient(cfg config.CLIConfig) *cl.Client {
	return cl.NewClient(cfg.APIBaseURL, cfg.ServiceToken)
}

func parseOwner(typeArg, idArg string) (string, int64, error) {
	t, err := economy.ParseOwnerType(typeArg)
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil || id < 0 {
		return "", 0, fmt.Errorf("invalid owner id %q", idArg)
	}
	return string(t), id, nil
}

func parseAmount(arg string) (int64, error) {
	amount, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("invalid amount %q", arg)
	}
	return amount, nil
}

func newAccountCmd(cfg config.CLIConfig) *cobra.Command {
	var initial int64
	cmd := &cobra.Command{
		Use:   "account <owner_type> <owner_id>",
		Short: "Create a bank account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerType, ownerID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).CreateAccount(ctx, ownerType, ownerID, initial)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("account ready: %s:%d (id %v)", ownerType, ownerID, out["account_id"]))
			return nil
		},
	}
	cmd.Flags().Int64Var(&initial, "initial", 0, "opening balance in credits")
	return cmd
}

func newBalanceCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <owner_type> <owner_id>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerType, ownerID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Balance(ctx, ownerType, ownerID)
			if err != nil {
				return err
			}
			return renderBalance(out)
		},
	}
}

func newDepositCmd(cfg config.CLIConfig) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "deposit <owner_type> <owner_id> <amount>",
		Short: "Credit an account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerType, ownerID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Deposit(ctx, ownerType, ownerID, amount, description)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("deposited %d CRD, balance now %v", amount, out["balance"]))
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "memo", "", "ledger description")
	return cmd
}

func newWithdrawCmd(cfg config.CLIConfig) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "withdraw <owner_type> <owner_id> <amount>",
		Short: "Debit an account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerType, ownerID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Withdraw(ctx, ownerType, ownerID, amount, description)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("withdrew %d CRD, balance now %v", amount, out["balance"]))
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "memo", "", "ledger description")
	return cmd
}

func newTransferCmd(cfg config.CLIConfig) *cobra.Command {
	var txType, description string
	cmd := &cobra.Command{
		Use:   "transfer <from_type> <from_id> <to_type> <to_id> <amount>",
		Short: "Move credits between two accounts",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromType, fromID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			toType, toID, err := parseOwner(args[2], args[3])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[4])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Transfer(ctx, fromType, fromID, toType, toID, amount, txType, description)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("transferred %d CRD (group %v)", amount, out["tx_group_id"]))
			return nil
		},
	}
	cmd.Flags().StringVar(&txType, "type", "", "transaction type label")
	cmd.Flags().StringVar(&description, "memo", "", "ledger description")
	return cmd
}

func newHistoryCmd(cfg config.CLIConfig) *cobra.Command {
	var txType, direction string
	var limit int
	cmd := &cobra.Command{
		Use:   "history <owner_type> <owner_id>",
		Short: "Show recent ledger entries for an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerType, ownerID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Transactions(ctx, ownerType, ownerID, txType, direction, limit)
			if err != nil {
				return err
			}
			return renderHistory(out)
		},
	}
	cmd.Flags().StringVar(&txType, "type", "", "filter by transaction type")
	cmd.Flags().StringVar(&direction, "direction", "", "filter by CREDIT or DEBIT")
	cmd.Flags().IntVar(&limit, "limit", 0, "max entries")
	return cmd
}

func newFreezeCmd(cfg config.CLIConfig) *cobra.Command {
	var thaw bool
	cmd := &cobra.Command{
		Use:   "freeze <player_id>",
		Short: "Freeze or unfreeze a player's outgoing funds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || playerID <= 0 {
				return fmt.Errorf("invalid player id %q", args[0])
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(cfg).SetFrozen(ctx, playerID, !thaw); err != nil {
				return err
			}
			if thaw {
				printSuccess(fmt.Sprintf("player %d unfrozen", playerID))
			} else {
				printWarn(fmt.Sprintf("player %d frozen", playerID))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&thaw, "off", false, "lift the freeze instead")
	return cmd
}

func newStocksCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "stocks [ticker]",
		Short: "List registered stocks, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			client := newClient(cfg)
			if len(args) == 1 {
				out, err := client.StockDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return renderStockDetail(out)
			}
			out, err := client.ListStocks(ctx)
			if err != nil {
				return err
			}
			return renderStocksList(out)
		},
	}
}

func newIPOCmd(cfg config.CLIConfig) *cobra.Command {
	var parValue int64
	cmd := &cobra.Command{
		Use:   "ipo <corp_id> <ceo_player_id> <ticker> <total_shares> <price>",
		Short: "Register a corporation's stock",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid corp id %q", args[0])
			}
			ceoID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid player id %q", args[1])
			}
			totalShares, err := parseAmount(args[3])
			if err != nil {
				return err
			}
			price, err := parseAmount(args[4])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).RegisterIPO(ctx, corpID, ceoID, args[2], totalShares, parValue, price)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("listed %v at %v CRD/share", out["ticker"], out["current_price"]))
			return nil
		},
	}
	cmd.Flags().Int64Var(&parValue, "par", 0, "par value per share")
	return cmd
}

func newTradeCmd(cfg config.CLIConfig, side string) *cobra.Command {
	short := "Buy shares from a corporation's float"
	if side == "sell" {
		short = "Sell shares back to the corporation"
	}
	return &cobra.Command{
		Use:   side + " <player_id> <ticker> <quantity>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || playerID <= 0 {
				return fmt.Errorf("invalid player id %q", args[0])
			}
			quantity, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			client := newClient(cfg)
			var out map[string]any
			if side == "buy" {
				out, err = client.BuyShares(ctx, playerID, args[1], quantity)
			} else {
				out, err = client.SellShares(ctx, playerID, args[1], quantity)
			}
			if err != nil {
				return err
			}
			return renderTrade(side, out)
		},
	}
}

func newDividendCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "dividend <corp_id> <ceo_player_id> <amount_per_share>",
		Short: "Declare a dividend for later settlement",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid corp id %q", args[0])
			}
			ceoID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid player id %q", args[1])
			}
			perShare, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).DeclareDividend(ctx, corpID, ceoID, perShare)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("dividend %v declared on %v (%d CRD/share)", out["id"], out["ticker"], perShare))
			return nil
		},
	}
}

func newHoldingsCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings <player_id>",
		Short: "List a player's share holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || playerID <= 0 {
				return fmt.Errorf("invalid player id %q", args[0])
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Holdings(ctx, playerID)
			if err != nil {
				return err
			}
			return renderHoldings(out)
		},
	}
}

func newCommissionCmd(cfg config.CLIConfig) *cobra.Command {
	var recompute bool
	cmd := &cobra.Command{
		Use:   "commission <player_id>",
		Short: "Show (or recompute) a player's commission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || playerID <= 0 {
				return fmt.Errorf("invalid player id %q", args[0])
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			client := newClient(cfg)
			var out map[string]any
			if recompute {
				out, err = client.RecomputeCommission(ctx, playerID)
			} else {
				out, err = client.Commission(ctx, playerID)
			}
			if err != nil {
				return err
			}
			return renderCommission(out)
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "recompute from alignment and experience first")
	return cmd
}

func newJobsCmd(cfg config.CLIConfig) *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Run a background job immediately",
	}
	jobs.AddCommand(
		&cobra.Command{
			Use:   "dividends",
			Short: "Settle all declared, unpaid dividends",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				out, err := newClient(cfg).RunDividendPayout(ctx)
				if err != nil {
					return err
				}
				return renderPayouts(out)
			},
		},
		&cobra.Command{
			Use:   "tax",
			Short: "Run the daily wealth tax sweep",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				out, err := newClient(cfg).RunTaxSweep(ctx)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("taxed %v accounts, collected %v CRD", out["accounts_taxed"], out["collected"]))
				return nil
			},
		},
	)
	return jobs
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}
