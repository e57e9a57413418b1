package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client wraps the economy API for the operator CLI. Every call carries the
// shared service token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func accountPath(ownerType string, ownerID int64, tail string) string {
	return fmt.Sprintf("/v1/accounts/%s/%d/%s", url.PathEscape(ownerType), ownerID, tail)
}

func (c *Client) Balance(ctx context.Context, ownerType string, ownerID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, accountPath(ownerType, ownerID, "balance"), nil, &out)
	return out, err
}

func (c *Client) CreateAccount(ctx context.Context, ownerType string, ownerID, initialBalance int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/accounts", map[string]any{
		"owner_type":      ownerType,
		"owner_id":        ownerID,
		"initial_balance": initialBalance,
	}, &out)
	return out, err
}

func (c *Client) Deposit(ctx context.Context, ownerType string, ownerID, amount int64, description string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(ownerType, ownerID, "deposit"), map[string]any{
		"amount":      amount,
		"description": description,
	}, &out)
	return out, err
}

func (c *Client) Withdraw(ctx context.Context, ownerType string, ownerID, amount int64, description string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(ownerType, ownerID, "withdraw"), map[string]any{
		"amount":      amount,
		"description": description,
	}, &out)
	return out, err
}

func (c *Client) Transfer(ctx context.Context, fromType string, fromID int64, toType string, toID, amount int64, txType, description string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/transfers", map[string]any{
		"from_type":   fromType,
		"from_id":     fromID,
		"to_type":     toType,
		"to_id":       toID,
		"amount":      amount,
		"tx_type":     txType,
		"description": description,
	}, &out)
	return out, err
}

func (c *Client) Transactions(ctx context.Context, ownerType string, ownerID int64, txType, direction string, limit int) (map[string]any, error) {
	q := url.Values{}
	if txType != "" {
		q.Set("type", txType)
	}
	if direction != "" {
		q.Set("direction", direction)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := accountPath(ownerType, ownerID, "transactions")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ListStocks(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks", nil, &out)
	return out, err
}

func (c *Client) StockDetail(ctx context.Context, ticker string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks/"+url.PathEscape(ticker), nil, &out)
	return out, err
}

func (c *Client) RegisterIPO(ctx context.Context, corpID, ceoPlayerID int64, ticker string, totalShares, parValue, price int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/stocks/ipo", map[string]any{
		"corp_id":       corpID,
		"ceo_player_id": ceoPlayerID,
		"ticker":        ticker,
		"total_shares":  totalShares,
		"par_value":     parValue,
		"price":         price,
	}, &out)
	return out, err
}

func (c *Client) BuyShares(ctx context.Context, playerID int64, ticker string, quantity int64) (map[string]any, error) {
	return c.shareTrade(ctx, "buy", playerID, ticker, quantity)
}

func (c *Client) SellShares(ctx context.Context, playerID int64, ticker string, quantity int64) (map[string]any, error) {
	return c.shareTrade(ctx, "sell", playerID, ticker, quantity)
}

func (c *Client) shareTrade(ctx context.Context, side string, playerID int64, ticker string, quantity int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/stocks/"+url.PathEscape(ticker)+"/"+side, map[string]any{
		"player_id": playerID,
		"quantity":  quantity,
	}, &out)
	return out, err
}

func (c *Client) DeclareDividend(ctx context.Context, corpID, ceoPlayerID, amountPerShare int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/stocks/dividends", map[string]any{
		"corp_id":          corpID,
		"ceo_player_id":    ceoPlayerID,
		"amount_per_share": amountPerShare,
	}, &out)
	return out, err
}

func (c *Client) Holdings(ctx context.Context, playerID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/players/%d/holdings", playerID), nil, &out)
	return out, err
}

func (c *Client) SetFrozen(ctx context.Context, playerID int64, frozen bool) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/players/%d/freeze", playerID), map[string]any{
		"frozen": frozen,
	}, &out)
	return out, err
}

func (c *Client) Commission(ctx context.Context, playerID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/players/%d/commission", playerID), nil, &out)
	return out, err
}

func (c *Client) RecomputeCommission(ctx context.Context, playerID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/players/%d/commission/recompute", playerID), map[string]any{}, &out)
	return out, err
}

func (c *Client) RunDividendPayout(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/jobs/dividends/run", map[string]any{}, &out)
	return out, err
}

func (c *Client) RunTaxSweep(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/jobs/tax/run", map[string]any{}, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
