// Package transfer wraps the payout provider's transfer-initiation API.
// The settlement flow calls it exactly once per attempt; any non-success
// response, including transport failure, is final for that attempt.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitbender-8/cs-fy-project-sub000/pkg/config"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

// Request describes one outbound transfer.
type Request struct {
	AccountNumber string
	BankCode      string
	Amount        money.Amount
	Currency      string
	Reference     string
}

// Result is the provider's acknowledgement of an initiated transfer.
type Result struct {
	ProviderReference string
}

// Client talks to the payout provider over HTTP.
type Client struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
}

// NewClient constructs a provider client from configuration.
func NewClient(cfg config.TransferConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		currency:   cfg.Currency,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type transferPayload struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
}

type transferResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// InitiateTransfer submits the transfer to the provider. The amount crosses
// the wire as a decimal string rendered by the money codec.
func (c *Client) InitiateTransfer(ctx context.Context, req Request) (*Result, error) {
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}
	payload := transferPayload{
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		Amount:        req.Amount.String(),
		Currency:      currency,
		Reference:     req.Reference,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode transfer payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call transfer provider: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read transfer response: %w", err)
	}

	var decoded transferResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode transfer response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !strings.EqualFold(decoded.Status, "success") {
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("transfer rejected by provider: %s", msg)
	}

	providerRef := decoded.Data.Reference
	if providerRef == "" {
		providerRef = req.Reference
	}
	return &Result{ProviderReference: providerRef}, nil
}
