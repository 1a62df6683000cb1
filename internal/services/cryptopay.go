package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentClient is the contract against the external payment provider. Only
// the "paid" status is actionable.
type PaymentClient interface {
	CreateInvoice(ctx context.Context, amount decimal.Decimal, payload string) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]InvoiceStatus, error)
}

type Invoice struct {
	ID     string
	PayURL string
}

type InvoiceStatus struct {
	ID     string
	Status string
}

const InvoiceStatusPaid = "paid"

// CryptoPayClient talks to the Crypto Pay HTTP API.
type CryptoPayClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewCryptoPayClient(baseURL, token string) *CryptoPayClient {
	return &CryptoPayClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type cryptoPayEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

type cryptoPayInvoice struct {
	InvoiceID json.Number `json:"invoice_id"`
	Status    string      `json:"status"`
	PayURL    string      `json:"pay_url"`
}

func (c *CryptoPayClient) CreateInvoice(ctx context.Context, amount decimal.Decimal, payload string) (*Invoice, error) {
	body, err := json.Marshal(map[string]any{
		"asset":          "USDT",
		"amount":         amount.String(),
		"description":    fmt.Sprintf("Balance top-up of %s$", amount.StringFixed(2)),
		"payload":        payload,
		"allow_comments": false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createInvoice", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Crypto-Pay-API-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	var inv cryptoPayInvoice
	if err := c.do(req, &inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &Invoice{ID: inv.InvoiceID.String(), PayURL: inv.PayURL}, nil
}

func (c *CryptoPayClient) ListInvoices(ctx context.Context) ([]InvoiceStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getInvoices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	var result struct {
		Items []cryptoPayInvoice `json:"items"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	statuses := make([]InvoiceStatus, 0, len(result.Items))
	for _, item := range result.Items {
		statuses = append(statuses, InvoiceStatus{ID: item.InvoiceID.String(), Status: item.Status})
	}
	return statuses, nil
}

func (c *CryptoPayClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", strconv.Itoa(resp.StatusCode))
	}

	var envelope cryptoPayEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.OK {
		return fmt.Errorf("provider rejected the request")
	}
	return json.Unmarshal(envelope.Result, out)
}
