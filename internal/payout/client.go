package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const MetadataWithdrawalID = "withdrawal_id"

type Request struct {
	Amount         decimal.Decimal
	Currency       string
	Destination    string
	Description    string
	Metadata       map[string]string
	IdempotenceKey string
}

type Client struct {
	ShopID     string
	SecretKey  string
	APIURL     string
	HTTPClient *http.Client
}

func NewClient(shopID, secretKey string) *Client {
	return &Client{
		ShopID:    shopID,
		SecretKey: secretKey,
		APIURL:    "https://api.yookassa.ru/v3",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreatePayout sends money to the destination wallet. Repeating a call with
// the same idempotence key returns the original payout.
func (c *Client) CreatePayout(ctx context.Context, r Request) (*Payout, error) {
	if r.IdempotenceKey == "" {
		return nil, fmt.Errorf("idempotence key is required")
	}
	reqBody := createPayoutRequest{
		Amount: Amount{
			Value:    r.Amount.StringFixed(2),
			Currency: r.Currency,
		},
		DestinationData: DestinationData{
			Type:          "yoo_money",
			AccountNumber: r.Destination,
		},
		Description: r.Description,
		Metadata:    r.Metadata,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/payouts", c.APIURL), bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Idempotence-Key", r.IdempotenceKey)
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.ShopID, c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	var payout Payout
	if err := json.Unmarshal(respBody, &payout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &payout, nil
}
