package brokerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIError is returned for any response with a status of 400 or above.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s (status: %d)", e.Body, e.StatusCode)
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func accountPath(brokerName, accountNumber string) string {
	return fmt.Sprintf("/brokers/%s/accounts/%s", url.PathEscape(brokerName), url.PathEscape(accountNumber))
}

// VerifyAccount reports whether the broker confirms the account belongs to
// our partner program. An account the broker does not know is not an error.
func (c *Client) VerifyAccount(ctx context.Context, brokerName, accountNumber string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, accountPath(brokerName, accountNumber), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}

	var result accountResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Response.Verified && result.Response.Status == "active", nil
}

// ListTrades returns trades closed at or after since.
func (c *Client) ListTrades(ctx context.Context, brokerName, accountNumber string, since time.Time) ([]Trade, error) {
	endpoint := accountPath(brokerName, accountNumber) + "/trades"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result tradesResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Response, nil
}
