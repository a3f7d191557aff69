package payout

import (
	"fmt"
	"strconv"
)

const (
	EventSucceeded = "payout.succeeded"
	EventCanceled  = "payout.canceled"

	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusCanceled  = "canceled"
)

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type DestinationData struct {
	Type          string `json:"type"`
	AccountNumber string `json:"account_number"`
}

type createPayoutRequest struct {
	Amount          Amount            `json:"amount"`
	DestinationData DestinationData   `json:"payout_destination_data"`
	Description     string            `json:"description,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type Payout struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Amount   Amount            `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Webhook structures

type CancellationDetails struct {
	Party  string `json:"party"`
	Reason string `json:"reason"`
}

type Notification struct {
	Type   string        `json:"type"`
	Event  string        `json:"event"`
	Object WebhookPayout `json:"object"`
}

type WebhookPayout struct {
	ID                  string               `json:"id"`
	Status              string               `json:"status"`
	Amount              Amount               `json:"amount"`
	Metadata            map[string]string    `json:"metadata"`
	CancellationDetails *CancellationDetails `json:"cancellation_details,omitempty"`
}

// WithdrawalID reads the withdrawal the payout was issued for.
func (p WebhookPayout) WithdrawalID() (uint, error) {
	raw, ok := p.Metadata[MetadataWithdrawalID]
	if !ok {
		return 0, fmt.Errorf("metadata missing %s", MetadataWithdrawalID)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", MetadataWithdrawalID, raw)
	}
	return uint(id), nil
}

// CancelReason describes why the provider canceled the payout.
func (p WebhookPayout) CancelReason() string {
	if p.CancellationDetails == nil || p.CancellationDetails.Reason == "" {
		return "payout canceled by provider"
	}
	return fmt.Sprintf("payout canceled by %s: %s", p.CancellationDetails.Party, p.CancellationDetails.Reason)
}
