package api

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
	"cashback-dashboard/internal/wallet"
)

var errDown = errors.New("database is down")

type fakeWallet struct {
	balance     wallet.Balance
	trades      []wallet.TradeView
	withdrawals map[uint]*models.Withdrawal
	requestErr  error
	approveErr  error
	completeErr error
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{withdrawals: map[uint]*models.Withdrawal{}}
}

func (f *fakeWallet) Balance(context.Context, uint) (wallet.Balance, error) {
	return f.balance, nil
}

func (f *fakeWallet) Trades(context.Context, uint) ([]wallet.TradeView, error) {
	return f.trades, nil
}

func (f *fakeWallet) Request(_ context.Context, userID uint, brokerName string, amount decimal.Decimal, destination string) (*models.Withdrawal, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	w := &models.Withdrawal{
		ID:          uint(len(f.withdrawals) + 1),
		UserID:      userID,
		BrokerName:  brokerName,
		Amount:      amount,
		Destination: destination,
		Status:      models.WithdrawalPending,
	}
	f.withdrawals[w.ID] = w
	return w, nil
}

func (f *fakeWallet) List(_ context.Context, userID uint) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	for _, w := range f.withdrawals {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWallet) ListByStatus(_ context.Context, status string) ([]models.Withdrawal, error) {
	if status == "lost" {
		return nil, wallet.ErrUnknownStatus
	}
	var out []models.Withdrawal
	for _, w := range f.withdrawals {
		if status == "" || w.Status == status {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWallet) move(id uint, from []string, to string) (*models.Withdrawal, error) {
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, wallet.ErrNotFound
	}
	for _, status := range from {
		if w.Status == status {
			w.Status = to
			return w, nil
		}
	}
	if to == models.WithdrawalCompleted && w.Status == models.WithdrawalPending {
		return nil, wallet.ErrAwaitingApproval
	}
	return nil, wallet.ErrInvalidTransition
}

func (f *fakeWallet) Approve(_ context.Context, id uint) (*models.Withdrawal, error) {
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	return f.move(id, []string{models.WithdrawalPending}, models.WithdrawalProcessing)
}

func (f *fakeWallet) Complete(_ context.Context, id uint, ref string) (*models.Withdrawal, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	if ref == "" {
		return nil, wallet.ErrTransactionRefRequired
	}
	w, err := f.move(id, []string{models.WithdrawalProcessing}, models.WithdrawalCompleted)
	if err == nil {
		w.TransactionRef = ref
	}
	return w, err
}

func (f *fakeWallet) Reject(_ context.Context, id uint, reason string) (*models.Withdrawal, error) {
	w, err := f.move(id, []string{models.WithdrawalPending, models.WithdrawalProcessing}, models.WithdrawalRejected)
	if err == nil {
		w.RejectReason = reason
	}
	return w, err
}

type fakeAccounts struct {
	linked []models.TradingAccount
	err    error
}

func (f *fakeAccounts) Link(_ context.Context, userID uint, brokerName, accountNumber string) (*models.TradingAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	account := models.TradingAccount{
		ID:            uint(len(f.linked) + 1),
		UserID:        userID,
		BrokerName:    brokerName,
		AccountNumber: accountNumber,
		Status:        models.AccountStatusConnected,
	}
	f.linked = append(f.linked, account)
	return &account, nil
}

func (f *fakeAccounts) List(_ context.Context, userID uint) ([]models.TradingAccount, error) {
	var out []models.TradingAccount
	for _, a := range f.linked {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeReferrals struct {
	stats    referral.Stats
	applyErr error
	periods  []string
}

func (f *fakeReferrals) Apply(_ context.Context, referredID uint, _ string) (*models.ReferralRelationship, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	return &models.ReferralRelationship{ID: 1, ReferrerID: 99, ReferredID: referredID, Status: models.RelationshipPending}, nil
}

func (f *fakeReferrals) Stats(context.Context, uint) (referral.Stats, error) {
	return f.stats, nil
}

func (f *fakeReferrals) Earnings(_ context.Context, referrerID uint, period string) ([]models.ReferralEarning, error) {
	f.periods = append(f.periods, period)
	return []models.ReferralEarning{{ID: 1, ReferrerID: referrerID, TradeID: 5, Period: "2026-03"}}, nil
}

type fakeStore struct {
	users   map[uint]*models.User
	brokers map[string]*models.Broker
	pingErr error
}

func (f *fakeStore) UserByID(_ context.Context, id uint) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) ListBrokers(context.Context) ([]models.Broker, error) {
	var out []models.Broker
	for _, b := range f.brokers {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeStore) UpdateBrokerFlags(_ context.Context, name string, available, maintenance *bool) (*models.Broker, error) {
	b, ok := f.brokers[name]
	if !ok {
		return nil, nil
	}
	if available != nil {
		b.Available = *available
	}
	if maintenance != nil {
		b.Maintenance = *maintenance
	}
	b.UpdatedAt = time.Now()
	return b, nil
}

func (f *fakeStore) Ping() error {
	return f.pingErr
}
