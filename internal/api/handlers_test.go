package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cashback-dashboard/internal/accounts"
	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
	"cashback-dashboard/internal/wallet"
)

const testSecret = "test-secret"

type fixture struct {
	router    *gin.Engine
	wallet    *fakeWallet
	accounts  *fakeAccounts
	referrals *fakeReferrals
	store     *fakeStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		wallet:    newFakeWallet(),
		accounts:  &fakeAccounts{},
		referrals: &fakeReferrals{},
		store: &fakeStore{
			users: map[uint]*models.User{
				7: {ID: 7, Role: models.RoleUser, ReferralCode: "ref_0123456789"},
			},
			brokers: map[string]*models.Broker{
				"XM": {ID: 1, Name: "XM", Available: true},
			},
		},
	}
	h := NewHandler(f.wallet, f.accounts, f.referrals, f.store, []string{"185.71.76.0/27"}, zap.NewNop())
	f.router = h.Router(RouterOptions{JWTSecret: testSecret})
	return f
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, err := IssueToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(method, path, tok, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/me/balance", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me/balance", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	foreign, err := IssueToken("other-secret", 7, models.RoleUser, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/me/balance", foreign, "").Code)

	expired, err := IssueToken(testSecret, 7, models.RoleUser, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/me/balance", expired, "").Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/me/balance", token(t, 7, models.RoleUser), "").Code)
}

func TestParseToken(t *testing.T) {
	tok := token(t, 7, models.RoleAdmin)
	claims, err := ParseToken(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = ParseToken("", tok)
	assert.Error(t, err)

	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, Claims{UserID: 7, Role: models.RoleAdmin}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseToken(testSecret, hs384)
	assert.Error(t, err)

	anonymous, err := IssueToken(testSecret, 0, models.RoleUser, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, anonymous)
	assert.Error(t, err)

	_, err = IssueToken("", 7, models.RoleUser, time.Hour)
	assert.Error(t, err)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/admin/brokers", token(t, 7, models.RoleUser), "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/brokers", token(t, 1, models.RoleAdmin), "").Code)
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t)
	f.wallet.balance = wallet.Balance{
		CashbackTotal: decimal.RequireFromString("40.5"),
		Withdrawn:     decimal.NewFromInt(28),
		Available:     decimal.RequireFromString("12.5"),
		Requestable:   decimal.RequireFromString("2.5"),
	}

	rec := f.do(http.MethodGet, "/api/me/balance", token(t, 7, models.RoleUser), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "12.5", body["available"])
	assert.Equal(t, "2.5", body["requestable"])
}

func TestGetTrades(t *testing.T) {
	f := newFixture(t)
	f.wallet.trades = []wallet.TradeView{{
		TradeRow: models.TradeRow{Trade: models.Trade{ID: 3, Ticket: "T-3"}, UserID: 7, BrokerName: "XM"},
		Cashback: decimal.RequireFromString("3.75"),
	}}

	rec := f.do(http.MethodGet, "/api/me/trades", token(t, 7, models.RoleUser), "")
	require.Equal(t, http.StatusOK, rec.Code)
	trades := decode(t, rec)["trades"].([]any)
	require.Len(t, trades, 1)
	assert.Equal(t, "3.75", trades[0].(map[string]any)["cashback"])
}

func TestLinkAccount(t *testing.T) {
	f := newFixture(t)
	tok := token(t, 7, models.RoleUser)

	rec := f.do(http.MethodPost, "/api/me/accounts", tok, `{"broker_name":"XM","account_number":"1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1001", decode(t, rec)["account_number"])

	rec = f.do(http.MethodGet, "/api/me/accounts", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["accounts"], 1)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/me/accounts", tok, `{"broker_name":"XM"}`).Code)

	f.accounts.err = accounts.ErrAccountTaken
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/me/accounts", tok, `{"broker_name":"XM","account_number":"1001"}`).Code)

	f.accounts.err = accounts.ErrBrokerUnavailable
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPost, "/api/me/accounts", tok, `{"broker_name":"XM","account_number":"1002"}`).Code)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	f := newFixture(t)
	f.accounts.err = fmt.Errorf("create account: %w", errDown)

	rec := f.do(http.MethodPost, "/api/me/accounts", token(t, 7, models.RoleUser), `{"broker_name":"XM","account_number":"1001"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])
}

func TestRequestWithdrawal(t *testing.T) {
	f := newFixture(t)
	tok := token(t, 7, models.RoleUser)

	rec := f.do(http.MethodPost, "/api/me/withdrawals", tok, `{"broker_name":"XM","amount":"25.50","destination":"wallet-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "25.5", body["amount"])
	assert.Equal(t, models.WithdrawalPending, body["status"])

	rec = f.do(http.MethodGet, "/api/me/withdrawals", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["withdrawals"], 1)

	f.wallet.requestErr = wallet.ErrInsufficientBalance
	rec = f.do(http.MethodPost, "/api/me/withdrawals", tok, `{"broker_name":"XM","amount":"1000","destination":"wallet-1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, wallet.ErrInsufficientBalance.Error(), decode(t, rec)["error"])

	f.wallet.requestErr = wallet.ErrInvalidAmount
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/me/withdrawals", tok, `{"broker_name":"XM","amount":"-1","destination":"wallet-1"}`).Code)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/me/withdrawals", tok, `{"amount":`).Code)
}

func TestReferrals(t *testing.T) {
	f := newFixture(t)
	f.referrals.stats = referral.Stats{Invited: 3, Active: 1, CommissionTotal: decimal.NewFromInt(4)}

	rec := f.do(http.MethodGet, "/api/me/referrals", token(t, 7, models.RoleUser), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ref_0123456789", body["code"])
	assert.Equal(t, float64(3), body["stats"].(map[string]any)["invited"])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/me/referrals", token(t, 8, models.RoleUser), "").Code)
}

func TestApplyReferral(t *testing.T) {
	f := newFixture(t)
	tok := token(t, 7, models.RoleUser)

	rec := f.do(http.MethodPost, "/api/me/referrals", tok, `{"code":"ref_abc"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(7), decode(t, rec)["referred_id"])

	cases := map[error]int{
		referral.ErrUnknownCode:     http.StatusNotFound,
		referral.ErrAlreadyReferred: http.StatusConflict,
		referral.ErrReferralClosed:  http.StatusConflict,
		referral.ErrSelfReferral:    http.StatusUnprocessableEntity,
	}
	for err, status := range cases {
		f.referrals.applyErr = err
		assert.Equal(t, status, f.do(http.MethodPost, "/api/me/referrals", tok, `{"code":"ref_abc"}`).Code, err.Error())
	}

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/me/referrals", tok, `{}`).Code)
}

func TestEarningsPeriodFilter(t *testing.T) {
	f := newFixture(t)
	tok := token(t, 7, models.RoleUser)

	rec := f.do(http.MethodGet, "/api/me/referrals/earnings?period=2026-03", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["earnings"], 1)

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/me/referrals/earnings", tok, "").Code)
	assert.Equal(t, []string{"2026-03", ""}, f.referrals.periods)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/me/referrals/earnings?period=March", tok, "").Code)
}

func TestAdminWithdrawalLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := token(t, 1, models.RoleAdmin)
	f.wallet.withdrawals[1] = &models.Withdrawal{ID: 1, UserID: 7, Status: models.WithdrawalPending}

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/admin/withdrawals/1/complete", admin, `{"transaction_ref":"tx-1"}`).Code)

	rec := f.do(http.MethodGet, "/api/admin/withdrawals?status=pending", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["withdrawals"], 1)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/admin/withdrawals?status=lost", admin, "").Code)

	rec = f.do(http.MethodPost, "/api/admin/withdrawals/1/approve", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.WithdrawalProcessing, decode(t, rec)["status"])
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/admin/withdrawals/1/approve", admin, "").Code)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/admin/withdrawals/1/complete", admin, `{"transaction_ref":""}`).Code)

	rec = f.do(http.MethodPost, "/api/admin/withdrawals/1/complete", admin, `{"transaction_ref":"tx-77"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tx-77", decode(t, rec)["transaction_ref"])

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/admin/withdrawals/1/reject", admin, `{"reason":"late"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/admin/withdrawals/abc/approve", admin, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/admin/withdrawals/42/approve", admin, "").Code)
}

func TestAdminRejectWithdrawal(t *testing.T) {
	f := newFixture(t)
	admin := token(t, 1, models.RoleAdmin)
	f.wallet.withdrawals[2] = &models.Withdrawal{ID: 2, UserID: 7, Status: models.WithdrawalPending}

	rec := f.do(http.MethodPost, "/api/admin/withdrawals/2/reject", admin, `{"reason":"duplicate request"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, models.WithdrawalRejected, body["status"])
	assert.Equal(t, "duplicate request", body["reject_reason"])
}

func TestApprovePayoutFailure(t *testing.T) {
	f := newFixture(t)
	f.wallet.withdrawals[1] = &models.Withdrawal{ID: 1, UserID: 7, Status: models.WithdrawalPending}
	f.wallet.approveErr = fmt.Errorf("%w: timeout", wallet.ErrPayoutFailed)

	rec := f.do(http.MethodPost, "/api/admin/withdrawals/1/approve", token(t, 1, models.RoleAdmin), "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, models.WithdrawalPending, f.wallet.withdrawals[1].Status)
}

func TestUpdateBrokerFlags(t *testing.T) {
	f := newFixture(t)
	admin := token(t, 1, models.RoleAdmin)

	rec := f.do(http.MethodPatch, "/api/admin/brokers/XM", admin, `{"maintenance":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["maintenance"])
	assert.Equal(t, true, body["available"])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPatch, "/api/admin/brokers/Nope", admin, `{"available":false}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/api/admin/brokers/XM", admin, `{"available":"yes"}`).Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/health", "", "").Code)

	f.store.pingErr = errDown
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/api/health", "", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/health", "", "").Code)

	rec := f.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/health",status="200"}`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode(t, rec)["error"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/me/balance", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
