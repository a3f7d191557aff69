package bot

import (
	"errors"
	"fmt"

	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
	"cashback-dashboard/internal/wallet"
)

func welcomeText(firstName string) string {
	return fmt.Sprintf("Hi, %s! 👋\n\nLink your broker accounts in the dashboard and earn cashback on every trade.", firstName)
}

func referralAppliedText(err error) string {
	switch {
	case err == nil:
		return "🤝 Referral code applied. Your referrer starts earning once you connect your first trading account."
	case errors.Is(err, referral.ErrUnknownCode):
		return "❌ This referral code does not exist."
	case errors.Is(err, referral.ErrSelfReferral):
		return "❌ You cannot use your own referral code."
	case errors.Is(err, referral.ErrAlreadyReferred):
		return "ℹ️ You already joined with a referral code."
	case errors.Is(err, referral.ErrReferralClosed):
		return "ℹ️ Referral codes can only be used before your first trading account is connected."
	default:
		return "❌ Could not apply the referral code, please try again later."
	}
}

func balanceText(b wallet.Balance) string {
	return fmt.Sprintf("💰 *Balance*\n\n"+
		"🔹 Cashback earned: %s\n"+
		"🔹 Withdrawn: %s\n"+
		"🔹 In progress: %s\n"+
		"🔹 Available: %s",
		b.CashbackTotal.StringFixed(2), b.Withdrawn.StringFixed(2), b.Outstanding.StringFixed(2), b.Available.StringFixed(2))
}

func referralText(link string, s referral.Stats) string {
	return fmt.Sprintf("🤝 *Referral program*\n\n"+
		"Invite traders and earn a share of their cashback!\n\n"+
		"👥 Invited: %d (active: %d)\n"+
		"💰 Earned: %s (pending: %s)\n\n"+
		"🔗 *Your link:*\n`%s`",
		s.Invited, s.Active, s.CommissionTotal.StringFixed(2), s.CommissionPending.StringFixed(2), link)
}

func referralLink(botUsername, code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, code)
}

func earningText(e *models.ReferralEarning) string {
	return fmt.Sprintf("💸 New referral commission: %s from a trade of your referral (period %s).",
		e.CommissionAmount.StringFixed(2), e.Period)
}

func withdrawalText(w *models.Withdrawal) string {
	amount := w.Amount.StringFixed(2)
	switch w.Status {
	case models.WithdrawalProcessing:
		return fmt.Sprintf("⏳ Your withdrawal #%d of %s was approved and is being paid out.", w.ID, amount)
	case models.WithdrawalCompleted:
		return fmt.Sprintf("✅ Your withdrawal #%d of %s is complete.\nTransaction: %s", w.ID, amount, w.TransactionRef)
	case models.WithdrawalRejected:
		msg := fmt.Sprintf("❌ Your withdrawal #%d of %s was rejected.", w.ID, amount)
		if w.RejectReason != "" {
			msg += "\nReason: " + w.RejectReason
		}
		return msg
	default:
		return fmt.Sprintf("📝 Your withdrawal #%d of %s was received.", w.ID, amount)
	}
}
