package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
	"cashback-dashboard/internal/wallet"
)

type Store interface {
	UserLookup
	FindOrCreateTelegramUser(ctx context.Context, telegramID int64, username string) (*models.User, bool, error)
	UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

type Referrals interface {
	Apply(ctx context.Context, referredID uint, code string) (*models.ReferralRelationship, error)
	Stats(ctx context.Context, referrerID uint) (referral.Stats, error)
}

type Balances interface {
	Balance(ctx context.Context, userID uint) (wallet.Balance, error)
}

type Bot struct {
	Instance  *telego.Bot
	store     Store
	referrals Referrals
	balances  Balances
	logger    *zap.Logger
}

func NewBot(tgBot *telego.Bot, store Store, referrals Referrals, balances Balances, logger *zap.Logger) *Bot {
	return &Bot{
		Instance:  tgBot,
		store:     store,
		referrals: referrals,
		balances:  balances,
		logger:    logger,
	}
}

func mainKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💰 Balance").WithCallbackData("balance"),
			tu.InlineKeyboardButton("🤝 Referral program").WithCallbackData("referrals"),
		),
	)
}

func backKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("« Back").WithCallbackData("start_back"),
		),
	)
}

// Start polls for updates until ctx is canceled.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleBalance, th.CallbackDataEqual("balance"))
	handler.Handle(b.handleReferrals, th.CallbackDataEqual("referrals"))
	handler.Handle(b.handleBack, th.CallbackDataEqual("start_back"))

	go func() {
		<-ctx.Done()
		handler.Stop()
	}()

	b.logger.Info("Telegram bot started")
	handler.Start()
	return nil
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	telegramID := message.From.ID

	user, created, err := b.store.FindOrCreateTelegramUser(ctx, telegramID, message.From.Username)
	if err != nil {
		b.logger.Error("Failed to get/create user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), "❌ Something went wrong, please try again later."))
		return nil
	}
	if created {
		b.logger.Info("New Telegram user", zap.Uint("user_id", user.ID), zap.Int64("telegram_id", telegramID))
	}

	if code := startArgument(message.Text); code != "" {
		_, err := b.referrals.Apply(ctx, user.ID, code)
		if err != nil && !isReferralRejection(err) {
			b.logger.Error("Failed to apply referral code", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), referralAppliedText(err)))
	}

	_, _ = ctx.Bot().SendMessage(ctx, tu.Message(
		tu.ID(message.Chat.ID),
		welcomeText(message.From.FirstName),
	).WithReplyMarkup(mainKeyboard()))
	return nil
}

func (b *Bot) handleBalance(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	telegramID := callback.From.ID
	defer func() { _ = ctx.Bot().AnswerCallbackQuery(ctx, tu.CallbackQuery(callback.ID)) }()

	user := b.callbackUser(ctx, telegramID)
	if user == nil {
		return nil
	}

	balance, err := b.balances.Balance(ctx, user.ID)
	if err != nil {
		b.logger.Error("Failed to load balance", zap.Uint("user_id", user.ID), zap.Error(err))
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(telegramID), "❌ Could not load your balance."))
		return nil
	}

	_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(telegramID), balanceText(balance)).
		WithParseMode(telego.ModeMarkdown).
		WithReplyMarkup(backKeyboard()))
	return nil
}

func (b *Bot) handleReferrals(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	telegramID := callback.From.ID
	defer func() { _ = ctx.Bot().AnswerCallbackQuery(ctx, tu.CallbackQuery(callback.ID)) }()

	user := b.callbackUser(ctx, telegramID)
	if user == nil {
		return nil
	}

	stats, err := b.referrals.Stats(ctx, user.ID)
	if err != nil {
		b.logger.Error("Failed to load referral stats", zap.Uint("user_id", user.ID), zap.Error(err))
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(telegramID), "❌ Could not load referral stats."))
		return nil
	}

	botUsername := "cashback_bot"
	if info, err := ctx.Bot().GetMe(ctx); err == nil {
		botUsername = info.Username
	}

	_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(telegramID), referralText(referralLink(botUsername, user.ReferralCode), stats)).
		WithParseMode(telego.ModeMarkdown).
		WithReplyMarkup(backKeyboard()))
	return nil
}

func (b *Bot) handleBack(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	_, _ = ctx.Bot().SendMessage(ctx, tu.Message(
		tu.ID(callback.From.ID),
		welcomeText(callback.From.FirstName),
	).WithReplyMarkup(mainKeyboard()))
	_ = ctx.Bot().AnswerCallbackQuery(ctx, tu.CallbackQuery(callback.ID))
	return nil
}

func (b *Bot) callbackUser(ctx *th.Context, telegramID int64) *models.User {
	user, err := b.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		b.logger.Error("Failed to find user", zap.Int64("telegram_id", telegramID), zap.Error(err))
	}
	if user == nil {
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(telegramID), "👤 Profile not found. Send /start first."))
	}
	return user
}

// startArgument returns the deep-link payload of a /start command.
func startArgument(text string) string {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func isReferralRejection(err error) bool {
	return errors.Is(err, referral.ErrUnknownCode) ||
		errors.Is(err, referral.ErrSelfReferral) ||
		errors.Is(err, referral.ErrAlreadyReferred) ||
		errors.Is(err, referral.ErrReferralClosed)
}
