package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cashback-dashboard/internal/models"
)

const notifiedTTL = 7 * 24 * time.Hour

type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

type UserLookup interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// Notifier sends Telegram messages about earnings and withdrawals. Each event
// is sent at most once; Redis remembers what was already delivered.
type Notifier struct {
	sender Sender
	users  UserLookup
	rdb    *redis.Client
	logger *zap.Logger
}

func NewNotifier(sender Sender, users UserLookup, rdb *redis.Client, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, users: users, rdb: rdb, logger: logger}
}

func (n *Notifier) NotifyEarning(ctx context.Context, e *models.ReferralEarning) error {
	key := fmt.Sprintf("notified:earning:%d", e.TradeID)
	return n.notifyOnce(ctx, key, e.ReferrerID, earningText(e))
}

func (n *Notifier) NotifyWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	key := fmt.Sprintf("notified:withdrawal:%d:%s", w.ID, w.Status)
	return n.notifyOnce(ctx, key, w.UserID, withdrawalText(w))
}

func (n *Notifier) notifyOnce(ctx context.Context, key string, userID uint, text string) error {
	user, err := n.users.UserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil || user.TelegramID == nil {
		return nil
	}

	fresh, err := n.rdb.SetNX(ctx, key, "1", notifiedTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to mark notification: %w", err)
	}
	if !fresh {
		return nil
	}

	if _, err := n.sender.SendMessage(ctx, tu.Message(tu.ID(*user.TelegramID), text)); err != nil {
		n.rdb.Del(ctx, key)
		return fmt.Errorf("failed to send message: %w", err)
	}
	n.logger.Debug("Notification sent", zap.String("key", key), zap.Int64("telegram_id", *user.TelegramID))
	return nil
}
