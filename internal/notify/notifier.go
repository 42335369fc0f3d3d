// Package notify renders follower alerts and delivers them to Telegram
// chats with per-chat rate limiting and bounded retry on timeouts.
package notify

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"followerwatch/internal/models"
)

// Swappable in tests.
var (
	timeNow = time.Now
	sleepFn = time.Sleep
)

const maxRetries = 3

// MessageSender is the outbound side of the Telegram client. It's
// implemented by tgbotapi.BotAPI, and can be mocked for testing.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier delivers follower alerts. Sends to one chat are throttled by
// that chat's own limiter so a burst of new followers doesn't trip
// Telegram flood limits.
type Notifier struct {
	sender   MessageSender
	limiters map[int64]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// New creates a Notifier around an explicit sender handle.
func New(sender MessageSender) *Notifier {
	return &Notifier{
		sender:   sender,
		limiters: make(map[int64]*rate.Limiter),
		rate:     rate.Limit(1),
		burst:    5,
	}
}

func (n *Notifier) limiter(chatID int64) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()
	limiter, ok := n.limiters[chatID]
	if !ok {
		limiter = rate.NewLimiter(n.rate, n.burst)
		n.limiters[chatID] = limiter
	}
	return limiter
}

// isTimeout reports whether a delivery failure is timeout-class and worth
// retrying.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// SendFollowerAlert renders and delivers the alert for one new follower.
// Timeout-class failures are retried up to 3 times with a 5s, then 10s
// wait; any other failure is logged and dropped immediately. An alert that
// exhausts its retries is lost, there is no dead-letter queue.
func (n *Notifier) SendFollowerAlert(ctx context.Context, chatID int64, account string, f models.Follower) error {
	if err := n.limiter(chatID).Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, RenderAlert(account, f))
	msg.ParseMode = tgbotapi.ModeHTML

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err := n.sender.Send(msg)
		if err == nil {
			return nil
		}
		if !isTimeout(err) {
			log.Printf("Error sending notification to chat %d: %v", chatID, err)
			return err
		}
		lastErr = err
		if attempt < maxRetries {
			sleepFn(time.Duration(5*attempt) * time.Second)
		}
	}
	log.Printf("Failed to send notification to chat %d after %d attempts", chatID, maxRetries)
	return lastErr
}
