package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tms/internal/domain"
	"tms/internal/events"
	"tms/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Telegram allows roughly one message per second to the same chat.
const sendsPerSecond = 1

// TelegramNotifier posts order summaries to a fixed set of chats.
type TelegramNotifier struct {
	sender  domain.TelegramSender
	chats   []int64
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewBotAPI connects to Telegram with the bot token.
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func NewTelegramNotifier(sender domain.TelegramSender, chats []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chats:   chats,
		limiter: rate.NewLimiter(rate.Limit(sendsPerSecond), len(chats)+1),
		logger:  logger,
	}
}

// Subscriber handles order events from the event bus.
func (n *TelegramNotifier) Subscriber(event *events.Event) error {
	var payload events.OrderEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	var text string
	switch event.Type {
	case events.EventOrderCreated:
		text = FormatOrderCreated(payload)
	case events.EventOrderCompleted:
		text = FormatOrderCompleted(payload)
	default:
		return nil
	}
	return n.Broadcast(context.Background(), text)
}

// Broadcast sends text to every configured chat and joins the failures.
func (n *TelegramNotifier) Broadcast(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range n.chats {
		if err := n.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func FormatOrderCreated(p events.OrderEventPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📤 إذن خروج رقم %d\n", p.OrderNumber)
	fmt.Fprintf(&b, "المستلم: %s\n", p.PersonName)
	fmt.Fprintf(&b, "النوع: %s\n", models.OrderType(p.Type).Label())
	fmt.Fprintf(&b, "التاريخ: %s\n", p.DateOut.Format("2006-01-02 15:04"))
	writeItems(&b, p.ItemNames)
	if p.Notes != "" {
		fmt.Fprintf(&b, "ملاحظات: %s\n", p.Notes)
	}
	if p.CreatedBy != "" {
		fmt.Fprintf(&b, "بواسطة: %s\n", p.CreatedBy)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatOrderCompleted(p events.OrderEventPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📥 تم إرجاع الإذن رقم %d\n", p.OrderNumber)
	fmt.Fprintf(&b, "المستلم: %s\n", p.PersonName)
	if p.DateIn != nil {
		fmt.Fprintf(&b, "تاريخ الإرجاع: %s\n", p.DateIn.Format("2006-01-02 15:04"))
	}
	writeItems(&b, p.ItemNames)
	if p.Notes != "" {
		fmt.Fprintf(&b, "ملاحظات: %s\n", p.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeItems(b *strings.Builder, names []string) {
	if len(names) == 0 {
		return
	}
	b.WriteString("المعدات:\n")
	for _, name := range names {
		fmt.Fprintf(b, "• %s\n", name)
	}
}
