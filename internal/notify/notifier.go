package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"market_maker/internal/state"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Controls — то, чем оператор управляет из чата.
type Controls interface {
	Read() state.Snapshot
	SafeUpdate(fields ...state.Field)
}

// Telegram — алерты + команды /status, /pause, /resume.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	st     Controls
	symbol string
	log    *zap.Logger

	stopOnce sync.Once
}

func NewTelegram(token string, chatID int64, st Controls, symbol string, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		st:     st,
		symbol: symbol,
		log:    log.Named("telegram"),
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		t.log.Warn("send failed", zap.Error(err))
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Start: long-polling команд из нашего чата.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				t.Send(Reply(t.st, t.symbol, upd.Message.Command()))
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.stopOnce.Do(t.bot.StopReceivingUpdates)
}

// Reply — ответ на команду оператора.
func Reply(st Controls, symbol, command string) string {
	switch command {
	case "status":
		return FormatStatus(symbol, st.Read())
	case "pause":
		st.SafeUpdate(state.WithPaused(true))
		return "⏸ Стратегия на паузе, новые ордера не выставляются"
	case "resume":
		st.SafeUpdate(state.WithPaused(false))
		return "▶️ Стратегия возобновлена"
	default:
		return "Команды: /status /pause /resume"
	}
}

func FormatStatus(symbol string, snap state.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n", symbol)
	fmt.Fprintf(&b, "mark: %s\n", snap.MarkPrice.String())
	fmt.Fprintf(&b, "position: %s\n", snap.Position.String())
	fmt.Fprintf(&b, "paused: %t\n", snap.StrategyPaused)
	fmt.Fprintf(&b, "last order: %s\n", formatTime(snap.LastOrderTime))
	fmt.Fprintf(&b, "last risk check: %s", formatTime(snap.LastRiskCheck))
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// Stdout — заглушка, всё пишет в лог.
type Stdout struct {
	log *zap.Logger
}

func NewStdout(log *zap.Logger) *Stdout            { return &Stdout{log: log.Named("notify")} }
func (s *Stdout) Send(msg string)                  { s.log.Info(msg) }
func (s *Stdout) Sendf(format string, args ...any) { s.log.Info(fmt.Sprintf(format, args...)) }
