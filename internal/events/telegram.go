package events

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"betmarkets/internal/logger"

	"gopkg.in/telebot.v3"
)

// TelegramNotifier posts engine events to a Telegram channel
type TelegramNotifier struct {
	bot     *telebot.Bot
	mu      sync.Mutex
	channel telebot.Recipient
}

// NewTelegramNotifier creates a notifier posting to the given channel.
// channelID may be a numeric chat id or an @channelname.
func NewTelegramNotifier(botToken, channelID string) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}
	if channelID == "" {
		return nil, fmt.Errorf("telegram channel id not set")
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token: botToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramNotifier{
		bot:     b,
		channel: parseChannelID(channelID),
	}, nil
}

// channelName lets an @channelname act as a telebot recipient
type channelName string

func (c channelName) Recipient() string { return string(c) }

// parseChannelID accepts either a numeric chat id or an @channelname
func parseChannelID(channelID string) telebot.Recipient {
	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return telebot.ChatID(id)
	}
	if !strings.HasPrefix(channelID, "@") {
		channelID = "@" + channelID
	}
	return channelName(channelID)
}

func (t *TelegramNotifier) send(action, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.bot.Send(t.channel, message); err != nil {
		logger.Error(action, err)
	}
}

// formatAmount formats a stake or payout in base units
func formatAmount(amount int64) string {
	return fmt.Sprintf("%d units", amount)
}

// truncateString truncates a string to maxLen and adds ellipsis if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(s[:maxLen-3]) + "..."
}

func (t *TelegramNotifier) MarketCreated(ev MarketCreated) {
	message := fmt.Sprintf("🆕 Market #%d opened\n\n📝 %s\n\nOutcomes: %s\nBetting closes: %s",
		ev.MarketID,
		truncateString(ev.Question, 100),
		strings.Join(ev.Outcomes, " / "),
		ev.Deadline.Format("2006-01-02 15:04 MST"))
	t.send("telegram_market_created", message)
}

func (t *TelegramNotifier) BetPlaced(ev BetPlaced) {
	message := fmt.Sprintf("🎲 New bet on market #%d: %s on outcome %d",
		ev.MarketID,
		formatAmount(ev.Amount),
		ev.OutcomeIndex)
	t.send("telegram_bet_placed", message)
}

func (t *TelegramNotifier) MarketResolved(ev MarketResolved) {
	message := fmt.Sprintf("🏁 Market #%d resolved\n\nWinning outcome: %s\nWinners can now claim their payouts.",
		ev.MarketID,
		ev.WinningOutcomeName)
	t.send("telegram_market_resolved", message)
}

func (t *TelegramNotifier) PayoutClaimed(ev PayoutClaimed) {
	profit := ev.PayoutAmount - ev.BetAmount
	message := fmt.Sprintf("🏆 Payout claimed on market #%d\n\nStake: %s\nPayout: %s\nProfit: %s",
		ev.MarketID,
		formatAmount(ev.BetAmount),
		formatAmount(ev.PayoutAmount),
		formatAmount(profit))
	t.send("telegram_payout_claimed", message)
}

func (t *TelegramNotifier) ResolutionDue(ev ResolutionDue) {
	message := fmt.Sprintf("⏰ Market #%d has reached its deadline\n\n📝 %s\n\nThe creator can now resolve it.",
		ev.MarketID,
		truncateString(ev.Question, 100))
	t.send("telegram_resolution_due", message)
}
