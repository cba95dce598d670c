package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zakkerni/zakkerni/internal/bus"
)

func init() {
	Register("telegram", newTelegramChannel)
}

type telegramConfig struct {
	Token        string  `json:"token"`
	AllowedUsers []int64 `json:"allowedUsers"`
}

type TelegramChannel struct {
	bot          *tgbotapi.BotAPI
	bus          *bus.MessageBus
	allowedUsers map[int64]bool
	stopCh       chan struct{}
}

func newTelegramChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var tcfg telegramConfig
	if err := json.Unmarshal(cfg, &tcfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(tcfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	allowed := make(map[int64]bool, len(tcfg.AllowedUsers))
	for _, u := range tcfg.AllowedUsers {
		allowed[u] = true
	}
	return &TelegramChannel{
		bot:          bot,
		bus:          msgBus,
		allowedUsers: allowed,
		stopCh:       make(chan struct{}),
	}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				c.handleUpdate(update)
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case <-c.stopCh:
				c.bot.StopReceivingUpdates()
				return
			}
		}
	}()
	return nil
}

func (c *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		c.bus.PublishInbound(bus.InboundMessage{
			Channel:        "telegram",
			Kind:           bus.KindPreCheckout,
			SenderID:       q.From.ID,
			ChatID:         q.From.ID,
			PreCheckoutID:  q.ID,
			PaymentPayload: q.InvoicePayload,
		})

	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if !c.IsAllowed(cb.From.ID) {
			slog.Warn("telegram: callback from disallowed user", "senderID", cb.From.ID)
			return
		}
		msg := bus.InboundMessage{
			Channel:      "telegram",
			Kind:         bus.KindCallback,
			SenderID:     cb.From.ID,
			Username:     cb.From.UserName,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
		}
		if cb.Message != nil {
			msg.ChatID = cb.Message.Chat.ID
			msg.MessageID = cb.Message.MessageID
		} else {
			msg.ChatID = cb.From.ID
		}
		c.bus.PublishInbound(msg)

	case update.Message != nil:
		m := update.Message
		if !c.IsAllowed(m.From.ID) {
			slog.Warn("telegram: message from disallowed user", "senderID", m.From.ID)
			return
		}
		if m.SuccessfulPayment != nil {
			c.bus.PublishInbound(bus.InboundMessage{
				Channel:        "telegram",
				Kind:           bus.KindPayment,
				SenderID:       m.From.ID,
				ChatID:         m.Chat.ID,
				Username:       m.From.UserName,
				PaymentPayload: m.SuccessfulPayment.InvoicePayload,
			})
			return
		}
		c.bus.PublishInbound(bus.InboundMessage{
			Channel:  "telegram",
			Kind:     bus.KindMessage,
			SenderID: m.From.ID,
			ChatID:   m.Chat.ID,
			Username: m.From.UserName,
			Content:  m.Text,
		})
	}
}

func (c *TelegramChannel) Stop() error {
	close(c.stopCh)
	return nil
}

func (c *TelegramChannel) Send(msg bus.OutboundMessage) error {
	if msg.AckPreCheckoutID != "" {
		_, err := c.bot.Request(tgbotapi.PreCheckoutConfig{
			PreCheckoutQueryID: msg.AckPreCheckoutID,
			OK:                 true,
		})
		if err != nil {
			return fmt.Errorf("telegram: answer pre-checkout: %w", err)
		}
	}

	if msg.CallbackID != "" {
		cb := tgbotapi.NewCallback(msg.CallbackID, "")
		if msg.Alert {
			cb = tgbotapi.NewCallbackWithAlert(msg.CallbackID, msg.Content)
		}
		if _, err := c.bot.Request(cb); err != nil {
			return fmt.Errorf("telegram: answer callback: %w", err)
		}
		if msg.Alert {
			return nil
		}
	}

	if msg.Invoice != nil {
		inv := msg.Invoice
		cfg := tgbotapi.NewInvoice(msg.ChatID, inv.Title, inv.Description, inv.Payload,
			"", "", inv.Currency, []tgbotapi.LabeledPrice{{Label: inv.Title, Amount: inv.Amount}})
		cfg.SuggestedTipAmounts = []int{}
		if _, err := c.bot.Send(cfg); err != nil {
			return fmt.Errorf("telegram: send invoice: %w", err)
		}
		return nil
	}

	if msg.Content == "" {
		return nil
	}

	if msg.EditMessageID != 0 {
		edit := tgbotapi.NewEditMessageText(msg.ChatID, msg.EditMessageID, msg.Content)
		if len(msg.InlineRows) > 0 {
			markup := inlineMarkup(msg.InlineRows)
			edit.ReplyMarkup = &markup
		}
		if _, err := c.bot.Send(edit); err != nil {
			return fmt.Errorf("telegram: edit message: %w", err)
		}
		return nil
	}

	m := tgbotapi.NewMessage(msg.ChatID, msg.Content)
	switch {
	case len(msg.InlineRows) > 0:
		m.ReplyMarkup = inlineMarkup(msg.InlineRows)
	case len(msg.Keyboard) > 0:
		m.ReplyMarkup = replyMarkup(msg.Keyboard)
	case msg.RemoveKeyboard:
		m.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	if _, err := c.bot.Send(m); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

func (c *TelegramChannel) IsAllowed(senderID int64) bool {
	if len(c.allowedUsers) == 0 {
		return true
	}
	return c.allowedUsers[senderID]
}

func inlineMarkup(rows [][]bus.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		kb = append(kb, r)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

func replyMarkup(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	kb := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			r = append(r, tgbotapi.NewKeyboardButton(label))
		}
		kb = append(kb, r)
	}
	markup := tgbotapi.NewReplyKeyboard(kb...)
	markup.ResizeKeyboard = true
	return markup
}
