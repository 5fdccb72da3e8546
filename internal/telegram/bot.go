package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/internal/broadcast"
	"pricepulse-bot/internal/database"
	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/lib/translation"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, store *snapshot.Store) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:        bot,
		Config:     c,
		Store:      store,
		userStates: make(map[int64]pendingAlert),
	}, nil
}

// GetUpdatesChannel gets new updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	updatesConfig.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}
	return b.Bot.GetUpdatesChan(updatesConfig)
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to %d", m.ChatID)
}

// SendTo delivers a text to one chat. Satisfies the alert and broadcast
// sender interfaces.
func (b *Bot) SendTo(chatID int64, text string) error {
	return b.SendMessage(Message{ChatID: chatID, Text: text})
}

// IsPermanentFailure reports whether a delivery error means the bot lost
// access to the chat for good.
func IsPermanentFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"kicked", "chat not found", "bot was blocked", "forbidden"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WireScheduler attaches the broadcast scheduler used by the settings menu.
func (b *Bot) WireScheduler(s *broadcast.Scheduler) {
	b.Scheduler = s
	s.Permanent = IsPermanentFailure
}

// HandleUpdate routes one telegram update.
func (b *Bot) HandleUpdate(u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic in update handler: %v", r)
		}
	}()

	switch {
	case u.MyChatMember != nil:
		b.handleChatMember(u.MyChatMember)
	case u.CallbackQuery != nil:
		b.HandleCallbackQuery(u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		b.handleCommand(u.Message)
	case u.Message != nil && u.Message.Text != "":
		b.handleText(u.Message)
	}
}

func (b *Bot) handleCommand(m *tgbotapi.Message) {
	log.Debugf("received command: %s", m.Command())

	switch m.Command() {
	case "start":
		if !b.checkMembership(m.From.ID) {
			b.sendJoinRequest(m.Chat.ID, 0)
			return
		}
		b.clearState(m.From.ID)
		b.sendMainMenu(m.Chat.ID, 0)
	case "calc":
		b.handleCalc(m)
	}
}

// handleCalc implements /calc <amount> <asset>.
func (b *Bot) handleCalc(m *tgbotapi.Message) {
	lang := database.GetChatLanguage(m.Chat.ID)
	if !b.checkMembership(m.From.ID) {
		b.sendJoinRequest(m.Chat.ID, 0)
		return
	}

	amount, asset, err := parseCalcArguments(m.CommandArguments())
	if err != nil {
		b.SendTo(m.Chat.ID, translation.Translate(lang, "⚠️ Invalid format.\nExample: /calc 0.5 BTC"))
		return
	}

	obs, ok := b.Store.Read()[asset]
	if !ok || obs.PriceNum == nil {
		b.SendTo(m.Chat.ID, translation.Translate(lang, "⚠️ Price not available."))
		return
	}

	total := amount * *obs.PriceNum
	b.SendTo(m.Chat.ID, fmt.Sprintf("🧮 %g %s = <b>$%s</b>", amount, asset, formatAmount(total)))
}

func (b *Bot) setState(userID int64, st pendingAlert) {
	b.statesMu.Lock()
	b.userStates[userID] = st
	b.statesMu.Unlock()
}

func (b *Bot) getState(userID int64) (pendingAlert, bool) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	st, ok := b.userStates[userID]
	return st, ok
}

func (b *Bot) clearState(userID int64) {
	b.statesMu.Lock()
	delete(b.userStates, userID)
	b.statesMu.Unlock()
}

// checkMembership verifies the user joined the required channel. Lookup
// failures do not lock users out.
func (b *Bot) checkMembership(userID int64) bool {
	channel := b.Config.RequiredChannel
	if channel == "" {
		return true
	}

	member, err := b.Bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: channel,
			UserID:             userID,
		},
	})
	if err != nil {
		log.Debugf("membership check failed for %d: %v", userID, err)
		return true
	}

	return member.Status != "left" && member.Status != "kicked"
}

// handleChatMember reacts to the bot being added to, promoted in, or removed
// from a chat.
func (b *Bot) handleChatMember(m *tgbotapi.ChatMemberUpdated) {
	status := m.NewChatMember.Status
	switch status {
	case "member", "administrator":
		title := m.Chat.Title
		if title == "" {
			title = "Group"
		}
		if err := database.UpsertChat(m.Chat.ID, m.From.ID, title); err != nil {
			log.Errorf("failed to register chat %d: %v", m.Chat.ID, err)
		}
	case "left", "kicked":
		if err := database.RemoveChat(m.Chat.ID); err != nil {
			log.Errorf("failed to remove chat %d: %v", m.Chat.ID, err)
		}
		if b.Scheduler != nil {
			b.Scheduler.Unschedule(m.Chat.ID)
		}
	}
}
