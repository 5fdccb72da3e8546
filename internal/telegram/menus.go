package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/internal/alert"
	"pricepulse-bot/internal/broadcast"
	"pricepulse-bot/internal/database"
	"pricepulse-bot/internal/types"
	"pricepulse-bot/lib/helpers"
	"pricepulse-bot/lib/translation"
)

// broadcast interval presets offered in the chat settings menu, seconds
var intervalPresets = []int{30, 60, 300, 0}

// sendMenu either edits the message a callback came from or sends a new one.
func (b *Bot) sendMenu(chatID int64, editMessageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	var c tgbotapi.Chattable
	if editMessageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, editMessageID, text, kb)
		edit.ParseMode = tgbotapi.ModeHTML
		c = edit
	} else {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = kb
		c = msg
	}
	if _, err := b.Bot.Send(c); err != nil {
		if !strings.Contains(err.Error(), "not modified") {
			log.Errorf("failed to send menu: %v", err)
		}
	}
}

func (b *Bot) sendMainMenu(chatID int64, editMessageID int) {
	lang := database.GetChatLanguage(chatID)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "📊 Live Prices"), "price_all"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔔 Price Alerts"), "alerts_menu"),
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "⚙️ Manage Groups"), "manage_groups"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "❓ Help & Tutorial"), "help_menu"),
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🌍 Change Language"), "lang_menu"),
		),
	)
	b.sendMenu(chatID, editMessageID, translation.Translate(lang, "✅ <b>Main Menu</b>\n\nSelect an option:"), kb)
}

func (b *Bot) sendJoinRequest(chatID int64, editMessageID int) {
	lang := database.GetChatLanguage(chatID)
	channelURL := "https://t.me/" + strings.TrimPrefix(b.Config.RequiredChannel, "@")
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(translation.Translate(lang, "📢 Join Channel"), channelURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "✅ I have joined"), "verify_join"),
		),
	)
	b.sendMenu(chatID, editMessageID, translation.Translate(lang, "⛔️ <b>Action Required</b>\n\nYou must join our channel to use this bot."), kb)
}

func (b *Bot) sendAlertsMenu(chatID int64, editMessageID int) {
	lang := database.GetChatLanguage(chatID)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "➕ New Alert"), "alert_new"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "📋 My Alerts"), "alert_list"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "main_menu"),
		),
	)
	b.sendMenu(chatID, editMessageID, translation.Translate(lang, "🔔 <b>Alerts Menu:</b>"), kb)
}

func (b *Bot) sendAssetPicker(chatID int64, editMessageID int) {
	lang := database.GetChatLanguage(chatID)

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, asset := range types.AllAssets {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(asset), "alert_sel_"+string(asset)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "alerts_menu"),
	))

	b.sendMenu(chatID, editMessageID, translation.Translate(lang, "🎯 Select an asset:"), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) sendAlertList(chatID, userID int64, editMessageID int) {
	lang := database.GetChatLanguage(chatID)

	alerts, err := database.GetAlertsByUserID(userID)
	if err != nil {
		log.Errorf("failed to fetch alerts for %d: %v", userID, err)
		return
	}

	backRow := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "alerts_menu"),
	)

	if len(alerts) == 0 {
		b.sendMenu(chatID, editMessageID, translation.Translate(lang, "📭 You have no active alerts."), tgbotapi.NewInlineKeyboardMarkup(backRow))
		return
	}

	var sb strings.Builder
	sb.WriteString(translation.Translate(lang, "📋 My Alerts") + ":\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range alerts {
		icon := "📉"
		if a.Direction == types.DirectionAbove {
			icon = "📈"
		}
		sb.WriteString(fmt.Sprintf("%s <b>%s</b>: %s$\n", icon, a.Asset, helpers.FormatPriceUS(a.TargetPrice, false)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 %s %s$", a.Asset, helpers.FormatPriceUS(a.TargetPrice, false)),
				fmt.Sprintf("alert_del_%d", a.ID),
			),
		))
	}
	rows = append(rows, backRow)

	b.sendMenu(chatID, editMessageID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) sendLangMenu(chatID int64, editMessageID int) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🇺🇸 English", "set_lang_en")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🇮🇷 فارسی", "set_lang_fa")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙", "main_menu")),
	)
	b.sendMenu(chatID, editMessageID, "Please select your language / لطفاً زبان را انتخاب کنید:", kb)
}

func (b *Bot) sendGroupsMenu(chatID, userID int64, editMessageID int) {
	lang := database.GetChatLanguage(chatID)

	chats, err := database.GetUserChats(userID)
	if err != nil {
		log.Errorf("failed to fetch chats for %d: %v", userID, err)
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range chats {
		if c.ChatID == chatID {
			continue // private chat row, not a group
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Title, fmt.Sprintf("settings_%d", c.ChatID)),
		))
	}

	text := translation.Translate(lang, "Group Management:")
	if len(rows) == 0 {
		text = translation.Translate(lang, "No active groups found. Add & Admin the bot in a group first.")
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "main_menu"),
	))

	b.sendMenu(chatID, editMessageID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) sendChatSettings(userChatID, groupID int64, editMessageID int) {
	lang := database.GetChatLanguage(userChatID)

	group, err := database.GetChat(groupID)
	if err != nil {
		log.Errorf("failed to fetch chat %d: %v", groupID, err)
		return
	}
	enabled := broadcast.EnabledAssets(group.EnabledAssets)

	label := func(seconds int) string {
		var text string
		switch {
		case seconds == 0:
			text = translation.Translate(lang, "🔕 Off")
		case seconds < 60:
			text = fmt.Sprintf("%d %s", seconds, translation.Translate(lang, "sec"))
		default:
			text = fmt.Sprintf("%d %s", seconds/60, translation.Translate(lang, "min"))
		}
		if group.Interval == seconds {
			return "✅ " + text
		}
		return text
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, seconds := range intervalPresets {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label(seconds), fmt.Sprintf("set_%d_%d", groupID, seconds)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	var assetRow []tgbotapi.InlineKeyboardButton
	for _, asset := range types.AllAssets {
		mark := "❌"
		if enabled[asset] {
			mark = "✅"
		}
		assetRow = append(assetRow, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %s", mark, asset),
			fmt.Sprintf("toggle_%d_%s", groupID, asset),
		))
		if len(assetRow) == 2 {
			rows = append(rows, assetRow)
			assetRow = nil
		}
	}
	if len(assetRow) > 0 {
		rows = append(rows, assetRow)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "manage_groups"),
	))

	text := translation.Translate(lang, "⚙️ Settings: <b>%s</b>", group.Title)
	b.sendMenu(userChatID, editMessageID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) sendPrices(chatID int64, editMessageID int) {
	lang := database.GetChatLanguage(chatID)
	msg := broadcast.FormatPriceMessage(b.Store.Read(), b.Store, lang, "ALL")
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄", "price_all")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "main_menu")),
	)
	b.sendMenu(chatID, editMessageID, msg, kb)
}

// HandleCallbackQuery routes inline keyboard taps.
func (b *Bot) HandleCallbackQuery(q *tgbotapi.CallbackQuery) {
	data := q.Data
	userID := q.From.ID
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID
	lang := database.GetChatLanguage(chatID)

	b.answer(q.ID, "")

	if strings.HasPrefix(data, "set_lang_") {
		newLang := strings.TrimPrefix(data, "set_lang_")
		if err := database.SetChatLanguage(chatID, newLang); err != nil {
			log.Errorf("failed to set language for %d: %v", chatID, err)
		}
		b.sendMainMenu(chatID, messageID)
		return
	}
	if data == "lang_menu" {
		b.sendLangMenu(chatID, messageID)
		return
	}
	if data == "verify_join" {
		if b.checkMembership(userID) {
			b.answer(q.ID, translation.Translate(lang, "✅ Verified! Welcome."))
			b.sendMainMenu(chatID, messageID)
		} else {
			b.answer(q.ID, translation.Translate(lang, "❌ You haven't joined yet!"))
		}
		return
	}

	if !b.checkMembership(userID) {
		b.sendJoinRequest(chatID, messageID)
		return
	}

	switch {
	case data == "main_menu":
		b.clearState(userID)
		b.sendMainMenu(chatID, messageID)
	case data == "alerts_menu":
		b.clearState(userID)
		b.sendAlertsMenu(chatID, messageID)
	case data == "alert_new":
		b.sendAssetPicker(chatID, messageID)
	case data == "alert_list":
		b.sendAlertList(chatID, userID, messageID)
	case data == "price_all":
		b.sendPrices(chatID, messageID)
	case data == "help_menu":
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "main_menu"),
		))
		b.sendMenu(chatID, messageID, translation.Translate(lang, "📚 <b>Help &amp; Tutorial</b>\n\n🤖 Add the bot to your group or channel, then promote it to <b>Admin</b> so it can post.\n\n🧮 Calculator: <code>/calc 0.5 BTC</code>\n\n🔔 Price alerts live in the main menu."), kb)
	case data == "manage_groups":
		b.sendGroupsMenu(chatID, userID, messageID)
	case strings.HasPrefix(data, "alert_sel_"):
		asset := types.Asset(strings.TrimPrefix(data, "alert_sel_"))
		if !types.IsKnownAsset(asset) {
			return
		}
		b.setState(userID, pendingAlert{Asset: asset})
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "❌ Cancel"), "alerts_menu"),
		))
		b.sendMenu(chatID, messageID, translation.Translate(lang, "🎯 Asset: <b>%s</b>\n🔢 Please type the target price (in numbers):\nExample: 95000", string(asset)), kb)
	case strings.HasPrefix(data, "alert_del_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "alert_del_"), 10, 64)
		if err != nil {
			return
		}
		if err := database.DeleteAlert(id); err != nil {
			log.Errorf("failed to delete alert %d: %v", id, err)
			return
		}
		b.answer(q.ID, translation.Translate(lang, "✅ Alert deleted."))
		b.sendAlertList(chatID, userID, messageID)
	case strings.HasPrefix(data, "settings_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "settings_"), 10, 64)
		if err != nil {
			return
		}
		b.sendChatSettings(chatID, groupID, messageID)
	case strings.HasPrefix(data, "toggle_"):
		b.handleAssetToggle(chatID, messageID, strings.TrimPrefix(data, "toggle_"))
	case strings.HasPrefix(data, "set_"):
		b.handleIntervalChange(q, chatID, messageID, strings.TrimPrefix(data, "set_"))
	}
}

// handleAssetToggle flips one asset in a group's enabled set. Payload is
// "<groupID>_<asset>".
func (b *Bot) handleAssetToggle(chatID int64, messageID int, payload string) {
	idx := strings.LastIndex(payload, "_")
	if idx < 0 {
		return
	}
	groupID, err := strconv.ParseInt(payload[:idx], 10, 64)
	if err != nil {
		return
	}
	asset := types.Asset(payload[idx+1:])
	if !types.IsKnownAsset(asset) {
		return
	}

	enabled := broadcast.EnabledAssets(database.GetChatAssets(groupID))
	enabled[asset] = !enabled[asset]

	var kept []string
	for _, a := range types.AllAssets {
		if enabled[a] {
			kept = append(kept, string(a))
		}
	}
	assetsStr := strings.Join(kept, ",")
	if len(kept) == len(types.AllAssets) {
		assetsStr = "ALL"
	}

	if err := database.SetChatAssets(groupID, assetsStr); err != nil {
		log.Errorf("failed to set assets for %d: %v", groupID, err)
		return
	}
	b.sendChatSettings(chatID, groupID, messageID)
}

// handleIntervalChange applies a broadcast interval preset. Payload is
// "<groupID>_<seconds>".
func (b *Bot) handleIntervalChange(q *tgbotapi.CallbackQuery, chatID int64, messageID int, payload string) {
	lang := database.GetChatLanguage(chatID)

	idx := strings.LastIndex(payload, "_")
	if idx < 0 {
		return
	}
	groupID, err := strconv.ParseInt(payload[:idx], 10, 64)
	if err != nil {
		return
	}
	seconds, err := strconv.Atoi(payload[idx+1:])
	if err != nil {
		return
	}

	if b.Scheduler != nil {
		b.Scheduler.Schedule(groupID, seconds)
	}
	if err := database.SetChatInterval(groupID, seconds); err != nil {
		log.Errorf("failed to set interval for %d: %v", groupID, err)
	}

	if seconds > 0 {
		b.answer(q.ID, translation.Translate(lang, "✅ Active: ")+strconv.Itoa(seconds))
	} else {
		b.answer(q.ID, translation.Translate(lang, "🔕 Off"))
	}
	b.sendChatSettings(chatID, groupID, messageID)
}

// handleText consumes a typed target price from a user who picked an asset.
func (b *Bot) handleText(m *tgbotapi.Message) {
	userID := m.From.ID
	chatID := m.Chat.ID
	lang := database.GetChatLanguage(chatID)

	if !b.checkMembership(userID) {
		b.sendJoinRequest(chatID, 0)
		return
	}

	state, ok := b.getState(userID)
	if !ok {
		return
	}

	target, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(m.Text), ",", ""), 64)
	if err != nil {
		b.SendTo(chatID, translation.Translate(lang, "⚠️ Error: Please enter a valid number."))
		return
	}

	rule, err := alert.Create(userID, state.Asset, target, b.Store.Read())
	switch {
	case errors.Is(err, alert.ErrPriceUnavailable):
		b.SendTo(chatID, translation.Translate(lang, "⚠️ Price not available."))
		return
	case errors.Is(err, alert.ErrTargetEqualsCurrent):
		b.SendTo(chatID, translation.Translate(lang, "⚠️ The target equals the current price. Pick a different target."))
		return
	case errors.Is(err, alert.ErrInvalidTarget):
		b.SendTo(chatID, translation.Translate(lang, "⚠️ Error: Please enter a valid number."))
		return
	case err != nil:
		log.Errorf("failed to create alert for %d: %v", userID, err)
		b.SendTo(chatID, translation.Translate(lang, "❌ Failed to save alert. Please try again later."))
		return
	}

	b.clearState(userID)

	condKey := "BELOW"
	if rule.Direction == types.DirectionAbove {
		condKey = "ABOVE"
	}
	msg := translation.Translate(lang, "✅ Alert set!\nI will notify you when <b>%s</b> goes %s <b>%s</b> USD.",
		string(rule.Asset),
		translation.Translate(lang, condKey),
		helpers.FormatPriceUS(rule.TargetPrice, false),
	)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(translation.Translate(lang, "🔙 Back"), "alerts_menu"),
	))
	b.sendMenu(chatID, 0, msg, kb)
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.Bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Debugf("failed to answer callback: %v", err)
	}
}
