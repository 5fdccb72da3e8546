package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pricepulse-bot/internal/broadcast"
	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/types"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int

	// RequiredChannel gates usage behind channel membership; empty disables
	// the gate.
	RequiredChannel string
}

// pendingAlert tracks a user who picked an asset and owes us a target price.
type pendingAlert struct {
	Asset types.Asset
}

// Bot telegram interaction client
type Bot struct {
	Bot       *tgbotapi.BotAPI
	Config    BotConfig
	Store     *snapshot.Store
	Scheduler *broadcast.Scheduler

	statesMu   sync.Mutex
	userStates map[int64]pendingAlert
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
