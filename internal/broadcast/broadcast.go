// Package broadcast schedules the periodic price posts to subscribed chats.
// Each chat has at most one repeating job; rescheduling cancels the previous
// one before adding the next.
package broadcast

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/internal/database"
	"pricepulse-bot/internal/snapshot"
)

// Sender delivers a text to one chat.
type Sender interface {
	SendTo(chatID int64, text string) error
}

// Scheduler owns one cron runner and the chat → job mapping.
type Scheduler struct {
	Store  *snapshot.Store
	Sender Sender

	// Permanent classifies a delivery error as "bot removed from chat";
	// such chats are unsubscribed on the spot.
	Permanent func(error) bool

	Sent prometheus.Counter

	cron     *cron.Cron
	mu       sync.Mutex
	entries  map[int64]cron.EntryID
	lastSent map[int64]string
}

func NewScheduler(store *snapshot.Store, sender Sender) *Scheduler {
	return &Scheduler{
		Store:    store,
		Sender:   sender,
		cron:     cron.New(),
		entries:  make(map[int64]cron.EntryID),
		lastSent: make(map[int64]string),
	}
}

// Start restores jobs for every persisted chat with broadcasts enabled and
// starts the runner.
func (s *Scheduler) Start() error {
	chats, err := database.GetScheduledChats()
	if err != nil {
		return err
	}
	for _, chat := range chats {
		s.Schedule(chat.ChatID, chat.Interval)
	}
	s.cron.Start()
	log.Infof("broadcast scheduler started with %d chats", len(chats))
	return nil
}

// Stop halts the runner, waiting for a running post to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Schedule sets the broadcast interval for a chat in seconds. Any existing
// job for the chat is removed first, so exactly one repeating job per chat
// remains; interval 0 just disables.
func (s *Scheduler) Schedule(chatID int64, intervalSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[chatID]; ok {
		s.cron.Remove(id)
		delete(s.entries, chatID)
	}
	if intervalSeconds <= 0 {
		return
	}

	id := s.cron.Schedule(
		cron.Every(time.Duration(intervalSeconds)*time.Second),
		cron.FuncJob(func() { s.post(chatID) }),
	)
	s.entries[chatID] = id
}

// Unschedule removes a chat's job if one exists.
func (s *Scheduler) Unschedule(chatID int64) {
	s.Schedule(chatID, 0)
}

// Scheduled reports whether a chat currently has a repeating job.
func (s *Scheduler) Scheduled(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[chatID]
	return ok
}

// ActiveJobs returns the number of chats with a repeating job.
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// post renders and delivers one price message. Identical consecutive
// messages are skipped. A permanent delivery failure unsubscribes the chat.
func (s *Scheduler) post(chatID int64) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic in broadcast post: %v", r)
		}
	}()

	snap := s.Store.Read()
	lang := database.GetChatLanguage(chatID)
	assets := database.GetChatAssets(chatID)

	msg := FormatPriceMessage(snap, s.Store, lang, assets)

	s.mu.Lock()
	unchanged := s.lastSent[chatID] == msg
	s.mu.Unlock()
	if unchanged {
		return
	}

	if err := s.Sender.SendTo(chatID, msg); err != nil {
		if s.Permanent != nil && s.Permanent(err) {
			log.Infof("chat %d is gone, removing subscription", chatID)
			if dbErr := database.RemoveChat(chatID); dbErr != nil {
				log.Errorf("failed to remove chat %d: %v", chatID, dbErr)
			}
			s.Unschedule(chatID)
			return
		}
		log.Errorf("failed to broadcast to chat %d: %v", chatID, err)
		return
	}

	s.mu.Lock()
	s.lastSent[chatID] = msg
	s.mu.Unlock()

	if s.Sent != nil {
		s.Sent.Inc()
	}
}
