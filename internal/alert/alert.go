// Package alert holds the trigger-condition engine: direction inference at
// creation and at-most-once evaluation against each snapshot.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/internal/database"
	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/types"
	"pricepulse-bot/lib/helpers"
	"pricepulse-bot/lib/translation"
)

var (
	// ErrPriceUnavailable rejects rule creation while the asset has no
	// current price; direction cannot be inferred without one.
	ErrPriceUnavailable = errors.New("current price unavailable")

	// ErrTargetEqualsCurrent rejects a target exactly at the current price.
	// Either direction would already be satisfied, breaking the
	// fire-on-next-crossing guarantee.
	ErrTargetEqualsCurrent = errors.New("target equals current price")

	// ErrInvalidTarget rejects non-positive targets.
	ErrInvalidTarget = errors.New("target price must be positive")
)

// Sender delivers a text to one recipient. Delivery outcome is a plain
// success/failure; the engine never retries.
type Sender interface {
	SendTo(chatID int64, text string) error
}

// LangResolver returns the preferred language for a recipient.
type LangResolver func(chatID int64) string

// Service evaluates every active rule against each fresh snapshot.
type Service struct {
	Store    *snapshot.Store
	Sender   Sender
	Lang     LangResolver
	Interval time.Duration

	Triggered prometheus.Counter
}

// InferDirection picks the crossing direction for a new rule so that the
// condition is not already satisfied at creation time.
func InferDirection(target, current float64) (types.Direction, error) {
	if target <= 0 {
		return "", ErrInvalidTarget
	}
	if target == current {
		return "", ErrTargetEqualsCurrent
	}
	if target > current {
		return types.DirectionAbove, nil
	}
	return types.DirectionBelow, nil
}

// Create registers a rule for a user, inferring direction from the asset's
// current price in the snapshot. Creation fails when no current price exists.
func Create(userID int64, asset types.Asset, target float64, snap types.Snapshot) (types.Alert, error) {
	obs, ok := snap[asset]
	if !ok || obs.PriceNum == nil {
		return types.Alert{}, ErrPriceUnavailable
	}

	direction, err := InferDirection(target, *obs.PriceNum)
	if err != nil {
		return types.Alert{}, err
	}

	id, err := database.InsertAlert(userID, asset, target, direction)
	if err != nil {
		return types.Alert{}, errors.Wrap(err, "could not save alert")
	}

	return types.Alert{
		ID:          id,
		UserID:      userID,
		Asset:       asset,
		TargetPrice: target,
		Direction:   direction,
	}, nil
}

// ShouldTrigger applies the closed-interval crossing condition.
func ShouldTrigger(rule types.Alert, current float64) bool {
	switch rule.Direction {
	case types.DirectionAbove:
		return current >= rule.TargetPrice
	case types.DirectionBelow:
		return current <= rule.TargetPrice
	default:
		return false
	}
}

// Evaluate walks every active rule against the snapshot. Rules whose asset
// has no current value stay active for the next cycle. A triggered rule is
// deleted whether or not its notification went out: no duplicate alerts,
// ever.
func (s *Service) Evaluate(snap types.Snapshot) {
	rules, err := database.GetAllAlerts()
	if err != nil {
		log.Errorf("failed to fetch alerts: %v", err)
		return
	}

	for _, rule := range rules {
		obs, ok := snap[rule.Asset]
		if !ok || obs.PriceNum == nil {
			continue
		}
		current := *obs.PriceNum

		if !ShouldTrigger(rule, current) {
			continue
		}

		log.Debugf("alert %d triggered: %s %s %f (current %f)",
			rule.ID, rule.Asset, rule.Direction, rule.TargetPrice, current)

		if err := s.Sender.SendTo(rule.UserID, s.renderNotification(rule, current)); err != nil {
			log.Errorf("failed to deliver alert %d to %d: %v", rule.ID, rule.UserID, err)
		}
		if s.Triggered != nil {
			s.Triggered.Inc()
		}

		if err := database.DeleteAlert(rule.ID); err != nil {
			log.Errorf("failed to delete triggered alert %d: %v", rule.ID, err)
		}
	}
}

func (s *Service) renderNotification(rule types.Alert, current float64) string {
	lang := translation.DefaultLanguage
	if s.Lang != nil {
		lang = s.Lang(rule.UserID)
	}

	condKey := "BELOW"
	if rule.Direction == types.DirectionAbove {
		condKey = "ABOVE"
	}

	return fmt.Sprintf("🚨 <b>%s</b>\n%s\n%s: $%s",
		translation.Translate(lang, "Price Alert"),
		translation.Translate(lang, "%s went %s $%s",
			string(rule.Asset),
			translation.Translate(lang, condKey),
			helpers.FormatPriceUS(rule.TargetPrice, false)),
		translation.Translate(lang, "Current"),
		helpers.FormatPriceUS(current, false),
	)
}

// Run evaluates on a fixed interval until the context is cancelled. A panic
// in one pass never kills the loop.
func (s *Service) Run(ctx context.Context) {
	log.Info("alert service started")
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluateSafe()
		}
	}
}

func (s *Service) evaluateSafe() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic in alert evaluation: %v", r)
		}
	}()

	snap := s.Store.Read()
	if len(snap) == 0 {
		return
	}
	s.Evaluate(snap)
}
