package broadcast

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricepulse-bot/internal/database"
	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/types"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { database.CloseDB() })
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) SendTo(chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func publishedStore(t *testing.T, values map[types.Asset]float64) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore("")
	snap := types.Snapshot{}
	ts := time.Now().UTC()
	for asset, num := range values {
		n := num
		display := "$" + string(asset)
		snap[asset] = types.PriceObservation{Price: &display, PriceNum: &n, TS: ts}
	}
	require.NoError(t, store.Publish(snap))
	return store
}

func TestSchedule_OneJobPerChat(t *testing.T) {
	s := NewScheduler(snapshot.NewStore(""), &recordingSender{})

	s.Schedule(-100, 30)
	s.Schedule(-100, 60)
	s.Schedule(-100, 300)

	assert.Equal(t, 1, s.ActiveJobs(), "rescheduling must replace, not stack")
	assert.True(t, s.Scheduled(-100))
}

func TestSchedule_ZeroDisables(t *testing.T) {
	s := NewScheduler(snapshot.NewStore(""), &recordingSender{})

	s.Schedule(-100, 30)
	s.Schedule(-200, 60)
	s.Schedule(-100, 0)

	assert.False(t, s.Scheduled(-100))
	assert.True(t, s.Scheduled(-200))
	assert.Equal(t, 1, s.ActiveJobs())

	s.Unschedule(-200)
	assert.Zero(t, s.ActiveJobs())
}

func TestPost_DeliversAndDedupes(t *testing.T) {
	setupDB(t)

	sender := &recordingSender{}
	store := publishedStore(t, map[types.Asset]float64{types.AssetBTC: 90000})
	s := NewScheduler(store, sender)

	s.post(-100)
	require.Equal(t, 1, sender.count())
	assert.Contains(t, sender.sent[0], "Bitcoin")
	assert.Contains(t, sender.sent[0], "$BTC")

	// Same snapshot renders the same message; nothing is re-sent.
	s.post(-100)
	assert.Equal(t, 1, sender.count())

	// A changed price goes out again.
	store.Publish(func() types.Snapshot {
		n := 95000.0
		display := "$95,000.00"
		return types.Snapshot{
			types.AssetBTC: {Price: &display, PriceNum: &n, TS: time.Now().UTC()},
		}
	}())
	s.post(-100)
	assert.Equal(t, 2, sender.count())
}

func TestPost_PermanentFailureUnsubscribes(t *testing.T) {
	setupDB(t)
	require.NoError(t, database.UpsertChat(-100, 42, "Gone Group"))

	sender := &recordingSender{err: assert.AnError}
	store := publishedStore(t, map[types.Asset]float64{types.AssetBTC: 90000})
	s := NewScheduler(store, sender)
	s.Permanent = func(error) bool { return true }

	s.Schedule(-100, 60)
	s.post(-100)

	assert.False(t, s.Scheduled(-100))
	_, err := database.GetChat(-100)
	assert.Error(t, err, "chat row must be gone")
}

func TestPost_TransientFailureKeepsSubscription(t *testing.T) {
	setupDB(t)
	require.NoError(t, database.UpsertChat(-100, 42, "Flaky Group"))

	sender := &recordingSender{err: assert.AnError}
	store := publishedStore(t, map[types.Asset]float64{types.AssetBTC: 90000})
	s := NewScheduler(store, sender)
	s.Permanent = func(error) bool { return false }

	s.Schedule(-100, 60)
	s.post(-100)

	assert.True(t, s.Scheduled(-100))
	_, err := database.GetChat(-100)
	assert.NoError(t, err)

	// The failed message was not recorded; the next attempt retries it.
	sender.err = nil
	s.post(-100)
	assert.Equal(t, 2, sender.count())
}

func TestStart_RestoresPersistedSchedules(t *testing.T) {
	setupDB(t)
	require.NoError(t, database.UpsertChat(-1, 42, "Off"))
	require.NoError(t, database.UpsertChat(-2, 42, "Hourly"))
	require.NoError(t, database.SetChatInterval(-2, 3600))

	s := NewScheduler(snapshot.NewStore(""), &recordingSender{})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.Scheduled(-2))
	assert.False(t, s.Scheduled(-1))
	assert.Equal(t, 1, s.ActiveJobs())
}

func TestEnabledAssets(t *testing.T) {
	all := EnabledAssets("ALL")
	assert.Len(t, all, len(types.AllAssets))

	some := EnabledAssets("BTC, GOLD")
	assert.True(t, some[types.AssetBTC])
	assert.True(t, some[types.AssetGold])
	assert.False(t, some[types.AssetETH])
}

func TestFormatPriceMessage(t *testing.T) {
	store := publishedStore(t, map[types.Asset]float64{
		types.AssetBTC:  90000,
		types.AssetGold: 2650,
	})

	msg := FormatPriceMessage(store.Read(), store, "en", "ALL")
	assert.Contains(t, msg, "Bitcoin")
	assert.Contains(t, msg, "Gold")

	filtered := FormatPriceMessage(store.Read(), store, "en", "GOLD")
	assert.NotContains(t, filtered, "Bitcoin")
	assert.Contains(t, filtered, "Gold")

	empty := FormatPriceMessage(types.Snapshot{}, store, "en", "ALL")
	assert.Contains(t, empty, "⚠️")

	none := FormatPriceMessage(store.Read(), store, "en", "ETH")
	assert.Equal(t, "No assets selected.", none)
}
