package player_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/macrorec-project/macrorec/internal/mode"
	"github.com/macrorec-project/macrorec/internal/player"
	"github.com/macrorec-project/macrorec/internal/timeline"
	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op   string
	args []any
	at   time.Time
}

// captureInjector records every dispatch with its wall-clock time.
type captureInjector struct {
	mu     sync.Mutex
	calls  []call
	onCall func(n int)
	fail   bool
}

func (c *captureInjector) add(op string, args ...any) error {
	c.mu.Lock()
	c.calls = append(c.calls, call{op: op, args: args, at: time.Now()})
	n := len(c.calls)
	hook := c.onCall
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if c.fail {
		return errors.New("injection unavailable")
	}
	return nil
}

func (c *captureInjector) snapshot() []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]call, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *captureInjector) KeyDown(key string) error { return c.add("key_down", key) }
func (c *captureInjector) KeyUp(key string) error   { return c.add("key_up", key) }
func (c *captureInjector) MoveTo(x, y int) error    { return c.add("move_to", x, y) }
func (c *captureInjector) ButtonDown(b model.Button, x, y int) error {
	return c.add("button_down", b, x, y)
}
func (c *captureInjector) ButtonUp(b model.Button, x, y int) error {
	return c.add("button_up", b, x, y)
}
func (c *captureInjector) Scroll(dx, dy, x, y int) error { return c.add("scroll", dx, dy, x, y) }

func newPlayer(t *testing.T, events []model.Event, opts ...player.Option) (*player.Player, *captureInjector, *mode.Machine) {
	t.Helper()
	store := timeline.NewStore()
	store.Replace(events)
	machine := mode.NewMachine()
	inj := &captureInjector{}
	return player.New(store, machine, inj, opts...), inj, machine
}

func waitDone(t *testing.T, p *player.Player) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestPlay_EmptyTimeline(t *testing.T) {
	p, inj, machine := newPlayer(t, nil)

	err := p.Play()
	require.ErrorIs(t, err, errclass.ErrTimelineEmpty)
	assert.Equal(t, model.ModeIdle, machine.Mode())
	assert.False(t, p.Running())
	assert.Empty(t, inj.snapshot())
}

func TestPlay_WhileRecording(t *testing.T) {
	p, _, machine := newPlayer(t, []model.Event{model.NewKeyDown(0, "a")})
	require.NoError(t, machine.BeginRecording())

	err := p.Play()
	require.ErrorIs(t, err, errclass.ErrRecordingActive)
	assert.Equal(t, model.ModeRecording, machine.Mode())
}

func TestPlay_RecordingCheckedBeforeEmpty(t *testing.T) {
	p, _, machine := newPlayer(t, nil)
	require.NoError(t, machine.BeginRecording())
	assert.ErrorIs(t, p.Play(), errclass.ErrRecordingActive)
}

func TestPlay_AlreadyPlaying(t *testing.T) {
	p, _, _ := newPlayer(t, []model.Event{
		model.NewKeyDown(0, "a"),
		model.NewKeyUp(0.2, "a"),
	})
	require.NoError(t, p.Play())
	assert.ErrorIs(t, p.Play(), errclass.ErrPlaybackActive)
	p.Stop()
	waitDone(t, p)
}

func TestPlay_KeyScenario(t *testing.T) {
	var finished player.Result
	p, inj, machine := newPlayer(t, []model.Event{
		model.NewKeyDown(0.0, "w"),
		model.NewKeyUp(0.5, "w"),
	}, player.WithFinishHook(func(r player.Result) { finished = r }))

	start := time.Now()
	require.NoError(t, p.Play())
	assert.Equal(t, model.ModePlaying, machine.Mode())
	assert.True(t, machine.IgnoringInput())
	waitDone(t, p)

	calls := inj.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "key_down", calls[0].op)
	assert.Equal(t, []any{"w"}, calls[0].args)
	assert.Less(t, calls[0].at.Sub(start), 200*time.Millisecond, "first event dispatched immediately")
	assert.Equal(t, "key_up", calls[1].op)
	assert.GreaterOrEqual(t, calls[1].at.Sub(calls[0].at), 500*time.Millisecond)

	assert.Equal(t, model.ModeIdle, machine.Mode())
	assert.False(t, machine.IgnoringInput())
	assert.Equal(t, 2, finished.Dispatched)
	assert.False(t, finished.Cancelled)

	last, ok := p.LastResult()
	require.True(t, ok)
	assert.Equal(t, finished, last)
}

func TestPlay_InterEventDelays(t *testing.T) {
	floor := 15 * time.Millisecond
	events := []model.Event{
		model.NewMouseMove(0, 1, 1),
		model.NewMouseMove(0.04, 2, 2),
		model.NewMouseMove(0.04, 3, 3),  // zero wait, no floor
		model.NewMouseMove(0.041, 4, 4), // 1ms wait raised to floor
		model.NewMouseMove(0.1, 5, 5),
	}
	p, inj, _ := newPlayer(t, events, player.WithMinInterval(floor))
	require.NoError(t, p.Play())
	waitDone(t, p)

	calls := inj.snapshot()
	require.Len(t, calls, len(events))
	for i := 1; i < len(calls); i++ {
		delta := time.Duration((events[i].Timestamp - events[i-1].Timestamp) * float64(time.Second))
		if delta <= 0 {
			continue
		}
		want := delta
		if want < floor {
			want = floor
		}
		assert.GreaterOrEqual(t, calls[i].at.Sub(calls[i-1].at), want, "gap before event %d", i)
	}
}

func TestPlay_CancelAfterThird(t *testing.T) {
	var events []model.Event
	for i := 0; i < 10; i++ {
		events = append(events, model.NewKeyDown(float64(i)*0.01, string(rune('a'+i))))
	}
	p, inj, machine := newPlayer(t, events)
	inj.onCall = func(n int) {
		if n == 3 {
			p.Stop()
		}
	}

	require.NoError(t, p.Play())
	waitDone(t, p)

	calls := inj.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, []any{"c"}, calls[2].args)
	assert.Equal(t, model.ModeIdle, machine.Mode())
	assert.False(t, machine.IgnoringInput())

	res, ok := p.LastResult()
	require.True(t, ok)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 3, res.Dispatched)
}

func TestPlay_StopInterruptsWait(t *testing.T) {
	p, inj, _ := newPlayer(t, []model.Event{
		model.NewKeyDown(0, "a"),
		model.NewKeyUp(30, "a"),
	})
	require.NoError(t, p.Play())
	require.Eventually(t, func() bool { return len(inj.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	p.Stop()
	waitDone(t, p)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, inj.snapshot(), 1)
}

func TestPlay_HugeGapWaitsInsteadOfWrapping(t *testing.T) {
	p, inj, _ := newPlayer(t, []model.Event{
		model.NewKeyDown(0, "a"),
		model.NewKeyUp(1e12, "a"),
	})
	require.NoError(t, p.Play())
	require.Eventually(t, func() bool { return len(inj.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, inj.snapshot(), 1, "second event must still be waiting")
	assert.True(t, p.Running())

	p.Stop()
	waitDone(t, p)
	res, ok := p.LastResult()
	require.True(t, ok)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.Dispatched)
}

func TestStop_NotRunningIsNoop(t *testing.T) {
	p, _, machine := newPlayer(t, []model.Event{model.NewKeyDown(0, "a")})
	p.Stop()
	assert.Equal(t, model.ModeIdle, machine.Mode())
	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed before any playback")
	}
}

func TestPlay_SkipsIncompleteEvents(t *testing.T) {
	x := 3
	left := model.ButtonLeft
	events := []model.Event{
		{Kind: model.KindKeyDown},
		{Kind: model.KindMouseMove, X: &x},
		{Kind: model.KindMouseDown, X: &x, Y: &x},
		{Kind: model.KindMouseUp, Button: &left},
		{Kind: model.KindScroll, X: &x, Y: &x},
		model.NewScroll(0, 1, 2, 0, 4),
		model.NewMouseUp(0, model.ButtonLeft, 5, 6),
	}
	p, inj, _ := newPlayer(t, events)
	require.NoError(t, p.Play())
	waitDone(t, p)

	calls := inj.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "scroll", calls[0].op)
	assert.Equal(t, []any{0, 4, 1, 2}, calls[0].args)
	assert.Equal(t, "button_up", calls[1].op)

	res, _ := p.LastResult()
	assert.Equal(t, 5, res.Skipped)
	assert.Equal(t, 2, res.Dispatched)
}

func TestPlay_InjectorErrorsDoNotAbort(t *testing.T) {
	p, inj, machine := newPlayer(t, []model.Event{
		model.NewKeyDown(0, "a"),
		model.NewKeyUp(0, "a"),
	})
	inj.fail = true
	require.NoError(t, p.Play())
	waitDone(t, p)

	assert.Len(t, inj.snapshot(), 2)
	res, _ := p.LastResult()
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, model.ModeIdle, machine.Mode())
}

func TestPlay_SnapshotIsolatedFromLaterChanges(t *testing.T) {
	store := timeline.NewStore()
	store.Replace([]model.Event{model.NewKeyDown(0, "a"), model.NewKeyUp(0.05, "a")})
	inj := &captureInjector{}
	p := player.New(store, mode.NewMachine(), inj)

	require.NoError(t, p.Play())
	store.Replace([]model.Event{model.NewKeyDown(0, "z")})
	waitDone(t, p)

	calls := inj.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, []any{"a"}, calls[1].args)
}

func TestPlay_ProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	p, _, _ := newPlayer(t, []model.Event{
		model.NewKeyDown(0, "a"),
		model.NewKeyUp(0, "a"),
		model.NewKeyDown(0, "b"),
	}, player.WithProgress(func(op string, current, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "play", op)
		assert.Equal(t, 3, total)
		seen = append(seen, current)
	}))

	require.NoError(t, p.Play())
	waitDone(t, p)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestPlay_CanReplayAfterFinish(t *testing.T) {
	p, inj, _ := newPlayer(t, []model.Event{model.NewKeyDown(0, "a")})
	require.NoError(t, p.Play())
	waitDone(t, p)
	require.NoError(t, p.Play())
	waitDone(t, p)
	assert.Len(t, inj.snapshot(), 2)
}
