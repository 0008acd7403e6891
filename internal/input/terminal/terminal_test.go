package terminal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/macrorec-project/macrorec/internal/input"
	"github.com/macrorec-project/macrorec/internal/input/terminal"
	"github.com/macrorec-project/macrorec/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ input.Observer = (*terminal.Observer)(nil)

type collector struct {
	mu  sync.Mutex
	got []input.Occurrence
}

func (c *collector) HandleInput(o input.Occurrence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, o)
}

func (c *collector) snapshot() []input.Occurrence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]input.Occurrence(nil), c.got...)
}

func (c *collector) waitFor(t *testing.T, n int) []input.Occurrence {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.snapshot()) >= n }, 2*time.Second, 5*time.Millisecond)
	return c.snapshot()
}

func start(t *testing.T) (tcell.SimulationScreen, *terminal.Observer, *collector) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	obs := terminal.New(sim)
	c := &collector{}
	require.NoError(t, obs.Start(context.Background(), c))
	t.Cleanup(func() { _ = obs.Stop() })
	return sim, obs, c
}

func TestKeyName(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		r    rune
		want string
	}{
		{tcell.KeyRune, 'w', "w"},
		{tcell.KeyRune, 'W', "W"},
		{tcell.KeyRune, ' ', "Key.space"},
		{tcell.KeyEnter, 0, "Key.enter"},
		{tcell.KeyEscape, 0, "Key.esc"},
		{tcell.KeyTab, 0, "Key.tab"},
		{tcell.KeyBackspace2, 0, "Key.backspace"},
		{tcell.KeyF8, 0, "Key.f8"},
		{tcell.KeyF11, 0, "Key.f11"},
		{tcell.KeyPgDn, 0, "Key.page_down"},
		{tcell.KeyLeft, 0, "Key.left"},
		{tcell.KeyCtrlC, 0, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			ev := tcell.NewEventKey(tt.key, tt.r, tcell.ModNone)
			assert.Equal(t, tt.want, terminal.KeyName(ev))
		})
	}
}

func TestObserver_KeyPressBecomesDownUp(t *testing.T) {
	sim, _, c := start(t)

	sim.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	sim.InjectKey(tcell.KeyF8, 0, tcell.ModNone)

	got := c.waitFor(t, 4)
	assert.Equal(t, []input.Occurrence{
		input.KeyDown("a"),
		input.KeyUp("a"),
		input.KeyDown("Key.f8"),
		input.KeyUp("Key.f8"),
	}, got)
}

func TestObserver_CtrlChordKeepsModifier(t *testing.T) {
	sim, _, c := start(t)

	sim.InjectKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)
	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	got := c.waitFor(t, 6)
	assert.Equal(t, []input.Occurrence{
		input.KeyDown("Key.ctrl_l"),
		input.KeyDown("c"),
		input.KeyUp("c"),
		input.KeyUp("Key.ctrl_l"),
		input.KeyDown("Key.enter"),
		input.KeyUp("Key.enter"),
	}, got)
}

func TestObserver_MouseTransitions(t *testing.T) {
	sim, _, c := start(t)

	sim.InjectMouse(3, 4, tcell.ButtonNone, tcell.ModNone)
	sim.InjectMouse(3, 4, tcell.ButtonPrimary, tcell.ModNone)
	sim.InjectMouse(5, 6, tcell.ButtonPrimary, tcell.ModNone)
	sim.InjectMouse(5, 6, tcell.ButtonNone, tcell.ModNone)

	got := c.waitFor(t, 4)
	assert.Equal(t, []input.Occurrence{
		input.Move(3, 4),
		input.ButtonDown(model.ButtonLeft, 3, 4),
		input.Move(5, 6),
		input.ButtonUp(model.ButtonLeft, 5, 6),
	}, got)
}

func TestObserver_RightAndMiddleButtons(t *testing.T) {
	sim, _, c := start(t)

	sim.InjectMouse(1, 1, tcell.ButtonSecondary, tcell.ModNone)
	sim.InjectMouse(1, 1, tcell.ButtonSecondary|tcell.ButtonMiddle, tcell.ModNone)
	sim.InjectMouse(1, 1, tcell.ButtonNone, tcell.ModNone)

	got := c.waitFor(t, 5)
	assert.Equal(t, []input.Occurrence{
		input.Move(1, 1),
		input.ButtonDown(model.ButtonRight, 1, 1),
		input.ButtonDown(model.ButtonMiddle, 1, 1),
		input.ButtonUp(model.ButtonRight, 1, 1),
		input.ButtonUp(model.ButtonMiddle, 1, 1),
	}, got)
}

func TestObserver_Wheel(t *testing.T) {
	sim, _, c := start(t)

	sim.InjectMouse(2, 2, tcell.WheelUp, tcell.ModNone)
	sim.InjectMouse(2, 2, tcell.WheelDown, tcell.ModNone)
	sim.InjectMouse(2, 2, tcell.WheelLeft, tcell.ModNone)

	got := c.waitFor(t, 4)
	assert.Equal(t, []input.Occurrence{
		input.Move(2, 2),
		input.Scroll(2, 2, 0, 1),
		input.Scroll(2, 2, 0, -1),
		input.Scroll(2, 2, -1, 0),
	}, got)
}

func TestObserver_StopEndsLoop(t *testing.T) {
	_, obs, _ := start(t)
	require.NoError(t, obs.Stop())
	require.NoError(t, obs.Stop())
	select {
	case <-obs.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not exit")
	}
}

func TestObserver_ContextCancelStops(t *testing.T) {
	sim := tcell.NewSimulationScreen("UTF-8")
	obs := terminal.New(sim)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, obs.Start(ctx, &collector{}))
	cancel()
	select {
	case <-obs.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not exit")
	}
}

func TestObserver_StartTwice(t *testing.T) {
	_, obs, c := start(t)
	assert.Error(t, obs.Start(context.Background(), c))
}

func TestObserver_Draw(t *testing.T) {
	sim, obs, _ := start(t)
	sim.SetSize(40, 5)
	obs.Draw("Recording...", "events: 3")

	r, _, _, _ := sim.GetContent(0, 0)
	assert.Equal(t, 'R', r)
	r, _, _, _ = sim.GetContent(8, 1)
	assert.Equal(t, '3', r)
}

func TestObserver_StopBeforeStart(t *testing.T) {
	obs := terminal.New(tcell.NewSimulationScreen("UTF-8"))
	require.NoError(t, obs.Stop())
	<-obs.Done()
	obs.Draw("ignored")
}
