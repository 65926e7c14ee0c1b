package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/teatest"
)

func newPlayerDriver(t *testing.T, env *testEnv, start string) (*teatest.Driver, *playerModel) {
	t.Helper()
	tr, err := env.app.deps.Progress.Open(context.Background(), "c1")
	require.NoError(t, err)

	m := newPlayerModel(tr, start, nil)
	d := teatest.New(t, m, teatest.WithSize(100, 30))
	d.DrainInit()
	return d, m
}

func TestPlayer_StartsAtRequestedLesson(t *testing.T) {
	env := testApp(t)
	_, m := newPlayerDriver(t, env, "L3")
	require.NotNil(t, m.current())
	assert.Equal(t, "L3", m.current().ID)
}

func TestPlayer_UnknownStartFallsBackToFirst(t *testing.T) {
	env := testApp(t)
	_, m := newPlayerDriver(t, env, "")
	assert.Equal(t, "L1", m.current().ID)
}

func TestPlayer_TicksAdvanceOnlyWhilePlaying(t *testing.T) {
	env := testApp(t)
	d, m := newPlayerDriver(t, env, "L1")

	d.Send(tickMsg{gen: m.gen})
	assert.Zero(t, m.position)

	d.PressSpace()
	require.True(t, m.playing)
	d.Send(tickMsg{gen: m.gen})
	d.Send(tickMsg{gen: m.gen})
	assert.InDelta(t, 0.5, m.position, 1e-9)

	// a tick from before the last pause/play toggle is stale
	d.Send(tickMsg{gen: m.gen - 1})
	assert.InDelta(t, 0.5, m.position, 1e-9)

	d.PressSpace()
	assert.False(t, m.playing)
	d.Send(tickMsg{gen: m.gen})
	assert.InDelta(t, 0.5, m.position, 1e-9)
}

func TestPlayer_SpeedScalesTicks(t *testing.T) {
	env := testApp(t)
	d, m := newPlayerDriver(t, env, "L1")

	d.PressKey('s')
	d.PressSpace()
	d.Send(tickMsg{gen: m.gen})
	assert.InDelta(t, 0.375, m.position, 1e-9)
	assert.Contains(t, stripANSI(d.View()), "1.5x")
}

func TestPlayer_SeekingPastThresholdCompletesLesson(t *testing.T) {
	env := testApp(t)
	d, m := newPlayerDriver(t, env, "L1")

	d.Repeat(47, d.PressRight)
	assert.InDelta(t, 470, m.position, 1e-9)
	assert.False(t, m.tracker.IsLessonCompleted("L1"))

	d.PressRight()
	assert.True(t, m.tracker.IsLessonCompleted("L1"))
	assert.Contains(t, stripANSI(d.View()), "1/4 lessons")

	d.PressLeft()
	assert.InDelta(t, 470, m.position, 1e-9)
	assert.True(t, m.tracker.IsLessonCompleted("L1"))
}

func TestPlayer_SeekClampsToLesson(t *testing.T) {
	env := testApp(t)
	d, m := newPlayerDriver(t, env, "L1")

	d.PressLeft()
	assert.Zero(t, m.position)

	d.Repeat(70, d.PressRight)
	assert.InDelta(t, 600, m.position, 1e-9)
}

func TestPlayer_PlaybackStopsAtEnd(t *testing.T) {
	env := testApp(t)
	d, m := newPlayerDriver(t, env, "L1")

	d.Repeat(59, d.PressRight)
	d.PressSpace()
	for i := 0; i < 40 && m.playing; i++ {
		d.Send(tickMsg{gen: m.gen})
	}
	assert.False(t, m.playing)
	assert.InDelta(t, 600, m.position, 1e-9)
}

func TestPlayer_LessonWithoutDurationUsesDefault(t *testing.T) {
	env := testApp(t)
	_, m := newPlayerDriver(t, env, "L4")
	assert.Equal(t, defaultLessonSeconds, m.duration())
}

func TestPlayer_NextAndPrevResetPosition(t *testing.T) {
	env := testApp(t)
	d, m := newPlayerDriver(t, env, "L1")

	d.PressRight()
	d.PressSpace()
	d.PressKey('n')
	assert.Equal(t, "L2", m.current().ID)
	assert.Zero(t, m.position)
	assert.False(t, m.playing)

	d.Repeat(5, func() { d.PressKey('n') })
	assert.Equal(t, "L4", m.current().ID)

	d.PressKey('p')
	assert.Equal(t, "L3", m.current().ID)
	assert.Contains(t, stripANSI(d.View()), "Goroutines")
	assert.Contains(t, stripANSI(d.View()), "(3/4 · Concurrency)")
}

func TestPlayer_ShowsLatestNotification(t *testing.T) {
	env := testApp(t)
	d, _ := newPlayerDriver(t, env, "L1")

	d.Send(notificationMsg{ok: true, n: domain.Notification{
		Kind: domain.NotifyProgressUpdated, CourseID: "c1", Progress: 50,
	}})
	assert.Contains(t, stripANSI(d.View()), "Progress updated: 50.0%")
}

func TestPlayer_ReceivesHubNotifications(t *testing.T) {
	env := testApp(t)
	tr, err := env.app.deps.Progress.Open(context.Background(), "c1")
	require.NoError(t, err)

	notices, cancel := env.hub.Subscribe("c1")
	defer cancel()
	m := newPlayerModel(tr, "L1", notices)

	_, _, err = env.app.deps.Progress.CompleteLesson(context.Background(), "c1", "L2")
	require.NoError(t, err)

	msg := m.waitNotification()()
	_, _ = m.Update(msg)
	require.NotNil(t, m.last)
	assert.Equal(t, domain.NotifyLessonCompleted, m.last.Kind)

	cancel()
	_, cmd := m.Update(m.waitNotification()())
	assert.Nil(t, cmd)
	assert.Nil(t, m.notices)
}

func TestPlayer_Quit(t *testing.T) {
	env := testApp(t)
	d, _ := newPlayerDriver(t, env, "L1")
	d.PressKey('q')
	assert.True(t, d.Quitting)
}
