package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/progress"
)

const (
	tickInterval = 250 * time.Millisecond
	seekStep     = 10.0
	// Lessons without a known duration play for ten minutes.
	defaultLessonSeconds = 600.0
)

var playbackSpeeds = []float64{1, 1.5, 2, 4}

type tickMsg struct{ gen int }

type notificationMsg struct {
	n  domain.Notification
	ok bool
}

type playerEntry struct {
	module string
	lesson *domain.Lesson
}

type playerKeys struct {
	Play  key.Binding
	Back  key.Binding
	Fwd   key.Binding
	Next  key.Binding
	Prev  key.Binding
	Speed key.Binding
	Quit  key.Binding
}

func (k playerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Back, k.Fwd, k.Next, k.Prev, k.Speed, k.Quit}
}

func (k playerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultPlayerKeys() playerKeys {
	return playerKeys{
		Play:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Back:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-10s")),
		Fwd:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+10s")),
		Next:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next lesson")),
		Prev:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev lesson")),
		Speed: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "speed")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// playerModel simulates a video player. Every tick advances the playback
// position and reports it to the tracker the way a browser timeupdate
// event would.
type playerModel struct {
	tracker *progress.Tracker
	entries []playerEntry
	idx     int

	position float64
	playing  bool
	speed    int
	gen      int

	notices <-chan domain.Notification
	last    *domain.Notification

	bar   bprogress.Model
	help  help.Model
	keys  playerKeys
	width int
}

func newPlayerModel(t *progress.Tracker, start string, notices <-chan domain.Notification) *playerModel {
	m := &playerModel{
		tracker: t,
		notices: notices,
		bar:     bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithoutPercentage()),
		help:    help.New(),
		keys:    defaultPlayerKeys(),
		width:   80,
	}
	for _, mod := range t.Catalog().Modules {
		if mod == nil {
			continue
		}
		for _, l := range mod.Lessons {
			if l != nil {
				m.entries = append(m.entries, playerEntry{module: mod.Name, lesson: l})
			}
		}
	}
	for i, e := range m.entries {
		if e.lesson.ID == start {
			m.idx = i
			break
		}
	}
	m.bar.Width = m.width - 4
	return m
}

func (m *playerModel) Init() tea.Cmd {
	return m.waitNotification()
}

func (m *playerModel) waitNotification() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	ch := m.notices
	return func() tea.Msg {
		n, ok := <-ch
		return notificationMsg{n: n, ok: ok}
	}
}

func (m *playerModel) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func (m *playerModel) current() *domain.Lesson {
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[m.idx].lesson
}

func (m *playerModel) duration() float64 {
	l := m.current()
	if l == nil || l.DurationSeconds <= 0 {
		return defaultLessonSeconds
	}
	return float64(l.DurationSeconds)
}

func (m *playerModel) report() {
	if l := m.current(); l != nil {
		m.tracker.HandleVideoProgress(l.ID, m.position, m.duration())
	}
}

func (m *playerModel) seek(delta float64) {
	m.position = math.Max(0, math.Min(m.position+delta, m.duration()))
	m.report()
}

func (m *playerModel) switchLesson(idx int) {
	if idx < 0 || idx >= len(m.entries) || idx == m.idx {
		return
	}
	m.idx = idx
	m.position = 0
	m.playing = false
	m.gen++
}

func (m *playerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, msg.Width-4)
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if !m.playing || msg.gen != m.gen {
			return m, nil
		}
		m.position = math.Min(m.position+tickInterval.Seconds()*playbackSpeeds[m.speed], m.duration())
		m.report()
		if m.position >= m.duration() {
			m.playing = false
			return m, nil
		}
		return m, m.tick()

	case notificationMsg:
		if !msg.ok {
			m.notices = nil
			return m, nil
		}
		n := msg.n
		m.last = &n
		return m, m.waitNotification()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Play):
			if m.current() == nil {
				return m, nil
			}
			m.playing = !m.playing
			m.gen++
			if m.playing {
				if m.position >= m.duration() {
					m.position = 0
				}
				return m, m.tick()
			}
		case key.Matches(msg, m.keys.Back):
			m.seek(-seekStep)
		case key.Matches(msg, m.keys.Fwd):
			m.seek(seekStep)
		case key.Matches(msg, m.keys.Next):
			m.switchLesson(m.idx + 1)
		case key.Matches(msg, m.keys.Prev):
			m.switchLesson(m.idx - 1)
		case key.Matches(msg, m.keys.Speed):
			m.speed = (m.speed + 1) % len(playbackSpeeds)
		}
	}
	return m, nil
}

func (m *playerModel) View() string {
	var b strings.Builder

	b.WriteString(formatter.Header(m.title()))
	b.WriteString("\n\n")

	l := m.current()
	if l == nil {
		b.WriteString(formatter.Dim("This course has no lessons."))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	mark := formatter.Dim("○")
	if m.tracker.IsLessonCompleted(l.ID) {
		mark = formatter.StyleGreen.Render("✔")
	}
	fmt.Fprintf(&b, "%s %s %s\n", mark, formatter.Bold(l.Name), formatter.Dim(fmt.Sprintf("(%d/%d · %s)", m.idx+1, len(m.entries), m.entries[m.idx].module)))

	state := "❚❚ paused"
	if m.playing {
		state = "▶ playing"
	}
	fmt.Fprintf(&b, "%s  %s / %s  %s\n",
		state, formatter.Clock(m.position), formatter.Clock(m.duration()),
		formatter.Dim(fmt.Sprintf("%gx", playbackSpeeds[m.speed])))
	b.WriteString(m.bar.ViewAs(m.position / m.duration()))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Course %s %s\n",
		formatter.RenderProgress(m.tracker.CourseProgress(), 24),
		formatter.Dim(fmt.Sprintf("%d/%d lessons", len(m.tracker.CompletedLessons()), m.tracker.TotalLessons())))

	if m.last != nil {
		b.WriteString(formatter.FormatNotification(*m.last))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *playerModel) title() string {
	if t := m.tracker.Catalog().Title; t != "" {
		return t
	}
	return m.tracker.CourseID()
}
