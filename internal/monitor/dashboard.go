// Package monitor renders a live terminal dashboard of perception records
// streamed from NATS.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/events"
)

const (
	sparklineWidth  = 40
	sparklineHeight = 4
	historySize     = 40
	recentSize      = 6
	transcriptWidth = 60
)

// emotionOrder is the row order of the emotion section.
var emotionOrder = []affect.Emotion{
	affect.Happy, affect.Sad, affect.Angry, affect.Fear,
	affect.Surprise, affect.Disgust, affect.Neutral,
}

// Options configures the dashboard.
type Options struct {
	// Subject is shown in the header.
	Subject string
	// MoodBand is the neutral band used to bucket polarity into moods.
	MoodBand float64
	// Refresh is how often idle time is redrawn. Zero means one second.
	Refresh time.Duration
}

// Model is the BubbleTea dashboard model.
type Model struct {
	source  <-chan events.Event
	opts    Options
	started time.Time
	now     time.Time

	stats    Stats
	closed   bool
	quitting bool

	emotionBar progress.Model
}

// Stats aggregates everything seen since start or the last clear.
type Stats struct {
	Total     int
	LastEvent time.Time
	Moods     map[affect.Mood]int
	Emotions  map[affect.Emotion]int
	Speakers  map[string]int
	Polarity  []float64
	Recent    []events.Event
}

func newStats() Stats {
	return Stats{
		Moods:    make(map[affect.Mood]int),
		Emotions: make(map[affect.Emotion]int),
		Speakers: make(map[string]int),
		Polarity: make([]float64, 0, historySize),
	}
}

// Lipgloss styles
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	positiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	neutralStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	negativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard reading from source.
func NewModel(source <-chan events.Event, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}
	now := time.Now()
	return Model{
		source:  source,
		opts:    opts,
		started: now,
		now:     now,
		stats:   newStats(),
		emotionBar: progress.New(
			progress.WithGradient("#00ffff", "#ff00ff"),
			progress.WithWidth(30),
		),
	}
}

// Stats returns the current aggregates.
func (m Model) Stats() Stats {
	return m.stats
}

// moodStyle picks the badge color for a mood.
func moodStyle(mood affect.Mood) lipgloss.Style {
	switch mood {
	case affect.MoodPositive:
		return positiveStyle
	case affect.MoodNegative:
		return negativeStyle
	default:
		return neutralStyle
	}
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// createSparkline plots polarity shifted into [0, 2]; sparklines cannot
// draw below zero.
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v + 1)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time
type eventMsg events.Event
type closedMsg struct{}

// Init starts listening and the idle clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.source),
		tick(m.opts.Refresh),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the next event from source.
func waitForEvent(source <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-source
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			m.stats = newStats()
			return m, nil
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick(m.opts.Refresh)

	case eventMsg:
		m.record(events.Event(msg))
		return m, waitForEvent(m.source)

	case closedMsg:
		m.closed = true
		return m, nil
	}

	return m, nil
}

func (m *Model) record(ev events.Event) {
	s := &m.stats
	s.Total++
	s.LastEvent = ev.PublishedAt
	if s.LastEvent.IsZero() {
		s.LastEvent = time.Now()
	}

	polarity := ev.Record.Sentiment.Polarity
	s.Moods[affect.MoodFor(polarity, m.opts.MoodBand)]++
	for _, e := range ev.Record.Emotions {
		s.Emotions[e]++
	}
	s.Speakers[ev.UserID]++
	s.Polarity = appendToHistory(s.Polarity, polarity)

	s.Recent = append(s.Recent, ev)
	if len(s.Recent) > recentSize {
		s.Recent = s.Recent[1:]
	}
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	m.renderHeader(&b)
	m.renderMoods(&b)
	m.renderPolarity(&b)
	m.renderEmotions(&b)
	m.renderRecent(&b)

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[c]") + footerStyle.Render(" clear  ")
	b.WriteString("\n" + footer)

	return containerStyle.Render(b.String())
}

func (m Model) renderHeader(b *strings.Builder) {
	status := positiveStyle.Render("● LIVE")
	if m.closed {
		status = negativeStyle.Render("✗ DISCONNECTED")
	}
	last := "never"
	if !m.stats.LastEvent.IsZero() {
		last = FormatAgo(m.now.Sub(m.stats.LastEvent))
	}

	b.WriteString(headerStyle.Render(" perceptd Monitor ") + "\n")
	fmt.Fprintf(b, "%s   %s %s   %s %s   %s %s\n",
		status,
		dimStyle.Render("Subject:"), valueStyle.Render(m.opts.Subject),
		dimStyle.Render("Up:"), valueStyle.Render(FormatDuration(int64(m.now.Sub(m.started).Seconds()))),
		dimStyle.Render("Last:"), valueStyle.Render(last),
	)
}

func (m Model) renderMoods(b *strings.Builder) {
	s := m.stats
	b.WriteString("\n" + sectionStyle.Render("┃ Mood") + "\n")
	fmt.Fprintf(b, "%s%s   %s%s\n",
		labelStyle.Render("  Records: "), valueStyle.Render(fmt.Sprintf("%d", s.Total)),
		labelStyle.Render("Speakers: "), valueStyle.Render(fmt.Sprintf("%d", len(s.Speakers))),
	)
	b.WriteString("  ")
	for _, mood := range []affect.Mood{affect.MoodPositive, affect.MoodNeutral, affect.MoodNegative} {
		share := FormatPercentage(ratio(s.Moods[mood], s.Total))
		b.WriteString(moodStyle(mood).Render(fmt.Sprintf("%s %d", mood, s.Moods[mood])) + " " +
			dimStyle.Render("("+share+")") + "   ")
	}
	b.WriteString("\n")
}

func (m Model) renderPolarity(b *strings.Builder) {
	b.WriteString("\n" + sectionStyle.Render("┃ Polarity") + "\n")
	current := "n/a"
	if n := len(m.stats.Polarity); n > 0 {
		current = FormatPolarity(m.stats.Polarity[n-1])
	}
	b.WriteString(labelStyle.Render("  Latest: ") + valueStyle.Render(current) + "\n")
	b.WriteString(createSparkline(m.stats.Polarity) + "\n")
}

func (m Model) renderEmotions(b *strings.Builder) {
	b.WriteString("\n" + sectionStyle.Render("┃ Emotions") + "\n")
	for _, e := range emotionOrder {
		n := m.stats.Emotions[e]
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-9s", e)) +
			m.emotionBar.ViewAs(ratio(n, m.stats.Total)) +
			" " + dimStyle.Render(fmt.Sprintf("%d", n)) + "\n")
	}
}

func (m Model) renderRecent(b *strings.Builder) {
	b.WriteString("\n" + sectionStyle.Render("┃ Recent") + "\n")
	if len(m.stats.Recent) == 0 {
		b.WriteString(dimStyle.Render("  waiting for records...") + "\n")
		return
	}
	for i := len(m.stats.Recent) - 1; i >= 0; i-- {
		ev := m.stats.Recent[i]
		mood := affect.MoodFor(ev.Record.Sentiment.Polarity, m.opts.MoodBand)
		b.WriteString("  " + moodStyle(mood).Render("●") + " " +
			labelStyle.Render(Truncate(ev.UserID, 16)+": ") +
			valueStyle.Render(Truncate(ev.Record.Transcript, transcriptWidth)) + "\n")
	}
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
