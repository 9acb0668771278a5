package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/latctl/internal/sim"
)

const (
	roadWidth       = 60
	roadHeight      = 10
	historyCapacity = 3000
	plotWindow      = 300

	// laneHalfWidth is half a 3.5 m lane.
	laneHalfWidth = 1.75
)

type TickMsg time.Time

// Tuner is a controller whose gains can be changed between ticks.
type Tuner interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

// Model steps a simulation session in real time and renders the road, the
// curvature tracking and the controller terms.
type Model struct {
	title   string
	sim     *sim.Simulator
	cfg     sim.Config
	tuner   Tuner
	session *sim.Session
	err     error

	running       bool
	ticksPerFrame int
	history       []sim.Sample
	playHead      int
	canvas        *Canvas

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
	showHelp      bool
}

// NewModel starts a session on s. tuner may be nil.
func NewModel(title string, s *sim.Simulator, cfg sim.Config, tuner Tuner) (Model, error) {
	session, err := s.Start(cfg)
	if err != nil {
		return Model{}, err
	}

	params := make(map[string]float64)
	initialParams := make(map[string]float64)
	keys := make([]string, 0)
	if tuner != nil {
		for k, v := range tuner.Params() {
			params[k] = v
			initialParams[k] = v
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return Model{
		title:         title,
		sim:           s,
		cfg:           cfg,
		tuner:         tuner,
		session:       session,
		running:       true,
		ticksPerFrame: int(math.Max(1, math.Round(cfg.ControlHz/60))),
		history:       make([]sim.Sample, 0, historyCapacity),
		playHead:      -1,
		canvas:        NewCanvas(roadWidth, roadHeight),
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
	}, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-10)
		case "]":
			m.scrub(10)
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "+", "=":
			m.ticksPerFrame *= 2
		case "-", "_":
			if m.ticksPerFrame > 1 {
				m.ticksPerFrame /= 2
			}
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances the session by one frame's worth of control ticks.
func (m *Model) step() {
	for i := 0; i < m.ticksPerFrame && !m.session.Done(); i++ {
		smp, err := m.session.Step()
		m.history = append(m.history, smp)
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
		if err != nil {
			m.err = err
			m.running = false
			return
		}
	}
	if m.session.Done() {
		m.running = false
	}
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 || m.tuner == nil {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if val == 0 && factor > 1 {
		val = 0.01
	}
	if err := m.tuner.SetParam(key, val); err != nil {
		m.err = err
		return
	}
	m.params[key] = val
}

func (m *Model) scrub(dir int) {
	if len(m.history) == 0 {
		return
	}
	if m.playHead == -1 {
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset restarts the scenario with the initial gains.
func (m *Model) reset() {
	if m.tuner != nil {
		for k, v := range m.initialParams {
			if m.params[k] == v {
				continue
			}
			m.params[k] = v
			_ = m.tuner.SetParam(k, v)
		}
	}
	session, err := m.sim.Start(m.cfg)
	if err != nil {
		m.err = err
		return
	}
	m.session = session
	m.history = m.history[:0]
	m.playHead = -1
	m.err = nil
	m.running = true
}

// visible is the history up to the play head.
func (m *Model) visible() []sim.Sample {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[:m.playHead+1]
	}
	return m.history
}

// drawRoad plots the lateral offset trail against the lane edges, newest
// sample on the right.
func (m *Model) drawRoad(hist []sim.Sample) {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	yScale := 2 * laneHalfWidth
	project := func(offset float64) int {
		return h/2 - int(math.Round(offset/yScale*float64(h/2)))
	}

	m.canvas.DashedRow(project(laneHalfWidth), 3)
	m.canvas.DashedRow(project(-laneHalfWidth), 3)

	stride := m.ticksPerFrame
	n := 0
	px, py := -1, 0
	for i := len(hist) - 1; i >= 0 && n < w; i -= stride {
		x := w - 1 - n
		y := project(hist[i].Offset)
		if px >= 0 {
			m.canvas.DrawLine(px, py, x, y)
		} else {
			m.canvas.Set(x, y)
		}
		px, py = x, y
		n++
	}
}

func tail(hist []sim.Sample, n int, f func(sim.Sample) float64) []float64 {
	if len(hist) > n {
		hist = hist[len(hist)-n:]
	}
	out := make([]float64, len(hist))
	for i, s := range hist {
		out[i] = f(s)
	}
	return out
}

func (m Model) View() string {
	st := currentStyles()
	hist := m.visible()
	m.drawRoad(hist)

	var left strings.Builder
	left.WriteString(m.canvas.String())
	if len(hist) > 1 {
		desired := tail(hist, plotWindow, func(s sim.Sample) float64 { return s.DesiredCurvature * 1000 })
		actual := tail(hist, plotWindow, func(s sim.Sample) float64 { return s.ActualCurvature * 1000 })
		chart := asciigraph.PlotMany(
			[][]float64{desired, actual},
			asciigraph.Height(6),
			asciigraph.Width(roadWidth),
			asciigraph.Precision(2),
			asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta),
			asciigraph.Caption("curvature 1/km (desired, actual)"),
		)
		left.WriteString(st.graph.Render(chart) + "\n")
		torque := tail(hist, roadWidth, func(s sim.Sample) float64 { return s.Torque })
		left.WriteString("torque " + SparklineChart(torque, roadWidth, 1) + "\n")
	}
	leftView := st.panel.Render(left.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status(st) + "\n")
	if steps := m.session.Steps(); steps > 0 {
		s.WriteString(ProgressBar(float64(m.session.Tick())/float64(steps), 30) + "\n")
	}
	s.WriteString("\n")

	var cur sim.Sample
	if len(hist) > 0 {
		cur = hist[len(hist)-1]
	}
	d := cur.Diagnostics
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", cur.Time))
	row("Speed", fmt.Sprintf("%.1f m/s", cur.Speed))
	row("Offset", fmt.Sprintf("%+.3f m", cur.Offset))
	row("Error", fmt.Sprintf("%+.4f", d.Error))
	row("P / I", fmt.Sprintf("%+.3f / %+.3f", d.P, d.I))
	row("D / F", fmt.Sprintf("%+.3f / %+.3f", d.D, d.F))
	row("Torque", fmt.Sprintf("%+.3f", cur.Torque))

	var flags []string
	switch {
	case !d.Active:
		flags = append(flags, st.paused.Render("INACTIVE"))
	case cur.Override:
		flags = append(flags, st.warn.Render("OVERRIDE"))
	default:
		flags = append(flags, st.running.Render("ACTIVE"))
	}
	if d.SaturatedSustained {
		flags = append(flags, st.bad.Render("SATURATED"))
	} else if d.Saturated {
		flags = append(flags, st.warn.Render("saturated"))
	}
	s.WriteString("\n" + strings.Join(flags, " ") + "\n")

	s.WriteString("\nGAINS\n")
	if len(m.paramKeys) > 0 {
		for i, k := range m.paramKeys {
			line := fmt.Sprintf("%-6s %.4g", k, m.params[k])
			if i == m.selected {
				s.WriteString(st.active.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + st.value.Render(line) + "\n")
			}
		}
	} else {
		s.WriteString(st.label.Render("  (fixed)") + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + st.bad.Render(m.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render(Separator(30) + "\nSP:Pause R:Restart Q:Quit\nTab/↑↓:Tune +/-:Speed ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, leftView, st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

func (m Model) status(st styles) string {
	switch {
	case m.err != nil:
		return st.bad.Render("FAILED")
	case m.playHead != -1:
		last := m.history[len(m.history)-1].Time
		return st.paused.Render(fmt.Sprintf("REPLAY (%.1fs)", m.history[m.playHead].Time-last))
	case m.session.Done():
		return st.paused.Render("FINISHED")
	case !m.running:
		return st.paused.Render("PAUSED")
	default:
		return st.running.Render(fmt.Sprintf("RUNNING x%d", m.ticksPerFrame))
	}
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Restart with start gains ║
║  Q        - Quit                     ║
║  Tab      - Cycle gains              ║
║  Up/K     - Increase gain (+5%)      ║
║  Down/J   - Decrease gain (-5%)      ║
║  [ ]      - Rewind / forward         ║
║  + -      - Faster / slower          ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`
