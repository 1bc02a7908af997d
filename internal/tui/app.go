// Package tui is an interactive terminal front end that steps a scenario
// and draws it live.
package tui

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/quickstep/internal/config"
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/scenario"
	"github.com/san-kum/quickstep/internal/world"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const historyLen = 60

type state int

const (
	stateMenu state = iota
	stateConfig
	stateSim
)

// field is one editable number on the config screen.
type field struct {
	name string
	step float64
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

var fields = []field{
	{"dt", 0.001,
		func(c *config.Config) float64 { return c.Dt },
		func(c *config.Config, v float64) { c.Dt = v }},
	{"duration", 1,
		func(c *config.Config) float64 { return c.Duration },
		func(c *config.Config, v float64) { c.Duration = v }},
	{"iterations", 5,
		func(c *config.Config) float64 { return float64(c.Solver.Iterations) },
		func(c *config.Config, v float64) { c.Solver.Iterations = int(math.Round(v)) }},
	{"precon", 5,
		func(c *config.Config) float64 { return float64(c.Solver.PreconIterations) },
		func(c *config.Config, v float64) { c.Solver.PreconIterations = int(math.Round(v)) }},
	{"w", 0.05,
		func(c *config.Config) float64 { return c.Solver.W },
		func(c *config.Config, v float64) { c.Solver.W = v }},
	{"chunks", 1,
		func(c *config.Config) float64 { return float64(c.Solver.Chunks) },
		func(c *config.Config, v float64) { c.Solver.Chunks = int(math.Round(v)) }},
	{"erp", 0.05,
		func(c *config.Config) float64 { return c.World.ERP },
		func(c *config.Config, v float64) { c.World.ERP = v }},
}

var strategies = []quickstep.Strategy{
	quickstep.StrategySOR,
	quickstep.StrategySORByError,
	quickstep.StrategyCG,
}

type model struct {
	state     state
	cursor    int
	scenarios []string
	reg       *scenario.Registry
	base      *config.Config
	cfg       *config.Config
	logger    *slog.Logger

	fieldCursor int
	editing     bool
	editBuf     string
	err         error

	world       *world.World
	view        view
	running     bool
	paused      bool
	speed       float64
	last        quickstep.Stats
	rms         []float64
	unconverged int
	energy0     float64
	lastFrame   time.Time
	fps         float64

	width  int
	height int
}

// NewApp returns the interactive program model. base seeds the settings of
// every scenario picked from the menu.
func NewApp(reg *scenario.Registry, base *config.Config, logger *slog.Logger) tea.Model {
	if base == nil {
		base = config.DefaultConfig()
	}
	return &model{
		state:     stateMenu,
		scenarios: reg.List(),
		reg:       reg,
		base:      base,
		logger:    logger,
		speed:     1,
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd { return nil }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.state != stateSim {
			return m, nil
		}
		if m.running && !m.paused && m.world != nil {
			now := time.Now()
			if !m.lastFrame.IsZero() {
				if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
					m.fps = 1 / dt
				}
			}
			m.lastFrame = now
			steps := max(int(m.speed), 1)
			for i := 0; i < steps; i++ {
				m.step()
			}
		}
		if m.running {
			return m, tick()
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.scenarios)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.scenarios) == 0 {
			return m, nil
		}
		name := m.scenarios[m.cursor]
		m.cfg = m.base.Clone()
		if m.cfg.Scenario != name {
			m.cfg.Scenario = name
			m.cfg.ScenarioParams = nil
		}
		m.state = stateConfig
		m.fieldCursor = 0
		m.err = nil
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	f := fields[m.fieldCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				f.set(m.cfg, v)
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 {
				if c := s[0]; (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += s
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(fields)-1 {
			m.fieldCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = strconv.FormatFloat(f.get(m.cfg), 'g', -1, 64)
	case "left", "h":
		f.set(m.cfg, f.get(m.cfg)-f.step)
	case "right", "l":
		f.set(m.cfg, f.get(m.cfg)+f.step)
	case "t":
		m.cfg.Solver.Strategy = nextStrategy(m.cfg.Solver.Strategy)
	case "p":
		if m.cfg.Solver.Penetration == quickstep.PenetrationSplit {
			m.cfg.Solver.Penetration = quickstep.PenetrationBaumgarte
		} else {
			m.cfg.Solver.Penetration = quickstep.PenetrationSplit
		}
	case "s":
		if err := m.start(); err != nil {
			m.err = err
			return m, nil
		}
		m.state = stateSim
		return m, tea.Batch(tea.ClearScreen, tick())
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.running = false
		m.state = stateMenu
		m.reset()
		return m, tea.ClearScreen
	case " ", "p":
		m.paused = !m.paused
	case "r":
		if err := m.start(); err != nil {
			m.err = err
		}
		return m, tea.ClearScreen
	case "c":
		m.running = false
		m.state = stateConfig
		m.reset()
		return m, tea.ClearScreen
	case "+", "=":
		m.speed = math.Min(m.speed*2, 16)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.25)
	case "0":
		m.speed = 1
	}
	return m, nil
}

func nextStrategy(s quickstep.Strategy) quickstep.Strategy {
	for i, v := range strategies {
		if v == s {
			return strategies[(i+1)%len(strategies)]
		}
	}
	return strategies[0]
}

func (m *model) start() error {
	w, err := m.cfg.Build(m.reg, m.logger)
	if err != nil {
		return err
	}
	m.world = w
	m.view = fitView(w.Bodies())
	m.energy0 = w.Energy()
	m.rms = make([]float64, 0, historyLen)
	m.unconverged = 0
	m.last = quickstep.Stats{}
	m.speed = 1
	m.lastFrame = time.Time{}
	m.running = true
	m.paused = false
	m.err = nil
	return nil
}

func (m *model) reset() {
	m.world = nil
	m.rms = nil
	m.last = quickstep.Stats{}
}

func (m *model) step() {
	if m.world.Time() >= m.cfg.Duration {
		m.paused = true
		return
	}
	m.last = m.world.Step(m.cfg.Dt)
	if m.cfg.Solver.Tolerance > 0 && !m.last.Converged {
		m.unconverged++
	}
	m.rms = append(m.rms, m.last.RMS)
	if len(m.rms) > historyLen {
		m.rms = m.rms[1:]
	}
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("          " + cyan.Render("q u i c k s t e p") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.scenarios {
		desc := m.reg.Describe(name)
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter configure   q quit") + "\n")

	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.cfg.Scenario) + "  " + dim.Render(m.reg.Describe(m.cfg.Scenario)) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	for i, f := range fields {
		val := fmt.Sprintf("%8.3f", f.get(m.cfg))
		if m.editing && i == m.fieldCursor {
			val = fmt.Sprintf("%8s", m.editBuf+"▋")
		}
		if i == m.fieldCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-12s", f.name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-12s", f.name)) + dim.Render(val) + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString("        " + dim.Render(fmt.Sprintf("%-12s", "strategy")) + magenta.Render(m.cfg.Solver.Strategy.String()) + "\n")
	b.WriteString("        " + dim.Render(fmt.Sprintf("%-12s", "penetration")) + magenta.Render(m.cfg.Solver.Penetration.String()) + "\n")

	if m.err != nil {
		b.WriteString("\n      " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  enter edit  t strategy  p penetration  s start  esc back") + "\n")

	return b.String()
}

func (m model) viewSim() string {
	if m.world == nil {
		return ""
	}
	ch := max(m.height-20, 10)
	cw := max(m.width-6, 2*ch)

	c := newCanvas(cw, ch, m.view)
	c.ground()
	for _, j := range m.world.Joints() {
		c.link(j.Bodies())
	}
	for _, body := range m.world.Bodies() {
		c.body(body)
	}

	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.paused {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	fmt.Fprintf(&b, "\n   %s %s  %s  %s\n", statusIcon, cyan.Render(m.cfg.Scenario), statusText,
		dim.Render(fmt.Sprintf("%gx", m.speed)))

	t := m.world.Time()
	progress := math.Min(t/m.cfg.Duration, 1)
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	fmt.Fprintf(&b, "   %s %s  %s\n\n", bar,
		dim.Render(fmt.Sprintf("%.2fs/%.0fs", t, m.cfg.Duration)), dim.Render(fmt.Sprintf("%.0ffps", m.fps)))

	for _, row := range strings.Split(c.String(), "\n") {
		b.WriteString("   " + white.Render(row) + "\n")
	}
	b.WriteString("\n")

	converged := green.Render("yes")
	if !m.last.Converged {
		converged = yellow.Render("no")
	}
	fmt.Fprintf(&b, "   %s %-5d %s %-5d %s %-5d %s %-5d\n",
		dim.Render("bodies"), m.last.Bodies,
		dim.Render("joints"), m.last.Joints,
		dim.Render("contacts"), len(m.world.Contacts()),
		dim.Render("rows"), m.last.Rows)
	fmt.Fprintf(&b, "   %s %-5d %s %-10.3e %s %s  %s %d\n",
		dim.Render("iters"), m.last.Iterations,
		dim.Render("rms"), m.last.RMS,
		dim.Render("converged"), converged,
		dim.Render("misses"), m.unconverged)
	e := m.world.Energy()
	drift := 0.0
	if m.energy0 != 0 {
		drift = (e - m.energy0) / math.Abs(m.energy0)
	}
	fmt.Fprintf(&b, "   %s %-10.4f %s %+.2f%%\n\n", dim.Render("energy"), e, dim.Render("drift"), 100*drift)

	if len(m.rms) > 1 {
		graph := asciigraph.Plot(m.rms,
			asciigraph.Height(5),
			asciigraph.Width(min(cw-12, 60)),
			asciigraph.Caption("rms residual"))
		for _, line := range strings.Split(graph, "\n") {
			b.WriteString("   " + dim.Render(line) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(dim.Render("   space pause  +/- speed  0 reset speed  r restart  c config  q menu") + "\n")
	return b.String()
}
