package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/config"
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/rigid"
	"github.com/san-kum/quickstep/internal/scenario"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m tea.Model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	switch v := m.(type) {
	case model:
		return v
	case *model:
		return *v
	}
	t.Fatalf("unexpected model type %T", m)
	return model{}
}

func TestMenuToSimulation(t *testing.T) {
	app := NewApp(scenario.NewRegistry(), config.DefaultConfig(), nil)

	m := send(t, app, key("enter"))
	if m.state != stateConfig {
		t.Fatalf("expected config state, got %d", m.state)
	}
	if m.cfg.Scenario != m.scenarios[0] {
		t.Errorf("expected scenario %s, got %s", m.scenarios[0], m.cfg.Scenario)
	}

	m = send(t, m, key("s"))
	if m.state != stateSim || m.world == nil {
		t.Fatal("expected a running simulation")
	}

	m = send(t, m, tickMsg(time.Now()), tickMsg(time.Now()))
	if m.world.Time() <= 0 {
		t.Error("expected the world to advance on tick")
	}
	if len(m.rms) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(m.rms))
	}
	if !strings.Contains(m.View(), m.cfg.Scenario) {
		t.Error("expected the scenario name in the view")
	}

	m = send(t, m, key("p"), tickMsg(time.Now()))
	if !m.paused || len(m.rms) != 2 {
		t.Error("expected no stepping while paused")
	}

	m = send(t, m, key("q"))
	if m.state != stateMenu || m.world != nil {
		t.Error("expected to return to the menu")
	}
}

func TestConfigEditing(t *testing.T) {
	base := config.DefaultConfig()
	m := send(t, NewApp(scenario.NewRegistry(), base, nil), key("enter"))

	m = send(t, m, key("enter"))
	if !m.editing {
		t.Fatal("expected edit mode")
	}
	m.editBuf = ""
	m = send(t, m, key("0"), key("."), key("0"), key("2"), key("x"), key("enter"))
	if m.cfg.Dt != 0.02 {
		t.Errorf("expected dt 0.02, got %v", m.cfg.Dt)
	}
	if base.Dt != config.DefaultDt {
		t.Error("editing must not change the base config")
	}

	m = send(t, m, key("t"))
	if m.cfg.Solver.Strategy != quickstep.StrategySORByError {
		t.Errorf("expected sor-error, got %s", m.cfg.Solver.Strategy)
	}
	m = send(t, m, key("p"))
	if m.cfg.Solver.Penetration != quickstep.PenetrationBaumgarte {
		t.Errorf("expected baumgarte, got %s", m.cfg.Solver.Penetration)
	}

	m.cfg.Dt = -1
	m = send(t, m, key("s"))
	if m.state != stateConfig || m.err == nil {
		t.Error("expected invalid config to keep the config screen with an error")
	}
}

func TestNextStrategyWraps(t *testing.T) {
	s := quickstep.StrategySOR
	for range strategies {
		s = nextStrategy(s)
	}
	if s != quickstep.StrategySOR {
		t.Errorf("expected to wrap to sor, got %s", s)
	}
}

func TestCanvasProjection(t *testing.T) {
	c := newCanvas(21, 11, view{minX: 0, minZ: 0, span: 10})

	if x, y := c.project(mgl64.Vec3{0, 0, 0}); x != 0 || y != 10 {
		t.Errorf("origin projected to (%d,%d)", x, y)
	}
	if x, y := c.project(mgl64.Vec3{10, 3, 10}); x != 20 || y != 0 {
		t.Errorf("far corner projected to (%d,%d)", x, y)
	}

	c.set(-1, 0, '#')
	c.set(0, 99, '#')
	if strings.Contains(c.String(), "#") {
		t.Error("out of range cells must be ignored")
	}
}

func TestCanvasLine(t *testing.T) {
	c := newCanvas(10, 5, view{span: 1})
	c.line(0, 0, 9, 4, '*')

	if c.cells[0][0] != '*' || c.cells[4][9] != '*' {
		t.Error("expected both endpoints drawn")
	}
	var n int
	for _, row := range c.cells {
		n += strings.Count(string(row), "*")
	}
	if n != 10 {
		t.Errorf("expected one cell per column, got %d", n)
	}
}

func TestFitViewContainsBodiesAndGround(t *testing.T) {
	bodies := []*rigid.Body{
		rigid.NewSphere(1, 0.1, mgl64.Vec3{-2, 0, 3}),
		rigid.NewSphere(1, 0.1, mgl64.Vec3{2, 0, 5}),
	}
	v := fitView(bodies)
	if v.minZ > 0 {
		t.Errorf("ground not visible, minZ=%v", v.minZ)
	}
	if v.minX > -2 || v.minX+v.span < 2 || v.minZ+v.span < 5 {
		t.Errorf("bodies outside view %+v", v)
	}

	c := newCanvas(40, 20, v)
	c.ground()
	c.link(bodies[0], bodies[1])
	c.link(bodies[0], nil)
	for _, b := range bodies {
		c.body(b)
	}
	out := c.String()
	if strings.Count(out, "O") != 2 || !strings.Contains(out, "=") {
		t.Errorf("unexpected canvas:\n%s", out)
	}
}
