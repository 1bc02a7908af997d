package tui

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/rigid"
)

// view is the world-space window projected onto the canvas, looking along +y.
type view struct {
	minX, minZ float64
	span       float64
}

// fitView returns a square x-z window around the bodies that always
// includes the ground plane.
func fitView(bodies []*rigid.Body) view {
	if len(bodies) == 0 {
		return view{minX: -1, minZ: -0.5, span: 2}
	}
	loX, hiX := math.Inf(1), math.Inf(-1)
	loZ, hiZ := 0.0, 0.0
	for _, b := range bodies {
		loX, hiX = math.Min(loX, b.Pos[0]), math.Max(hiX, b.Pos[0])
		loZ, hiZ = math.Min(loZ, b.Pos[2]), math.Max(hiZ, b.Pos[2])
	}
	span := math.Max(hiX-loX, hiZ-loZ)
	pad := 0.5*span + 0.5
	span += 2 * pad
	cx := 0.5 * (loX + hiX)
	cz := 0.5 * (loZ + hiZ)
	return view{minX: cx - span/2, minZ: cz - span/2, span: span}
}

type canvas struct {
	cells  [][]rune
	width  int
	height int
	view   view
}

func newCanvas(width, height int, v view) *canvas {
	cells := make([][]rune, height)
	for i := range cells {
		cells[i] = []rune(strings.Repeat(" ", width))
	}
	return &canvas{cells: cells, width: width, height: height, view: v}
}

// project maps a world point to a cell. Terminal cells are roughly twice as
// tall as wide, so a canvas twice as wide as it is tall shows a square window.
func (c *canvas) project(p mgl64.Vec3) (int, int) {
	u := (p[0] - c.view.minX) / c.view.span
	v := (p[2] - c.view.minZ) / c.view.span
	x := int(math.Round(u * float64(c.width-1)))
	y := c.height - 1 - int(math.Round(v*float64(c.height-1)))
	return x, y
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.width && y >= 0 && y < c.height {
		c.cells[y][x] = r
	}
}

func (c *canvas) line(x1, y1, x2, y2 int, r rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		c.set(x1, y1, r)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (c *canvas) ground() {
	_, y := c.project(mgl64.Vec3{})
	if y < 0 || y >= c.height {
		return
	}
	for x := 0; x < c.width; x++ {
		c.set(x, y, '=')
	}
}

// link draws a segment between two bodies. A nil second body means the
// joint is attached to the static environment and nothing is drawn.
func (c *canvas) link(b1, b2 *rigid.Body) {
	if b1 == nil || b2 == nil {
		return
	}
	x1, y1 := c.project(b1.Pos)
	x2, y2 := c.project(b2.Pos)
	c.line(x1, y1, x2, y2, '·')
}

func (c *canvas) body(b *rigid.Body) {
	x, y := c.project(b.Pos)
	switch {
	case b.IsStatic():
		c.set(x, y, '+')
	case b.LinVel.Len() > 2:
		c.set(x, y, '@')
	default:
		c.set(x, y, 'O')
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
