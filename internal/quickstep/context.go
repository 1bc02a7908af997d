package quickstep

import (
	"github.com/san-kum/quickstep/internal/arena"
	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/rigid"
)

// Per-body floats: world inverse inertia, world inertia, caccel, caccelErp,
// cforce.
const bodyFloats = 2*matStride + 3*bodyStride

// Per-row floats: J, JOrig, JPrecon, iMJ plus fifteen scalars.
const rowFloats = 4*rowStride + 15

// rhsScratch is the per-body size of the temporaries used while building the
// right-hand sides.
const rhsScratch = 2 * bodyStride

// scratchSize returns the arena capacity one step needs. m is the row count,
// nb the body count and mfb the number of rows whose joints want feedback.
func scratchSize(m, nb, mfb int, cg bool) (floats, ints int) {
	floats = bodyFloats*nb + rowFloats*m + rowStride*mfb
	nested := rhsScratch * nb
	if cg {
		nested = max(nested, cgScratch(m, nb))
	}
	return floats + nested, 4 * m
}

type activeJoint struct {
	src   joint.Source
	ofs   int
	m     int
	nub   int
	b1    int
	b2    int
	fb    *joint.Feedback
	fbOfs int
}

// solverContext is the step-local view over the arena. Every slice is
// allocated once by newSolverContext and shared by all chunk workers.
type solverContext struct {
	m  int
	nb int
	h  float64

	bodies []*rigid.Body

	invI      []float64
	inertia   []float64
	caccel    []float64
	caccelErp []float64
	cforce    []float64

	J       []float64
	JOrig   []float64
	JPrecon []float64
	iMJ     []float64
	Jcopy   []float64

	rhs       []float64
	rhsErp    []float64
	rhsPrecon []float64
	c         []float64
	cfm       []float64
	lo        []float64
	hi        []float64
	cvmax     []float64

	Ad          []float64
	AdPrecon    []float64
	Adcfm       []float64
	AdcfmPrecon []float64

	lambda    []float64
	lambdaErp []float64
	rowErr    []float64

	jb     []int
	findex []int
	order  []int
}

func newSolverContext(a *arena.Arena, bodies []*rigid.Body, m, mfb int, h float64) *solverContext {
	nb := len(bodies)
	ctx := &solverContext{m: m, nb: nb, h: h, bodies: bodies}

	ctx.invI = a.Float64s(matStride * nb)
	ctx.inertia = a.Float64s(matStride * nb)
	ctx.caccel = a.Float64s(bodyStride * nb)
	ctx.caccelErp = a.Float64s(bodyStride * nb)
	ctx.cforce = a.Float64s(bodyStride * nb)

	ctx.J = a.Float64s(rowStride * m)
	ctx.JOrig = a.Float64s(rowStride * m)
	ctx.JPrecon = a.Float64s(rowStride * m)
	ctx.iMJ = a.Float64s(rowStride * m)
	ctx.Jcopy = a.Float64s(rowStride * mfb)

	for _, s := range []*[]float64{
		&ctx.rhs, &ctx.rhsErp, &ctx.rhsPrecon,
		&ctx.c, &ctx.cfm, &ctx.lo, &ctx.hi, &ctx.cvmax,
		&ctx.Ad, &ctx.AdPrecon, &ctx.Adcfm, &ctx.AdcfmPrecon,
		&ctx.lambda, &ctx.lambdaErp, &ctx.rowErr,
	} {
		*s = a.Float64s(m)
	}

	ctx.jb = a.Ints(2 * m)
	ctx.findex = a.Ints(m)
	ctx.order = a.Ints(m)
	return ctx
}

// bodyRange returns the body-stride window of s for body b.
func bodyRange(s []float64, b int) []float64 {
	return s[b*bodyStride : (b+1)*bodyStride]
}

func rowRange(s []float64, i int) []float64 {
	return s[i*rowStride : (i+1)*rowStride]
}
