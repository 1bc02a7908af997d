package joint

import (
	"math"

	"github.com/san-kum/quickstep/internal/rigid"
)

// Row is one literal constraint row for [Custom]. The zero Row has Findex 0
// and so couples to the joint's first row; build rows with [NewRow] or
// [FreeRow] unless that coupling is wanted.
type Row struct {
	J      [RowStride]float64
	C      float64
	CFM    float64
	Lo, Hi float64
	// Findex is local to the joint, -1 for none.
	Findex int
	// CVMax clips the retained bias when LimitBias is set.
	CVMax     float64
	LimitBias bool
}

// NewRow returns an uncoupled row bounded to [lo, hi].
func NewRow(j [RowStride]float64, c, lo, hi float64) Row {
	return Row{J: j, C: c, Lo: lo, Hi: hi, Findex: -1}
}

// FreeRow returns an unbounded, uncoupled row.
func FreeRow(j [RowStride]float64, c float64) Row {
	return Row{J: j, C: c, Lo: math.Inf(-1), Hi: math.Inf(1), Findex: -1}
}

// Custom exposes caller-assembled rows. Adapters that already compute their
// Jacobians elsewhere plug in through it.
type Custom struct {
	Base
	Rows []Row
	Nub  int
	// UseRowCFM replaces the world CFM with each row's CFM.
	UseRowCFM bool
}

func NewCustom(b1, b2 *rigid.Body, rows ...Row) *Custom {
	nub := 0
	for _, r := range rows {
		if math.IsInf(r.Lo, -1) && math.IsInf(r.Hi, 1) && r.Findex < 0 {
			nub++
		}
	}
	return &Custom{Base: Base{B1: b1, B2: b2}, Rows: rows, Nub: nub}
}

func (j *Custom) Info1() Info1 { return Info1{M: len(j.Rows), Nub: j.Nub} }

func (j *Custom) Info2(info *Info2) {
	for i, r := range j.Rows {
		copy(info.row(i), r.J[:])
		info.C[i] = r.C
		info.Lo[i] = r.Lo
		info.Hi[i] = r.Hi
		info.Findex[i] = r.Findex
		if j.UseRowCFM {
			info.CFM[i] = r.CFM
		}
		if r.LimitBias {
			info.CVMax[i] = r.CVMax
		}
	}
}
