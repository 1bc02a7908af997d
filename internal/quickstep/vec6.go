package quickstep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/joint"
)

const (
	rowStride  = joint.RowStride
	bodyStride = 6
	matStride  = 9
)

func dot6(a, b []float64) float64 {
	_, _ = a[5], b[5]
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3] + a[4]*b[4] + a[5]*b[5]
}

// addScaled6 computes dst += s*src.
func addScaled6(dst, src []float64, s float64) {
	_, _ = dst[5], src[5]
	dst[0] += s * src[0]
	dst[1] += s * src[1]
	dst[2] += s * src[2]
	dst[3] += s * src[3]
	dst[4] += s * src[4]
	dst[5] += s * src[5]
}

func vec3(s []float64) mgl64.Vec3 { return mgl64.Vec3{s[0], s[1], s[2]} }

func put3(dst []float64, v mgl64.Vec3) { copy(dst[:3], v[:]) }

func mat3At(s []float64, i int) mgl64.Mat3 {
	return mgl64.Mat3(s[i*matStride : (i+1)*matStride])
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// clipBias limits |c| to cvmax.
func clipBias(c, cvmax float64) float64 {
	if math.IsInf(cvmax, 1) {
		return c
	}
	return clamp(c, -cvmax, cvmax)
}

// frictionBound returns |hi * coupled|, treating a zero coupled multiplier as
// a zero bound even for unbounded hi.
func frictionBound(hi, coupled float64) float64 {
	if coupled == 0 {
		return 0
	}
	return math.Abs(hi * coupled)
}
