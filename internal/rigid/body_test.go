package rigid

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewSphereMass(t *testing.T) {
	b := NewSphere(2.0, 0.5, mgl64.Vec3{})

	if math.Abs(b.InvMass-0.5) > 1e-12 {
		t.Errorf("expected inverse mass 0.5, got %f", b.InvMass)
	}
	want := 0.4 * 2.0 * 0.25
	if math.Abs(b.Inertia.At(0, 0)-want) > 1e-12 {
		t.Errorf("expected inertia %f, got %f", want, b.Inertia.At(0, 0))
	}
	if math.Abs(b.InvInertia.At(1, 1)-1/want) > 1e-9 {
		t.Errorf("expected inverse inertia %f, got %f", 1/want, b.InvInertia.At(1, 1))
	}
	if b.Tag != -1 {
		t.Errorf("expected untagged body, got tag %d", b.Tag)
	}
}

func TestStaticBody(t *testing.T) {
	b := NewStatic(mgl64.Vec3{1, 2, 3})
	if !b.IsStatic() {
		t.Fatal("expected static body")
	}
	if !math.IsInf(b.Mass(), 1) {
		t.Errorf("expected infinite mass, got %f", b.Mass())
	}

	b.LinVel = mgl64.Vec3{1, 0, 0}
	b.Advance(1)
	if b.Pos != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("static body moved to %v", b.Pos)
	}
	if b.KineticEnergy() != 0 {
		t.Error("static body should carry no kinetic energy")
	}
}

func TestWorldInverseInertiaRotated(t *testing.T) {
	b := NewBox(1.0, 2.0, 1.0, 1.0, mgl64.Vec3{})
	b.Rot = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	// a quarter turn about z swaps the x and y principal axes
	w := b.WorldInverseInertia()
	if math.Abs(w.At(0, 0)-b.InvInertia.At(1, 1)) > 1e-9 {
		t.Errorf("expected %f, got %f", b.InvInertia.At(1, 1), w.At(0, 0))
	}
	if math.Abs(w.At(1, 1)-b.InvInertia.At(0, 0)) > 1e-9 {
		t.Errorf("expected %f, got %f", b.InvInertia.At(0, 0), w.At(1, 1))
	}

	prod := w.Mul3(b.WorldInertia())
	ident := mgl64.Ident3()
	for i := 0; i < 9; i++ {
		if math.Abs(prod[i]-ident[i]) > 1e-9 {
			t.Fatalf("I * I^-1 not identity: %v", prod)
		}
	}
}

func TestAdvanceLinear(t *testing.T) {
	b := NewSphere(1, 1, mgl64.Vec3{})
	b.LinVel = mgl64.Vec3{1, -2, 0.5}
	b.Advance(0.1)

	want := mgl64.Vec3{0.1, -0.2, 0.05}
	if !b.Pos.ApproxEqualThreshold(want, 1e-12) {
		t.Errorf("expected %v, got %v", want, b.Pos)
	}
}

func TestAdvanceKeepsUnitQuaternion(t *testing.T) {
	b := NewSphere(1, 1, mgl64.Vec3{})
	b.AngVel = mgl64.Vec3{0, 0, 3}
	for i := 0; i < 100; i++ {
		b.Advance(0.01)
	}
	if math.Abs(b.Rot.Len()-1) > 1e-9 {
		t.Errorf("expected unit quaternion, got length %f", b.Rot.Len())
	}

	// roughly 3 rad about z
	fwd := b.WorldVector(mgl64.Vec3{1, 0, 0})
	angle := math.Atan2(fwd[1], fwd[0])
	if math.Abs(angle-3.0) > 0.05 {
		t.Errorf("expected rotation ~3.0 rad, got %f", angle)
	}
}

func TestPointFrames(t *testing.T) {
	b := NewSphere(1, 1, mgl64.Vec3{1, 0, 0})
	b.Rot = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	p := b.WorldPoint(mgl64.Vec3{1, 0, 0})
	if !p.ApproxEqualThreshold(mgl64.Vec3{1, 1, 0}, 1e-9) {
		t.Errorf("expected (1,1,0), got %v", p)
	}
	back := b.LocalPoint(p)
	if !back.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("expected round trip to (1,0,0), got %v", back)
	}
}

func TestPointVelocity(t *testing.T) {
	b := NewSphere(1, 1, mgl64.Vec3{})
	b.AngVel = mgl64.Vec3{0, 0, 2}
	v := b.PointVelocity(mgl64.Vec3{1, 0, 0})
	if !v.ApproxEqualThreshold(mgl64.Vec3{0, 2, 0}, 1e-12) {
		t.Errorf("expected (0,2,0), got %v", v)
	}
}

func TestAccumulators(t *testing.T) {
	b := NewSphere(1, 1, mgl64.Vec3{})
	b.AddForceAt(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0})
	b.AddForce(mgl64.Vec3{1, 0, 0})

	if b.Force != (mgl64.Vec3{1, 1, 0}) {
		t.Errorf("unexpected force %v", b.Force)
	}
	if b.Torque != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("unexpected torque %v", b.Torque)
	}
	b.ClearAccumulators()
	if b.Force != (mgl64.Vec3{}) || b.Torque != (mgl64.Vec3{}) {
		t.Error("expected cleared accumulators")
	}
}

func TestIsValid(t *testing.T) {
	b := NewSphere(1, 1, mgl64.Vec3{})
	if !b.IsValid() {
		t.Fatal("fresh body should be valid")
	}
	b.LinVel[1] = math.NaN()
	if b.IsValid() {
		t.Error("NaN velocity should be invalid")
	}
}
