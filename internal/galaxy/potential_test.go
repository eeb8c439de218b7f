package galaxy

import (
	"math"
	"testing"

	"github.com/nsbh/kickmc/internal/dynamo"
)

func testParams() Parameters {
	return Parameters{
		Name:     "test host",
		Offset:   5.4,
		Mspiral:  7.1e9,
		Mbulge:   7.9e8,
		Mhalo:    2.4e11,
		Reff:     3.3,
		Distance: 1890,
	}
}

func TestEnclosedMassMonotonic(t *testing.T) {
	pot := NewPotential(testParams())

	prev := 0.0
	for r := 0.1; r < 100; r += 0.5 {
		m := pot.EnclosedMass(r)
		if m <= prev {
			t.Fatalf("EnclosedMass not monotonic at r=%.1f: %.3e <= %.3e", r, m, prev)
		}
		prev = m
	}

	if pot.EnclosedMass(0) != 0 {
		t.Errorf("EnclosedMass(0) = %g, want 0", pot.EnclosedMass(0))
	}
}

func TestCircularVelocity(t *testing.T) {
	pot := NewPotential(testParams())

	// A few-Msun*1e10 galaxy should circle at tens to a few hundred km/s
	// anywhere in the luminous body.
	for _, r := range []float64{0.5, 1, 3, 10} {
		v := pot.CircularVelocity(r)
		if v < 10 || v > 500 {
			t.Errorf("CircularVelocity(%g) = %.1f km/s, outside plausible range", r, v)
		}
	}
	if pot.CircularVelocity(0) != 0 {
		t.Errorf("CircularVelocity(0) = %g, want 0", pot.CircularVelocity(0))
	}
}

func TestAccelMatchesPotentialGradient(t *testing.T) {
	pot := NewPotential(testParams())

	for _, r := range []float64{0.5, 2, 8, 30} {
		h := 1e-5 * r
		dPhi := (pot.Phi(r+h) - pot.Phi(r-h)) / (2 * h)
		a := pot.Accel(dynamo.Vec3{r, 0, 0})

		// Radial acceleration is -dPhi/dr, pointing inward.
		if a[0] >= 0 {
			t.Errorf("Accel at r=%g not inward: %v", r, a)
		}
		rel := math.Abs(a[0]+dPhi) / math.Abs(dPhi)
		if rel > 1e-3 {
			t.Errorf("Accel/gradient mismatch at r=%g: accel %.6e, -dPhi/dr %.6e", r, a[0], -dPhi)
		}
	}
}

func TestFieldDeriveAndEnergy(t *testing.T) {
	pot := NewPotential(testParams())
	f := NewField(pot)

	// Circular orbit in the xy plane.
	r := 3.0
	vc := pot.CircularVelocity(r) * KmsToKpcGyr
	x := dynamo.State{r, 0, 0, 0, vc, 0}

	d := f.Derive(x, 0)
	if d[0] != 0 || d[1] != vc {
		t.Errorf("Derive velocity part wrong: %v", d[:3])
	}
	if d[3] >= 0 {
		t.Errorf("Derive acceleration not inward: %v", d[3:])
	}

	e := f.Energy(x)
	expected := 0.5*pot.CircularVelocity(r)*pot.CircularVelocity(r) + pot.Phi(r)
	if math.Abs(e-expected) > 1e-9*math.Abs(expected) {
		t.Errorf("Energy = %.6e, expected %.6e", e, expected)
	}
}

func TestOffsetConstraintMatches(t *testing.T) {
	c := OffsetConstraint{Offset: 5.4, Uncertainty: 0.3}

	tests := []struct {
		name  string
		rproj float64
		want  bool
	}{
		{"exact", 5.4, true},
		{"lower edge", 5.1, true},
		{"upper edge", 5.7, true},
		{"below", 5.0, false},
		{"above", 5.8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Matches(tt.rproj); got != tt.want {
				t.Errorf("Matches(%g) = %v, want %v", tt.rproj, got, tt.want)
			}
		})
	}
}

func TestParametersValidate(t *testing.T) {
	p := testParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	bad := testParams()
	bad.Reff = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero effective radius")
	}
}
