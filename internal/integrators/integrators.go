// Package integrators provides fixed-step trajectory integrators over
// dynamo states.
package integrators

import (
	"fmt"

	"github.com/nsbh/kickmc/internal/dynamo"
)

// New returns a fresh integrator for name; the empty name selects RK4.
// Every caller gets its own instance: integrators carry scratch buffers
// and must not be shared across goroutines.
func New(name string) (dynamo.Integrator, error) {
	switch name {
	case "", "rk4":
		return NewRK4(), nil
	case "leapfrog":
		return NewLeapfrog(), nil
	}
	return nil, fmt.Errorf("unknown integrator %q (known: rk4, leapfrog)", name)
}
