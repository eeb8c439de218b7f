package binary

import "math"

// petersCoeff is (5/256) c^5 Rsun^4 / (G^3 Msun^3) expressed in Gyr, so
// that MergerTime works directly in Rsun and Msun.
const petersCoeff = 0.1506

// MergerTime is the gravitational-wave inspiral time in Gyr for a binary
// with semi-major axis a (Rsun), eccentricity e and component masses m1,
// m2 (Msun), using the Peters (1964) circular formula with the
// (1-e^2)^{7/2} eccentricity correction.
func MergerTime(a, e, m1, m2 float64) float64 {
	oneMinusE2 := 1 - e*e
	if oneMinusE2 <= 0 {
		return 0
	}
	return petersCoeff * math.Pow(a, 4) * math.Pow(oneMinusE2, 3.5) /
		(m1 * m2 * (m1 + m2))
}
