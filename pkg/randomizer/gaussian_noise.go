package randomizer

import "math"

// minUniform keeps log(u1) finite in the Box-Muller transform
const minUniform = 1e-12

// Gaussian draws a standard normal value from src using the Box-Muller
// transform. It consumes exactly two uniform values.
func Gaussian(src Source) float64 {
	u1 := math.Max(minUniform, src.Float64())
	u2 := src.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
