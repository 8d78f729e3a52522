package generator

import "math/rand"

// Rand is the random source behind every non-deterministic pick (template,
// intro/mood, hashtag, engagement counters). Tests substitute a deterministic
// sequence; production uses the process-wide source.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// systemRand delegates to math/rand's locked global source.
type systemRand struct{}

//nolint:gosec // G404: decorative feed randomness, not security sensitive
func (systemRand) Intn(n int) int { return rand.Intn(n) }

//nolint:gosec // G404: decorative feed randomness, not security sensitive
func (systemRand) Float64() float64 { return rand.Float64() }

// SystemRand returns the default process-wide random source.
func SystemRand() Rand { return systemRand{} }
