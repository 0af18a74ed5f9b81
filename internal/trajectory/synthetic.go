package trajectory

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// SyntheticGenerator produces random-walk trajectories for demos and tests.
// Output is deterministic for a given seed.
type SyntheticGenerator struct {
	// Configuration
	TrackCount     int     // number of walkers
	FrameCount     int     // number of time steps
	TimeStep       float64 // seconds between steps
	StepSize       float64 // standard deviation of each displacement component
	GapProbability float64 // chance a walker is absent from a step
	RadiusMin      float64
	RadiusMax      float64
	AreaRadius     float64 // walkers start uniformly inside this sphere

	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator with the walker simulator's
// usual scale.
func NewSyntheticGenerator(seed int64) *SyntheticGenerator {
	return &SyntheticGenerator{
		TrackCount:     20,
		FrameCount:     100,
		TimeStep:       0.1,
		StepSize:       0.3,
		GapProbability: 0.05,
		RadiusMin:      0.5,
		RadiusMax:      3.0,
		AreaRadius:     10.0,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// Generate returns samples ordered by time then track id. Every walker is
// present in the first step so each track has at least one sample.
func (g *SyntheticGenerator) Generate() []Sample {
	type walker struct {
		pos    r3.Vec
		radius float64
		age    float64
	}

	walkers := make([]walker, g.TrackCount)
	for i := range walkers {
		walkers[i] = walker{
			pos:    g.randomInSphere(),
			radius: g.RadiusMin + g.rng.Float64()*(g.RadiusMax-g.RadiusMin),
		}
	}

	samples := make([]Sample, 0, g.TrackCount*g.FrameCount)
	for f := 0; f < g.FrameCount; f++ {
		t := float64(f) * g.TimeStep
		for id := range walkers {
			w := &walkers[id]
			step := r3.Vec{X: g.rng.NormFloat64(), Y: g.rng.NormFloat64(), Z: g.rng.NormFloat64()}
			w.pos = r3.Add(w.pos, r3.Scale(g.StepSize, step))
			w.age += g.TimeStep

			if f > 0 && g.rng.Float64() < g.GapProbability {
				continue
			}
			samples = append(samples, Sample{
				TrackID:  id,
				Time:     t,
				Position: w.pos,
				Radius:   w.radius,
				Duration: w.age,
			})
		}
	}
	return samples
}

// Dataset generates samples and indexes them.
func (g *SyntheticGenerator) Dataset(name string) (*Dataset, error) {
	return NewDataset(name, g.Generate())
}

// randomInSphere samples uniformly inside the ball of radius AreaRadius.
func (g *SyntheticGenerator) randomInSphere() r3.Vec {
	dir := r3.Unit(r3.Vec{X: g.rng.NormFloat64(), Y: g.rng.NormFloat64(), Z: g.rng.NormFloat64()})
	r := g.AreaRadius * math.Cbrt(g.rng.Float64())
	return r3.Scale(r, dir)
}
