package optimization

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Problem describes a bounded minimization for Minimize.
type Problem struct {
	// Objective is the function to minimize. It must be safe for concurrent
	// calls.
	Objective func(vec []float64) float64
	// Bounds gives the [lower, upper] box for each parameter.
	Bounds [][2]float64
	// PopSize is the population multiplier: the population holds
	// PopSize×len(Bounds) individuals.
	PopSize int
	// MaxGenerations caps the evolution when convergence is slow.
	MaxGenerations int
	// Tol and Atol define convergence: the search stops when the standard
	// deviation of the population's energies is at most
	// Atol + Tol×|mean energy|.
	Tol  float64
	Atol float64
	// Workers is the number of goroutines evaluating candidates.
	Workers int
	// Seed makes runs reproducible.
	Seed int64
}

// Result is the outcome of a Minimize run.
type Result struct {
	X           []float64
	Cost        float64
	Generations int
	Evaluations int
	Converged   bool
}

const (
	crossoverProb = 0.7
	mutationLow   = 0.5
	mutationHigh  = 1.0
)

// Minimize runs differential evolution (best1bin strategy) over the problem's
// bounds: candidates mutate around the current best with a mutation factor
// dithered per generation in [0.5, 1), crossover binomially, and replace
// their parents only between generations (deferred updating), which keeps the
// generation's evaluations independent and parallelizable.
func Minimize(p Problem) (*Result, error) {
	dims := len(p.Bounds)
	if dims == 0 {
		return nil, fmt.Errorf("no parameter bounds supplied")
	}
	if p.Objective == nil {
		return nil, fmt.Errorf("no objective supplied")
	}
	for i, b := range p.Bounds {
		if b[1] < b[0] {
			return nil, fmt.Errorf("bounds for parameter %d are inverted", i)
		}
	}
	np := p.PopSize * dims
	if np < 5 {
		np = 5
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	maxGens := p.MaxGenerations
	if maxGens < 1 {
		maxGens = 1000
	}

	rng := rand.New(rand.NewSource(p.Seed))

	// Random-uniform initial population within the bounds.
	pop := make([][]float64, np)
	for i := range pop {
		pop[i] = make([]float64, dims)
		for d, b := range p.Bounds {
			pop[i][d] = b[0] + rng.Float64()*(b[1]-b[0])
		}
	}
	energies := evalAll(p.Objective, pop, workers)
	evals := np
	bestIdx := floats.MinIdx(energies)

	result := &Result{}
	trials := make([][]float64, np)
	for i := range trials {
		trials[i] = make([]float64, dims)
	}

	for gen := 1; gen <= maxGens; gen++ {
		// Dither the mutation factor per generation.
		f := mutationLow + rng.Float64()*(mutationHigh-mutationLow)

		for i := range pop {
			r1, r2 := pickTwo(rng, np, i, bestIdx)
			forced := rng.Intn(dims)
			for d := range trials[i] {
				if d == forced || rng.Float64() < crossoverProb {
					v := pop[bestIdx][d] + f*(pop[r1][d]-pop[r2][d])
					b := p.Bounds[d]
					if v < b[0] {
						v = b[0]
					} else if v > b[1] {
						v = b[1]
					}
					trials[i][d] = v
				} else {
					trials[i][d] = pop[i][d]
				}
			}
		}

		trialEnergies := evalAll(p.Objective, trials, workers)
		evals += np

		// Deferred updating: replacements happen only after the whole
		// generation has been scored.
		for i := range pop {
			if trialEnergies[i] < energies[i] {
				copy(pop[i], trials[i])
				energies[i] = trialEnergies[i]
			}
		}
		bestIdx = floats.MinIdx(energies)
		result.Generations = gen

		mean, std := stat.MeanStdDev(energies, nil)
		if std <= p.Atol+p.Tol*math.Abs(mean) {
			result.Converged = true
			break
		}
	}

	result.X = append([]float64(nil), pop[bestIdx]...)
	result.Cost = energies[bestIdx]
	result.Evaluations = evals
	return result, nil
}

// pickTwo selects two distinct population indices, both different from i and
// best.
func pickTwo(rng *rand.Rand, np, i, best int) (int, int) {
	pick := func(exclude ...int) int {
	retry:
		for {
			c := rng.Intn(np)
			for _, e := range exclude {
				if c == e {
					continue retry
				}
			}
			return c
		}
	}
	r1 := pick(i, best)
	r2 := pick(i, best, r1)
	return r1, r2
}

// evalAll scores every candidate using a fixed pool of worker goroutines.
func evalAll(objective func([]float64) float64, candidates [][]float64, workers int) []float64 {
	out := make([]float64, len(candidates))
	if workers == 1 {
		for i, c := range candidates {
			out[i] = objective(c)
		}
		return out
	}

	jobs := make(chan int, len(candidates))
	for i := range candidates {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = objective(candidates[i])
			}
		}()
	}
	wg.Wait()
	return out
}
