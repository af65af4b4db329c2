// Package staircase implements a Bayesian adaptive threshold estimator in
// the QUEST family: a discretized posterior over a threshold parameter,
// updated after each binary (hit/miss) response, used to pick the next
// target-display intensity that drives a subject's hit rate toward a
// configured target probability.
package staircase

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// gridSize is the number of discretization points across [minVal, maxVal]
	// used to represent the posterior over the threshold.
	gridSize = 241

	// slope controls the steepness of the underlying psychometric function.
	// Matches the general shape of a Weibull/probit psychometric function
	// used by QUEST-family procedures; larger values produce a sharper
	// transition around threshold.
	slope = 3.5
)

// response records one observed (intensity, hit) pair, forming the
// monotone history required by the data model.
type response struct {
	intensity float64
	hit       bool
}

// Staircase is one independent Bayesian threshold estimator. It is not
// safe for concurrent use; the pool serializes access per accuracy level.
type Staircase struct {
	name        string
	pThreshold  float64
	gamma       float64
	minVal      float64
	maxVal      float64
	budget      int
	trialN      int
	grid        []float64 // candidate threshold values
	posterior   []float64 // unnormalized posterior mass per grid point
	history     []response
	probitShift float64 // offset so that p(x=t) == pThreshold
	exhausted   bool
}

// Config parameterizes a new Staircase. StartVal and StartValSD are the
// prior mean and SD over the threshold (seconds above the floor);
// PThreshold is the target hit-rate asymptote (e.g. 0.80); Gamma is the
// guess rate; NTrials is the configured trial budget for this accuracy
// level; MinVal/MaxVal bound both the threshold grid and the returned
// intensity.
type Config struct {
	Name       string
	StartVal   float64
	StartValSD float64
	PThreshold float64
	Gamma      float64
	NTrials    int
	MinVal     float64
	MaxVal     float64
}

// New constructs a Staircase from cfg, seeding the posterior with a
// Normal(StartVal, StartValSD) prior discretized over the threshold grid.
func New(cfg Config) *Staircase {
	s := &Staircase{
		name:       cfg.Name,
		pThreshold: cfg.PThreshold,
		gamma:      cfg.Gamma,
		minVal:     cfg.MinVal,
		maxVal:     cfg.MaxVal,
		budget:     cfg.NTrials,
		grid:       make([]float64, gridSize),
		posterior:  make([]float64, gridSize),
	}

	s.probitShift = distuv.UnitNormal.Quantile(clamp01((cfg.PThreshold - cfg.Gamma) / (1 - cfg.Gamma)))

	prior := distuv.Normal{Mu: cfg.StartVal, Sigma: math.Max(cfg.StartValSD, 1e-6)}
	step := (cfg.MaxVal - cfg.MinVal) / float64(gridSize-1)
	var total float64
	for i := range s.grid {
		x := cfg.MinVal + step*float64(i)
		s.grid[i] = x
		mass := prior.Prob(x)
		s.posterior[i] = mass
		total += mass
	}
	s.normalize(total)
	return s
}

// Name returns the staircase's accuracy-level name ("high"/"medium"/"low").
func (s *Staircase) Name() string { return s.name }

// psiHit returns the probability of a hit at presented intensity x given
// candidate threshold t, under a shifted-probit psychometric function
// constructed so that psiHit(t, t) == pThreshold exactly.
func (s *Staircase) psiHit(x, t float64) float64 {
	z := slope*(x-t) + s.probitShift
	return s.gamma + (1-s.gamma)*distuv.UnitNormal.CDF(z)
}

// NextIntensity returns the current posterior mode, clipped into
// [MinVal, MaxVal]. Per the pool contract, it does not mutate state beyond
// reading the posterior.
func (s *Staircase) NextIntensity() float64 {
	best := 0
	for i := 1; i < len(s.posterior); i++ {
		if s.posterior[i] > s.posterior[best] {
			best = i
		}
	}
	return clamp(s.grid[best], s.minVal, s.maxVal)
}

// AddResponse updates the posterior given a response (hit/miss) at the
// most recently sampled intensity. If the configured trial budget has
// already been exhausted, the posterior is frozen (StaircaseExhausted,
// §7): the staircase keeps serving its last intensity without further
// updates, and exhausted trials are simply not folded into history.
func (s *Staircase) AddResponse(intensity float64, hit bool) {
	s.trialN++
	if s.budget > 0 && s.trialN > s.budget {
		s.exhausted = true
		return
	}

	s.history = append(s.history, response{intensity: intensity, hit: hit})

	var total float64
	for i, t := range s.grid {
		p := s.psiHit(intensity, t)
		var likelihood float64
		if hit {
			likelihood = p
		} else {
			likelihood = 1 - p
		}
		s.posterior[i] *= likelihood
		total += s.posterior[i]
	}
	s.normalize(total)
}

// Exhausted reports whether this staircase has received more AddResponse
// calls than its configured trial budget.
func (s *Staircase) Exhausted() bool { return s.exhausted }

// TrialN returns the 1-based count of responses submitted so far
// (including any past the budget).
func (s *Staircase) TrialN() int { return s.trialN }

// PosteriorSD returns the standard deviation of the current posterior
// over the threshold, used as a step-size proxy in the trial record.
func (s *Staircase) PosteriorSD() float64 {
	mean := s.posteriorMean()
	var variance float64
	for i, t := range s.grid {
		d := t - mean
		variance += s.posterior[i] * d * d
	}
	return math.Sqrt(variance)
}

func (s *Staircase) posteriorMean() float64 {
	var mean float64
	for i, t := range s.grid {
		mean += s.posterior[i] * t
	}
	return mean
}

func (s *Staircase) normalize(total float64) {
	if total <= 0 {
		// Degenerate posterior (numerical underflow): fall back to a flat
		// distribution rather than dividing by zero.
		flat := 1.0 / float64(len(s.posterior))
		for i := range s.posterior {
			s.posterior[i] = flat
		}
		return
	}
	for i := range s.posterior {
		s.posterior[i] /= total
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 1e-6, 1-1e-6) }
