package mixscape

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"perturbscope/domain/core"
)

// minSigma floors component standard deviations to keep the likelihood
// finite when a component collapses onto identical scores.
const minSigma = 1e-4

// Mixture is a fitted two-component 1-D Gaussian mixture. Component 1
// models the no-phenotype (NP) population, component 2 the knockout (KO)
// population.
type Mixture struct {
	Mu1, Sigma1 float64
	Mu2, Sigma2 float64
	// Weight is the mixing proportion of component 2.
	Weight float64
}

// FitTwoComponent fits the mixture to scores by expectation-maximization
// starting from init, and returns the fitted mixture together with the
// per-score posterior probability of component 2 membership. EM on a
// fixed initialization is deterministic.
func FitTwoComponent(scores []float64, init Mixture, maxIter int, tol float64) (Mixture, []float64, error) {
	if len(scores) < 4 {
		return Mixture{}, nil, core.ErrDegenerateFit
	}

	m := init
	if m.Sigma1 < minSigma {
		m.Sigma1 = minSigma
	}
	if m.Sigma2 < minSigma {
		m.Sigma2 = minSigma
	}
	if m.Weight <= 0 || m.Weight >= 1 {
		m.Weight = 0.5
	}

	post := make([]float64, len(scores))
	prevLL := math.Inf(-1)

	for iter := 0; iter < maxIter; iter++ {
		d1 := distuv.Normal{Mu: m.Mu1, Sigma: m.Sigma1}
		d2 := distuv.Normal{Mu: m.Mu2, Sigma: m.Sigma2}

		// E-step
		ll := 0.0
		for i, s := range scores {
			p1 := (1 - m.Weight) * d1.Prob(s)
			p2 := m.Weight * d2.Prob(s)
			total := p1 + p2
			if total <= 0 {
				// Both densities underflow: assign by distance to the means.
				if math.Abs(s-m.Mu2) < math.Abs(s-m.Mu1) {
					post[i] = 1
				} else {
					post[i] = 0
				}
				continue
			}
			post[i] = p2 / total
			ll += math.Log(total)
		}

		// M-step
		w2 := 0.0
		for _, p := range post {
			w2 += p
		}
		w1 := float64(len(scores)) - w2
		if w1 < 1e-10 || w2 < 1e-10 {
			// One component swallowed everything.
			m.Weight = w2 / float64(len(scores))
			break
		}

		mu1, mu2 := 0.0, 0.0
		for i, s := range scores {
			mu1 += (1 - post[i]) * s
			mu2 += post[i] * s
		}
		mu1 /= w1
		mu2 /= w2

		var1, var2 := 0.0, 0.0
		for i, s := range scores {
			var1 += (1 - post[i]) * (s - mu1) * (s - mu1)
			var2 += post[i] * (s - mu2) * (s - mu2)
		}
		m.Mu1 = mu1
		m.Mu2 = mu2
		m.Sigma1 = math.Max(math.Sqrt(var1/w1), minSigma)
		m.Sigma2 = math.Max(math.Sqrt(var2/w2), minSigma)
		m.Weight = w2 / float64(len(scores))

		if ll-prevLL < tol && iter > 0 {
			break
		}
		prevLL = ll
	}

	// Final posteriors under the converged parameters.
	d1 := distuv.Normal{Mu: m.Mu1, Sigma: m.Sigma1}
	d2 := distuv.Normal{Mu: m.Mu2, Sigma: m.Sigma2}
	for i, s := range scores {
		p1 := (1 - m.Weight) * d1.Prob(s)
		p2 := m.Weight * d2.Prob(s)
		total := p1 + p2
		if total <= 0 {
			if math.Abs(s-m.Mu2) < math.Abs(s-m.Mu1) {
				post[i] = 1
			} else {
				post[i] = 0
			}
			continue
		}
		post[i] = p2 / total
	}

	return m, post, nil
}

// InitFromGroups seeds the mixture from the control and perturbed score
// distributions: component 1 on the control moments, component 2 on the
// perturbed moments. When the two means coincide the jitter separates the
// starting points so EM does not start on a saddle.
func InitFromGroups(controlScores, perturbedScores []float64, jitter float64) Mixture {
	mu1, sd1 := stat.MeanStdDev(controlScores, nil)
	mu2, sd2 := stat.MeanStdDev(perturbedScores, nil)
	if math.IsNaN(sd1) {
		sd1 = minSigma
	}
	if math.IsNaN(sd2) {
		sd2 = minSigma
	}
	if math.Abs(mu2-mu1) < 1e-12 {
		mu2 += jitter
	}
	return Mixture{Mu1: mu1, Sigma1: sd1, Mu2: mu2, Sigma2: sd2, Weight: 0.5}
}
