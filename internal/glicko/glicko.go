// Package glicko implements the single-outcome Glicko-2 rating update
// used by the swipe feedback loop.
//
// Variables follow the conventions of Mark E. Glickman's paper
// (https://www.glicko.net/glicko/glicko2.pdf): mu/phi are the rating
// and deviation on the internal scale, sigma is the volatility.
package glicko

import "math"

const (
	// tau constrains how fast volatility can change.
	tau = 0.5
	// epsilon is the convergence tolerance of the volatility iteration.
	epsilon = 0.000001
	// scale converts between the public 1500-based scale and mu/phi.
	scale = 173.7178
)

// Default rating triple assigned to every new user.
const (
	DefaultRating     = 1500.0
	DefaultDeviation  = 350.0
	DefaultVolatility = 0.06
)

// Outcome values for a single pairwise result.
const (
	Loss = 0.0
	Win  = 1.0
)

// Rating is a Glicko-2 triple on the public scale.
type Rating struct {
	Rating     float64
	Deviation  float64
	Volatility float64
}

// NewDefaultRating returns the standard starting triple.
func NewDefaultRating() Rating {
	return Rating{Rating: DefaultRating, Deviation: DefaultDeviation, Volatility: DefaultVolatility}
}

// Update returns the player's triple after a single game against
// opponent with the given outcome (Win or Loss). Inputs are not
// mutated; the result is finite for finite, well-formed inputs.
func Update(player, opponent Rating, outcome float64) Rating {
	// Step 2: convert to the Glicko-2 scale.
	mu := (player.Rating - 1500) / scale
	phi := player.Deviation / scale
	sigma := player.Volatility

	muJ := (opponent.Rating - 1500) / scale
	phiJ := opponent.Deviation / scale

	// Step 3: estimated variance from the single outcome.
	gPhiJ := g(phiJ)
	e := expectedScore(mu, muJ, gPhiJ)
	v := 1 / (gPhiJ * gPhiJ * e * (1 - e))

	// Step 4: estimated improvement.
	delta := v * gPhiJ * (outcome - e)

	// Step 5: new volatility via the Illinois-variant root finder.
	sigmaPrime := solveVolatility(sigma, delta, phi, v)

	// Step 6: pre-update deviation.
	phiStar := math.Sqrt(phi*phi + sigmaPrime*sigmaPrime)

	// Step 7: post-update deviation and mean.
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*gPhiJ*(outcome-e)

	// Step 8: back to the public scale.
	return Rating{
		Rating:     muPrime*scale + 1500,
		Deviation:  phiPrime * scale,
		Volatility: sigmaPrime,
	}
}

// g weights an opponent's result by their rating deviation.
func g(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

// expectedScore is E(mu, muJ, phiJ) with g(phiJ) precomputed.
func expectedScore(mu, muJ, gPhiJ float64) float64 {
	return 1 / (1 + math.Exp(-gPhiJ*(mu-muJ)))
}

// f is the volatility objective from the paper.
func f(x, delta, phi, v, a float64) float64 {
	ex := math.Exp(x)
	phi2 := phi * phi
	num1 := ex * (delta*delta - phi2 - v - ex)
	den1 := 2 * (phi2 + v + ex) * (phi2 + v + ex)
	return num1/den1 - (x-a)/(tau*tau)
}

// solveVolatility finds sigma' as the root of f, bracketing first and
// then iterating with the Illinois variant (halving fA on a retained
// endpoint) until the bracket is narrower than epsilon.
func solveVolatility(sigma, delta, phi, v float64) float64 {
	a := math.Log(sigma * sigma)
	A := a

	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau, delta, phi, v, a) < 0 {
			k++
		}
		B = a - k*tau
	}

	fA := f(A, delta, phi, v, a)
	fB := f(B, delta, phi, v, a)

	for math.Abs(B-A) > epsilon {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C, delta, phi, v, a)

		if fC*fB < 0 {
			A = B
			fA = fB
		} else {
			fA = fA / 2
		}

		B = C
		fB = fC
	}

	return math.Exp(A / 2)
}
