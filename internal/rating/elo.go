// Package rating implements standard Elo rating updates for ranked
// matches.
package rating

import "math"

const (
	// KFactor controls how far a single result moves a rating.
	KFactor = 32

	// DefaultRating is where every new bot starts.
	DefaultRating = 1000
)

// Expected returns the expected score of a player rated r1 against a
// player rated r2, in [0, 1].
func Expected(r1, r2 int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(r2-r1)/400.0))
}

// Apply computes the new ratings after a decisive result. Ratings move
// symmetrically: the winner gains exactly what the loser drops.
// Draws do not call Apply; an undecided match leaves ratings untouched.
func Apply(winner, loser int) (newWinner, newLoser int) {
	expected := Expected(winner, loser)
	delta := int(math.Round(KFactor * (1.0 - expected)))
	return winner + delta, loser - delta
}
