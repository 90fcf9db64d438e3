package game

import "strings"

// IsGuessCorrect reports whether a player guess names the session's secret
// disease. The disease comes in slug form (underscores between words).
//
// A guess matches when it equals the spaced slug directly, or when both
// sides resolve to the same canonical slug. A disease missing from the
// synonym table stands for itself, so its registered synonyms still match
// nothing else by accident.
func IsGuessCorrect(guess, disease string) bool {
	if guess == "" || disease == "" {
		return false
	}

	normGuess := NormalizeGuess(guess)
	normDisease := strings.ReplaceAll(strings.ToLower(disease), "_", " ")

	if normGuess == normDisease {
		return true
	}

	guessCanonical, ok := ResolveCanonical(normGuess)
	if !ok {
		return false
	}
	diseaseCanonical, ok := ResolveCanonical(normDisease)
	if !ok {
		diseaseCanonical = disease
	}
	return guessCanonical == diseaseCanonical
}
