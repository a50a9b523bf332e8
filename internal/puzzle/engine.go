// apps/go-server/internal/puzzle/engine.go
//
// Guess evaluation over the currently selected words.
// Evaluation is pure: it triages by selection size and reports what the
// session should do, but never mutates words, tries or groups itself.
//
//   - fewer than 3 selected → clear any hint.
//   - exactly 3 selected    → hint when all three share a tag.
//   - exactly 4 selected    → a guess; correct when all four share a tag.

package puzzle

const (
	GridSize  = 16 // words on the board
	GroupSize = 4  // words per category
	MaxTries  = 4  // wrong guesses allowed per session

	HintMessage = "Close! 3 of 4 words match a category"
	HintTTL     = 60 // ticks the partial-match hint stays visible
	BannerTicks = 60 // ticks a freshly found group is announced
)

// Verdict is the outcome class of an evaluation.
type Verdict int

const (
	// VerdictClear: too few words selected for any signal; drop the current hint.
	VerdictClear Verdict = iota
	// VerdictNone: three words selected without a common tag; leave feedback as is.
	VerdictNone
	// VerdictHint: three selected words share a tag.
	VerdictHint
	// VerdictGuess: four words selected; Correct carries the result.
	VerdictGuess
)

// Evaluation is the result of Evaluate.
type Evaluation struct {
	Verdict Verdict
	Correct bool
}

// Evaluate triages the selected words.
func Evaluate(selected []*Word) Evaluation {
	switch n := len(selected); {
	case n == GroupSize:
		return Evaluation{Verdict: VerdictGuess, Correct: CheckCategory(selected)}
	case n == GroupSize-1:
		if partialMatch(selected) {
			return Evaluation{Verdict: VerdictHint}
		}
		return Evaluation{Verdict: VerdictNone}
	case n < GroupSize-1:
		return Evaluation{Verdict: VerdictClear}
	}
	// More than four selected cannot be reached through Toggle: the fourth
	// selection always submits and clears the board.
	return Evaluation{Verdict: VerdictNone}
}

// CheckCategory reports whether every word shares one tag. Empty input is never a match.
func CheckCategory(words []*Word) bool {
	if len(words) == 0 {
		return false
	}
	want := words[0].Tag
	for _, w := range words[1:] {
		if w.Tag != want {
			return false
		}
	}
	return true
}

// partialMatch reports whether exactly three of the selection share a tag.
func partialMatch(selected []*Word) bool {
	var counts [len(Tags)]int
	for _, w := range selected {
		if w.Tag.Valid() {
			counts[w.Tag]++
		}
	}
	for _, c := range counts {
		if c == GroupSize-1 {
			return true
		}
	}
	return false
}
