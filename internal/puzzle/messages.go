package puzzle

// Result messages for finished sessions, indexed by tries used minus one.
var winMessages = [...]string{
	"Perfect! You solved it in 1 try!",
	"Great! You solved it in 2 tries!",
	"Good job! You solved it in 3 tries!",
	"You solved it in 4 tries!",
}

const (
	GenericWinMessage = "You solved it!"
	LossMessage       = "Game Over! Try again!"
)

// WinMessage maps the try a win occurred on to its message tier.
// Out-of-range values fall back to GenericWinMessage.
func WinMessage(triesUsed int) string {
	if triesUsed > 0 && triesUsed <= len(winMessages) {
		return winMessages[triesUsed-1]
	}
	return GenericWinMessage
}

// ResultMessage returns the end-of-game line for s, or "" while playing.
func ResultMessage(s *Session) string {
	switch {
	case !s.GameOver():
		return ""
	case s.Won():
		return WinMessage(s.TriesUsedOnWin())
	default:
		return LossMessage
	}
}
