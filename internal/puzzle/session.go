// apps/go-server/internal/puzzle/session.go
//
// Session is the puzzle state machine for one playthrough.
// States: playing → won/lost. Only Reset returns a finished session to playing.
//
// A session is driven by one actor at a time (a host loop or a request
// holding the store's session lock); it does no locking of its own.
//
// State transitions:
//   - Four words sharing a tag → they become a Group; all 16 grouped → won.
//   - Four words not sharing a tag → one try lost; zero tries left → lost.
//   - Every four-word submission clears all selections.

package puzzle

// Session holds the state of a single game.
type Session struct {
	ID string // Stable across Reset so clients keep their handle.

	pool []Category
	rng  Rand

	grid      []*Word
	triesLeft int
	groups    []*Group
	gameOver  bool
	won       bool
	feedback  Feedback
}

// rebuild deals a new board and restores the initial counters.
func (s *Session) rebuild() error {
	cats, err := Pick(s.pool, s.rng)
	if err != nil {
		return err
	}
	s.grid = deal(cats, s.rng)
	s.triesLeft = MaxTries
	s.groups = nil
	s.gameOver, s.won = false, false
	s.feedback = Feedback{}
	return nil
}

// Reset discards the current board and deals a new one in place.
func (s *Session) Reset() error { return s.rebuild() }

// ResetWith is Reset with a replacement random source.
func (s *Session) ResetWith(rng Rand) error {
	s.rng = rng
	return s.rebuild()
}

// Toggle flips selection of the word at index and evaluates the selection.
// Grouped words and finished sessions ignore the toggle.
func (s *Session) Toggle(index int) error {
	if index < 0 || index >= len(s.grid) {
		return ErrInvalidIndex
	}
	if s.gameOver {
		return nil
	}
	w := s.grid[index]
	if w.Grouped {
		return nil
	}
	w.Selected = !w.Selected
	s.evaluate()
	return nil
}

// evaluate applies the engine's verdict on the current selection.
func (s *Session) evaluate() {
	sel := s.Selected()
	ev := Evaluate(sel)
	switch ev.Verdict {
	case VerdictClear:
		s.feedback = Feedback{}
	case VerdictHint:
		s.feedback = Feedback{Message: HintMessage, TTL: HintTTL}
	case VerdictGuess:
		s.feedback = Feedback{}
		s.ProcessGuess(sel, ev.Correct)
	}
}

// ProcessGuess applies a four-word submission.
// A correct verdict only forms a group from GroupSize loose words sharing one
// tag; anything else leaves groups and tries untouched.
func (s *Session) ProcessGuess(selected []*Word, correct bool) {
	if s.gameOver {
		return
	}
	if correct {
		if s.groupable(selected) {
			g := &Group{Tag: selected[0].Tag, Age: BannerTicks}
			copy(g.Members[:], selected)
			s.groups = append(s.groups, g)
			for _, w := range selected {
				w.Grouped = true
			}
			if s.allGrouped() {
				s.finish(true)
			}
		}
	} else {
		if s.triesLeft > 0 {
			s.triesLeft--
		}
		if s.triesLeft <= 0 {
			s.finish(false)
		}
	}
	s.clearSelection()
}

// groupable reports whether selected can become the next found group.
func (s *Session) groupable(selected []*Word) bool {
	if len(selected) != GroupSize || len(s.groups) >= len(Tags) {
		return false
	}
	for _, w := range selected {
		if w.Grouped {
			return false
		}
	}
	return CheckCategory(selected)
}

func (s *Session) allGrouped() bool {
	for _, w := range s.grid {
		if !w.Grouped {
			return false
		}
	}
	return true
}

func (s *Session) finish(won bool) {
	s.gameOver = true
	s.won = won
}

// Shuffle keeps grouped words first in their current order and shuffles the rest.
func (s *Session) Shuffle() {
	if s.gameOver {
		return
	}
	grouped := make([]*Word, 0, len(s.grid))
	var loose []*Word
	for _, w := range s.grid {
		if w.Grouped {
			grouped = append(grouped, w)
		} else {
			loose = append(loose, w)
		}
	}
	s.rng.Shuffle(len(loose), func(i, j int) { loose[i], loose[j] = loose[j], loose[i] })
	s.grid = append(grouped, loose...)
	s.DeselectAll()
}

// DeselectAll clears every selection and the hint.
func (s *Session) DeselectAll() {
	if s.gameOver {
		return
	}
	s.clearSelection()
	s.feedback = Feedback{}
}

func (s *Session) clearSelection() {
	for _, w := range s.grid {
		w.Selected = false
	}
}

// Tick advances the display timers by one unit.
func (s *Session) Tick() {
	if s.feedback.TTL > 0 {
		s.feedback.TTL--
		if s.feedback.TTL == 0 {
			s.feedback.Message = ""
		}
	}
	for _, g := range s.groups {
		if g.Age > 0 {
			g.Age--
		}
	}
}

// ----------------------------- accessors -----------------------------------

// Selected returns the currently selected words in grid order.
func (s *Session) Selected() []*Word {
	var out []*Word
	for _, w := range s.grid {
		if w.Selected {
			out = append(out, w)
		}
	}
	return out
}

// Grid returns a copy of the board in display order.
func (s *Session) Grid() []Word {
	out := make([]Word, len(s.grid))
	for i, w := range s.grid {
		out[i] = *w
	}
	return out
}

// Groups returns the solved groups in the order they were found.
func (s *Session) Groups() []Group {
	out := make([]Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = *g
	}
	return out
}

func (s *Session) TriesLeft() int     { return s.triesLeft }
func (s *Session) GameOver() bool     { return s.gameOver }
func (s *Session) Won() bool          { return s.gameOver && s.won }
func (s *Session) Feedback() Feedback { return s.feedback }

// TriesUsedOnWin reports the try on which the puzzle was solved (1..MaxTries),
// or 0 if the session has not been won.
func (s *Session) TriesUsedOnWin() int {
	if !s.Won() {
		return 0
	}
	return MaxTries - s.triesLeft + 1
}

// Mistakes is the number of wrong guesses made so far.
func (s *Session) Mistakes() int { return MaxTries - s.triesLeft }

// State reports a coarse string representation: "playing", "won" or "lost".
func (s *Session) State() string {
	if s.gameOver {
		if s.won {
			return "won"
		}
		return "lost"
	}
	return "playing"
}
