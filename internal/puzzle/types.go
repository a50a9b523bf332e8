// apps/go-server/internal/puzzle/types.go
//
// Core type definitions for the Connections puzzle.
// Defines:
//   - ColorTag: hidden grouping identity of a word (one of four per session).
//   - Category: a themed set of exactly four words sharing a ColorTag.
//   - Word:     a single grid cell's mutable play state.
//   - Group:    a solved category, referencing the grid's own Word cells.
//   - Feedback: transient hint message with a tick countdown.

package puzzle

import (
	"fmt"
	"strings"
)

// ColorTag identifies the category a word belongs to.
// It is an identity, not a display color; renderers map tags to colors themselves.
type ColorTag int

const (
	Yellow ColorTag = iota
	Green
	Blue
	Orange
)

// Tags lists every ColorTag in difficulty order. A session holds exactly one category per tag.
var Tags = [...]ColorTag{Yellow, Green, Blue, Orange}

var tagNames = [...]string{"yellow", "green", "blue", "orange"}

// String returns the lowercase tag name ("yellow", "green", ...).
func (c ColorTag) String() string {
	if c < 0 || int(c) >= len(tagNames) {
		return fmt.Sprintf("tag(%d)", int(c))
	}
	return tagNames[c]
}

// Valid reports whether c is one of the four known tags.
func (c ColorTag) Valid() bool { return c >= 0 && int(c) < len(tagNames) }

// MarshalText encodes the tag by name so JSON payloads read "yellow" rather than 0.
func (c ColorTag) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("puzzle: unknown color tag %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (c *ColorTag) UnmarshalText(b []byte) error {
	t, err := ParseColorTag(string(b))
	if err != nil {
		return err
	}
	*c = t
	return nil
}

// ParseColorTag maps a case-insensitive tag name to its ColorTag.
func ParseColorTag(s string) (ColorTag, error) {
	for i, name := range tagNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return ColorTag(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown color tag %q", ErrConfiguration, s)
}

// Category is an immutable entry of the category pool.
type Category struct {
	Tag   ColorTag
	Words [GroupSize]string
}

// Word holds the play state of one grid cell.
type Word struct {
	Text     string   // Display text (uppercase in the default catalog).
	Tag      ColorTag // Hidden category identity.
	Selected bool     // Toggled by the player; cleared after every guess.
	Grouped  bool     // Permanently true once the word's category is solved.
}

// Group is a solved category. Members point at the session's own grid cells.
type Group struct {
	Tag     ColorTag
	Members [GroupSize]*Word
	Age     int // Remaining ticks of the "group found" banner; display only.
}

// Texts returns the member words' text in the order they were guessed.
func (g *Group) Texts() []string {
	out := make([]string, 0, GroupSize)
	for _, w := range g.Members {
		if w != nil {
			out = append(out, w.Text)
		}
	}
	return out
}

// Feedback is a transient message shown to the player until TTL reaches zero.
type Feedback struct {
	Message string
	TTL     int
}

// Visible reports whether the message should still be displayed.
func (f Feedback) Visible() bool { return f.TTL > 0 && f.Message != "" }
