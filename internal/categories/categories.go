// apps/go-server/internal/categories/categories.go
//
// Category pool management for the puzzle builder.
//
// Responsibilities:
//   - Load the catalog from CATEGORIES_FILE or fall back to the embedded default.
//   - Validate every entry (known tag, four distinct non-empty words) and
//     that each tag has at least one category.
//   - Expose the read-only pool: All, Stats.
//
// File format (one category per line, '#' comments and blank lines ignored):
//   yellow|AVERAGE,MEAN,NORM,PAR
//
// Environment variables:
//   CATEGORIES_FILE=/path/to/categories.txt
//
// Initialization is run once (sync.Once).

package categories

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/zyedidia/generic/mapset"

	"github.com/robalobadob/connections/apps/go-server/assets"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzle"
)

var (
	initOnce   sync.Once
	pool       []puzzle.Category
	byTag      map[puzzle.ColorTag][]puzzle.Category
	initialErr error
)

// Init loads the process-wide pool exactly once.
func Init() error {
	initOnce.Do(func() {
		pool, initialErr = Load(os.Getenv("CATEGORIES_FILE"))
		if initialErr == nil {
			byTag = puzzle.GroupByTag(pool)
		}
	})
	return initialErr
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) ([]puzzle.Category, error) {
	var (
		r   io.ReadCloser
		err error
	)
	if path == "" {
		r, err = assets.Categories()
	} else {
		r, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Parse(r)
}

// Parse reads and validates a catalog.
func Parse(r io.Reader) ([]puzzle.Category, error) {
	var out []puzzle.Category
	tags := mapset.New[puzzle.ColorTag]()

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		c, err := parseLine(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tags.Put(c.Tag)
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, tag := range puzzle.Tags {
		if !tags.Has(tag) {
			return nil, fmt.Errorf("%w: no categories tagged %s", puzzle.ErrConfiguration, tag)
		}
	}
	return out, nil
}

// parseLine decodes "tag|w1,w2,w3,w4".
func parseLine(s string) (puzzle.Category, error) {
	var c puzzle.Category
	tagPart, wordPart, ok := strings.Cut(s, "|")
	if !ok {
		return c, fmt.Errorf("%w: missing '|' separator", puzzle.ErrConfiguration)
	}
	tag, err := puzzle.ParseColorTag(tagPart)
	if err != nil {
		return c, err
	}
	c.Tag = tag

	parts := strings.Split(wordPart, ",")
	if len(parts) != puzzle.GroupSize {
		return c, fmt.Errorf("%w: want %d words, got %d", puzzle.ErrConfiguration, puzzle.GroupSize, len(parts))
	}
	seen := mapset.New[string]()
	for i, p := range parts {
		w := strings.ToUpper(strings.TrimSpace(p))
		if w == "" {
			return c, fmt.Errorf("%w: empty word", puzzle.ErrConfiguration)
		}
		if seen.Has(w) {
			return c, fmt.Errorf("%w: duplicate word %q", puzzle.ErrConfiguration, w)
		}
		seen.Put(w)
		c.Words[i] = w
	}
	return c, nil
}

// All returns the loaded pool. Callers must not modify it.
func All() []puzzle.Category {
	return pool
}

// Stats returns the number of categories per tag name.
func Stats() map[string]int {
	out := make(map[string]int, len(puzzle.Tags))
	for _, tag := range puzzle.Tags {
		out[tag.String()] = len(byTag[tag])
	}
	return out
}
