// apps/go-server/internal/puzzle/builder.go
//
// Session construction from a category pool.
// Steps:
//   1. Group the pool by tag.
//   2. Pick one category per tag uniformly at random.
//   3. Flatten the four categories into 16 fresh words.
//   4. Shuffle the words.
//
// Randomness is injected so callers can seed boards for tests or daily puzzles.

package puzzle

import (
	"fmt"

	"github.com/google/uuid"
)

// Rand is the random source a session draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// GroupByTag buckets the pool by tag, preserving pool order within each bucket.
func GroupByTag(pool []Category) map[ColorTag][]Category {
	out := make(map[ColorTag][]Category, len(Tags))
	for _, c := range pool {
		out[c.Tag] = append(out[c.Tag], c)
	}
	return out
}

// Pick selects one category per tag, in Tags order.
// It fails with ErrConfiguration when a tag has no categories.
func Pick(pool []Category, rng Rand) ([]Category, error) {
	byTag := GroupByTag(pool)
	picked := make([]Category, 0, len(Tags))
	for _, tag := range Tags {
		cands := byTag[tag]
		if len(cands) == 0 {
			return nil, fmt.Errorf("%w: no categories tagged %s", ErrConfiguration, tag)
		}
		picked = append(picked, cands[rng.Intn(len(cands))])
	}
	return picked, nil
}

// New builds a fresh session from the pool.
func New(pool []Category, rng Rand) (*Session, error) {
	s := &Session{ID: uuid.NewString(), pool: pool, rng: rng}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// deal returns the shuffled 16-word grid for the given categories.
func deal(cats []Category, rng Rand) []*Word {
	grid := make([]*Word, 0, GridSize)
	for _, c := range cats {
		for _, text := range c.Words {
			grid = append(grid, &Word{Text: text, Tag: c.Tag})
		}
	}
	rng.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
	return grid
}
