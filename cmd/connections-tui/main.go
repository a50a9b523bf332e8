// Command connections-tui plays the puzzle in a terminal.
//
// The bubbletea program is the host loop: key presses map to session
// mutators and a fixed-rate tick advances the hint and banner timers.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/robalobadob/connections/apps/go-server/internal/categories"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzle"
)

func main() {
	seed := flag.Int64("seed", 0, "random seed (0 = time based)")
	flag.Parse()
	_ = godotenv.Load()

	if err := categories.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "load categories:", err)
		os.Exit(1)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	s, err := puzzle.New(categories.All(), rand.New(rand.NewSource(*seed)))
	if err != nil {
		fmt.Fprintln(os.Stderr, "new game:", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(newModel(s), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
