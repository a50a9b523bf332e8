package puzzle

// Snapshot is a read-only view of a session for presentation layers.
// Tags of unsolved words stay hidden until the game is over.
type Snapshot struct {
	ID        string      `json:"gameId"`
	State     string      `json:"state"` // "playing" | "won" | "lost"
	Words     []WordView  `json:"words"`
	TriesLeft int         `json:"triesLeft"`
	Groups    []GroupView `json:"groups"`
	GameOver  bool        `json:"gameOver"`
	Won       bool        `json:"won"`
	TriesUsed int         `json:"triesUsed,omitempty"`
	Hint      string      `json:"hint,omitempty"`
	HintTTL   int         `json:"hintTtl,omitempty"`
	Result    string      `json:"result,omitempty"`
}

// WordView is one cell of a Snapshot.
type WordView struct {
	Index    int       `json:"index"`
	Text     string    `json:"text"`
	Tag      *ColorTag `json:"tag,omitempty"`
	Selected bool      `json:"selected"`
	Grouped  bool      `json:"grouped"`
}

// GroupView is a solved group of a Snapshot. Banner is true while the
// "group found" announcement is still running.
type GroupView struct {
	Tag    ColorTag `json:"tag"`
	Words  []string `json:"words"`
	Age    int      `json:"age"`
	Banner bool     `json:"banner"`
}

// Snapshot captures the current state of s.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		State:     s.State(),
		Words:     make([]WordView, len(s.grid)),
		TriesLeft: s.triesLeft,
		Groups:    make([]GroupView, len(s.groups)),
		GameOver:  s.gameOver,
		Won:       s.Won(),
		TriesUsed: s.TriesUsedOnWin(),
		Result:    ResultMessage(s),
	}
	for i, w := range s.grid {
		v := WordView{Index: i, Text: w.Text, Selected: w.Selected, Grouped: w.Grouped}
		if w.Grouped || s.gameOver {
			tag := w.Tag
			v.Tag = &tag
		}
		snap.Words[i] = v
	}
	for i, g := range s.groups {
		snap.Groups[i] = GroupView{Tag: g.Tag, Words: g.Texts(), Age: g.Age, Banner: g.Age > 0}
	}
	if s.feedback.Visible() {
		snap.Hint, snap.HintTTL = s.feedback.Message, s.feedback.TTL
	}
	return snap
}
