package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/apps/go-server/assets"
	"github.com/robalobadob/connections/apps/go-server/internal/db"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzle"
	"github.com/robalobadob/connections/apps/go-server/internal/store"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testPool() []puzzle.Category {
	return []puzzle.Category{
		{Tag: puzzle.Yellow, Words: [4]string{"A1", "A2", "A3", "A4"}},
		{Tag: puzzle.Green, Words: [4]string{"B1", "B2", "B3", "B4"}},
		{Tag: puzzle.Blue, Words: [4]string{"C1", "C2", "C3", "C4"}},
		{Tag: puzzle.Orange, Words: [4]string{"D1", "D2", "D3", "D4"}},
	}
}

// client drives the router and carries cookies between requests like a browser.
type client struct {
	t       *testing.T
	srv     *Server
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T) *client {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(d, assets.Migrations()); err != nil {
		t.Fatal(err)
	}
	return &client{t: t, srv: New(store.NewMemoryStore(), d, testPool()), cookies: map[string]*http.Cookie{}}
}

// fork returns a client sharing the server but with an empty cookie jar.
func (c *client) fork() *client {
	return &client{t: c.t, srv: c.srv, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.srv.Router().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) snapshot(method, path string, body any) puzzle.Snapshot {
	c.t.Helper()
	rec := c.do(method, path, body)
	if rec.Code != http.StatusOK {
		c.t.Fatalf("%s %s = %d: %s", method, path, rec.Code, rec.Body.String())
	}
	var snap puzzle.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		c.t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func (c *client) newGame(seed int64) puzzle.Snapshot {
	return c.snapshot(http.MethodPost, "/game/new", map[string]any{"seed": seed})
}

// pick toggles the named words on a board and returns the final snapshot.
func (c *client) pick(snap puzzle.Snapshot, texts ...string) puzzle.Snapshot {
	c.t.Helper()
	for _, text := range texts {
		idx := -1
		for _, w := range snap.Words {
			if w.Text == text {
				idx = w.Index
			}
		}
		if idx < 0 {
			c.t.Fatalf("word %s not on board", text)
		}
		snap = c.snapshot(http.MethodPost, "/game/"+snap.ID+"/toggle", map[string]int{"index": idx})
	}
	return snap
}

func (c *client) solveAll(snap puzzle.Snapshot) puzzle.Snapshot {
	for _, p := range []string{"A", "B", "C", "D"} {
		snap = c.pick(snap, p+"1", p+"2", p+"3", p+"4")
	}
	return snap
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	if rec := c.do(http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	rec := c.do(http.MethodGet, "/debug/categories", nil)
	var counts map[string]int
	_ = json.NewDecoder(rec.Body).Decode(&counts)
	if counts["yellow"] != 1 || len(counts) != 4 {
		t.Errorf("category counts = %v", counts)
	}
}

func TestNewGameSnapshot(t *testing.T) {
	c := newClient(t)
	snap := c.newGame(1)
	if snap.ID == "" || snap.State != "playing" || snap.TriesLeft != puzzle.MaxTries {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Words) != puzzle.GridSize {
		t.Fatalf("words = %d", len(snap.Words))
	}
	for _, w := range snap.Words {
		if w.Tag != nil {
			t.Errorf("tag of %s leaked on a fresh board", w.Text)
		}
	}
	again := c.snapshot(http.MethodGet, "/game/"+snap.ID, nil)
	if again.ID != snap.ID {
		t.Errorf("GET returned %s, want %s", again.ID, snap.ID)
	}
}

func TestSameSeedSameBoard(t *testing.T) {
	c := newClient(t)
	a, b := c.newGame(99), c.newGame(99)
	if a.ID == b.ID {
		t.Fatal("two games share an ID")
	}
	for i := range a.Words {
		if a.Words[i].Text != b.Words[i].Text {
			t.Fatalf("boards differ at %d", i)
		}
	}
}

func TestHintThenGroup(t *testing.T) {
	c := newClient(t)
	snap := c.pick(c.newGame(3), "A1", "A2", "A3")
	if snap.Hint != puzzle.HintMessage || snap.HintTTL != puzzle.HintTTL {
		t.Fatalf("hint = %q ttl=%d", snap.Hint, snap.HintTTL)
	}
	snap = c.pick(snap, "A4")
	if len(snap.Groups) != 1 || snap.Groups[0].Tag != puzzle.Yellow || !snap.Groups[0].Banner {
		t.Fatalf("groups = %+v", snap.Groups)
	}
	if snap.Hint != "" {
		t.Errorf("hint not cleared: %q", snap.Hint)
	}
	for _, w := range snap.Words {
		if w.Selected {
			t.Errorf("%s still selected", w.Text)
		}
	}

	snap = c.snapshot(http.MethodPost, "/game/"+snap.ID+"/tick", nil)
	if snap.Groups[0].Age != puzzle.BannerTicks-1 {
		t.Errorf("age after tick = %d", snap.Groups[0].Age)
	}
}

func TestWinRecordsHistory(t *testing.T) {
	c := newClient(t)
	snap := c.solveAll(c.newGame(5))
	if !snap.GameOver || !snap.Won || snap.State != "won" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.TriesUsed != 1 || snap.Result != "Perfect! You solved it in 1 try!" {
		t.Errorf("triesUsed=%d result=%q", snap.TriesUsed, snap.Result)
	}

	var status string
	var groups int
	err := c.srv.db.QueryRow(`SELECT status, groups_found FROM games WHERE session_id=?`, snap.ID).Scan(&status, &groups)
	if err != nil {
		t.Fatal(err)
	}
	if status != "won" || groups != 4 {
		t.Errorf("history row = %s/%d, want won/4", status, groups)
	}
}

func TestToggleErrors(t *testing.T) {
	c := newClient(t)
	snap := c.newGame(1)

	if rec := c.do(http.MethodPost, "/game/"+snap.ID+"/toggle", map[string]int{"index": 16}); rec.Code != http.StatusBadRequest {
		t.Errorf("index 16 = %d, want 400", rec.Code)
	}
	if rec := c.do(http.MethodPost, "/game/"+snap.ID+"/toggle", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing index = %d, want 400", rec.Code)
	}
	if rec := c.do(http.MethodPost, "/game/nope/toggle", map[string]int{"index": 0}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown game = %d, want 404", rec.Code)
	}
	if rec := c.do(http.MethodPost, "/game/nope/shuffle", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown game shuffle = %d, want 404", rec.Code)
	}
}

func TestLossThenReset(t *testing.T) {
	c := newClient(t)
	snap := c.newGame(8)
	for i := 0; i < puzzle.MaxTries; i++ {
		snap = c.pick(snap, "A1", "B1", "C1", "D1")
	}
	if !snap.GameOver || snap.Won || snap.Result != puzzle.LossMessage {
		t.Fatalf("snapshot = %+v", snap)
	}
	for _, w := range snap.Words {
		if w.Tag == nil {
			t.Errorf("tag of %s hidden after game over", w.Text)
		}
	}

	after := c.snapshot(http.MethodPost, "/game/"+snap.ID+"/toggle", map[string]int{"index": 0})
	if after.Words[0].Selected {
		t.Error("toggle after game over selected a word")
	}

	reset := c.snapshot(http.MethodPost, "/game/"+snap.ID+"/reset", nil)
	if reset.ID != snap.ID || reset.GameOver || reset.TriesLeft != puzzle.MaxTries || len(reset.Groups) != 0 {
		t.Fatalf("reset snapshot = %+v", reset)
	}

	rows, err := c.srv.db.Query(`SELECT status FROM games WHERE session_id=? ORDER BY id`, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var st string
		_ = rows.Scan(&st)
		got = append(got, st)
	}
	if len(got) != 2 || got[0] != "lost" || got[1] != "playing" {
		t.Errorf("history = %v, want [lost playing]", got)
	}
}

func TestShuffleAndDeselect(t *testing.T) {
	c := newClient(t)
	snap := c.pick(c.newGame(4), "C1", "C2", "C3", "C4", "A1")
	snap = c.snapshot(http.MethodPost, "/game/"+snap.ID+"/shuffle", nil)
	for i := 0; i < puzzle.GroupSize; i++ {
		if !snap.Words[i].Grouped {
			t.Errorf("word %d not grouped after shuffle", i)
		}
	}
	for _, w := range snap.Words {
		if w.Selected {
			t.Errorf("%s selected after shuffle", w.Text)
		}
	}

	snap = c.pick(snap, "B1", "B2", "B3")
	snap = c.snapshot(http.MethodPost, "/game/"+snap.ID+"/deselect", nil)
	if snap.Hint != "" {
		t.Errorf("hint survives deselect: %q", snap.Hint)
	}
	for _, w := range snap.Words {
		if w.Selected {
			t.Errorf("%s selected after deselect", w.Text)
		}
	}
}

func TestAccountStats(t *testing.T) {
	c := newClient(t)

	if rec := c.do(http.MethodGet, "/stats/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("stats without auth = %d", rec.Code)
	}
	creds := map[string]string{"username": "player_1", "password": "hunter2hunter2"}
	if rec := c.do(http.MethodPost, "/auth/signup", creds); rec.Code != http.StatusOK {
		t.Fatalf("signup = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := c.fork().do(http.MethodPost, "/auth/signup", creds); rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup = %d, want 409", rec.Code)
	}
	bad := map[string]string{"username": "player_1", "password": "wrongwrong"}
	if rec := c.fork().do(http.MethodPost, "/auth/login", bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}

	c.solveAll(c.newGame(6))

	var stats struct {
		GamesPlayed int `json:"gamesPlayed"`
		Wins        int `json:"wins"`
		Streak      int `json:"streak"`
	}
	rec := c.do(http.MethodGet, "/stats/me", nil)
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.GamesPlayed != 1 || stats.Wins != 1 || stats.Streak != 1 {
		t.Errorf("stats = %+v", stats)
	}

	var mine []gameRow
	rec = c.do(http.MethodGet, "/games/mine", nil)
	_ = json.NewDecoder(rec.Body).Decode(&mine)
	if len(mine) != 1 || mine[0].Status != "won" {
		t.Errorf("games/mine = %+v", mine)
	}

	other := c.fork()
	if rec := other.do(http.MethodPost, "/auth/login", creds); rec.Code != http.StatusOK {
		t.Fatalf("login = %d", rec.Code)
	}
	if rec := other.do(http.MethodGet, "/auth/me", nil); rec.Code != http.StatusOK {
		t.Errorf("auth/me after login = %d", rec.Code)
	}
	other.do(http.MethodPost, "/auth/logout", nil)
	if rec := other.do(http.MethodGet, "/auth/me", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("auth/me after logout = %d", rec.Code)
	}
}

func TestAnonGamesClaimedOnSignup(t *testing.T) {
	c := newClient(t)
	c.newGame(2)
	if rec := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "late_joiner", "password": "password123"}); rec.Code != http.StatusOK {
		t.Fatalf("signup = %d", rec.Code)
	}
	var mine []gameRow
	_ = json.NewDecoder(c.do(http.MethodGet, "/games/mine", nil).Body).Decode(&mine)
	if len(mine) != 1 || mine[0].Status != "playing" {
		t.Errorf("games/mine = %+v", mine)
	}
}

type dailyRes struct {
	Date   string           `json:"date"`
	Played bool             `json:"played"`
	Board  *puzzle.Snapshot `json:"board"`
}

func (c *client) dailyNew() dailyRes {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/daily/new", nil)
	if rec.Code != http.StatusOK {
		c.t.Fatalf("daily/new = %d: %s", rec.Code, rec.Body.String())
	}
	var res dailyRes
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		c.t.Fatal(err)
	}
	return res
}

func TestDailyFlow(t *testing.T) {
	c := newClient(t)
	day := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.srv.daily.now = func() time.Time { return day }

	first := c.dailyNew()
	if first.Played || first.Board == nil || first.Date != "2026-05-01" {
		t.Fatalf("first = %+v", first)
	}
	resumed := c.dailyNew()
	if resumed.Board == nil || resumed.Board.ID != first.Board.ID {
		t.Fatalf("daily/new did not resume the live board")
	}

	stranger := c.fork().dailyNew()
	for i := range first.Board.Words {
		if first.Board.Words[i].Text != stranger.Board.Words[i].Text {
			t.Fatalf("daily boards differ between players at %d", i)
		}
	}

	c.solveAll(*first.Board)

	done := c.dailyNew()
	if !done.Played || done.Board != nil {
		t.Errorf("after win = %+v, want played", done)
	}

	var lb lbRes
	_ = json.NewDecoder(c.do(http.MethodGet, "/daily/leaderboard?date=2026-05-01", nil).Body).Decode(&lb)
	if len(lb.Top) != 1 || lb.Top[0].TriesUsed != 1 {
		t.Errorf("leaderboard = %+v", lb)
	}
}

func TestDailyResetForfeits(t *testing.T) {
	c := newClient(t)
	first := c.dailyNew()
	c.pick(*first.Board, "A1", "B1", "C1", "D1")
	c.snapshot(http.MethodPost, "/game/"+first.Board.ID+"/reset", nil)
	if _, ok := c.srv.daily.byGame[first.Board.ID]; ok {
		t.Error("reset board still linked to the daily puzzle")
	}
	next := c.dailyNew()
	if !next.Played || next.Board != nil {
		t.Errorf("daily/new after reset = %+v, want played", next)
	}
}

func TestDailyLossCannotBeReplayed(t *testing.T) {
	c := newClient(t)
	day := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	c.srv.daily.now = func() time.Time { return day }

	first := c.dailyNew()
	snap := *first.Board
	for i := 0; i < puzzle.MaxTries; i++ {
		snap = c.pick(snap, "A1", "B1", "C1", "D1")
	}
	if snap.State != "lost" {
		t.Fatalf("state = %s, want lost", snap.State)
	}
	c.snapshot(http.MethodPost, "/game/"+snap.ID+"/reset", nil)

	again := c.dailyNew()
	if !again.Played || again.Board != nil {
		t.Fatalf("daily/new after loss = %+v, want played", again)
	}

	var lb lbRes
	_ = json.NewDecoder(c.do(http.MethodGet, "/daily/leaderboard?date=2026-05-02", nil).Body).Decode(&lb)
	if len(lb.Top) != 0 {
		t.Errorf("leaderboard = %+v, want no entries for a loss", lb.Top)
	}
}

func TestDailyPlayedCheckFailureIsLogged(t *testing.T) {
	c := newClient(t)
	var buf bytes.Buffer
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	_ = c.srv.db.Close()
	if res := c.dailyNew(); res.Board == nil {
		t.Errorf("daily/new = %+v, want a board", res)
	}
	if !strings.Contains(buf.String(), "check daily played") {
		t.Errorf("log = %q, want played-check warning", buf.String())
	}
}

func TestSweepEvictsIdleBoards(t *testing.T) {
	c := newClient(t)
	day := time.Date(2020, 1, 10, 12, 0, 0, 0, time.UTC) // well before the boards' wall-clock stamps
	c.srv.daily.now = func() time.Time { return day }

	game := c.newGame(1)
	dailyBoard := c.dailyNew().Board

	c.srv.sweep(day)
	if c.srv.store.Len() != 2 {
		t.Fatalf("live boards = %d after fresh sweep, want 2", c.srv.store.Len())
	}

	// The daily board is two days old by now; the random board is still fresh.
	c.srv.sweep(day.Add(48 * time.Hour))
	if _, ok := c.srv.daily.byGame[dailyBoard.ID]; ok {
		t.Error("stale daily link kept")
	}
	if rec := c.do(http.MethodGet, "/game/"+dailyBoard.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("stale daily board = %d, want 404", rec.Code)
	}

	c.srv.sweep(time.Now().Add(3 * time.Hour))
	if c.srv.store.Len() != 0 {
		t.Errorf("live boards = %d after idle sweep, want 0", c.srv.store.Len())
	}
	if rec := c.do(http.MethodGet, "/game/"+game.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("idle board = %d, want 404", rec.Code)
	}
}

func TestAnonIDStaysInCookie(t *testing.T) {
	c := newClient(t)
	rec := c.do(http.MethodPost, "/game/new", map[string]any{"seed": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("new game = %d", rec.Code)
	}
	if h := rec.Header().Get("X-Anon-Id"); h != "" {
		t.Errorf("anon id echoed in header %q", h)
	}
	ck := c.cookies[anonCookieName]
	if ck == nil {
		t.Fatal("no anon cookie set")
	}
	var snap puzzle.Snapshot
	_ = json.NewDecoder(rec.Body).Decode(&snap)
	var anon string
	if err := c.srv.db.QueryRow(`SELECT anonymous_id FROM games WHERE session_id=?`, snap.ID).Scan(&anon); err != nil {
		t.Fatal(err)
	}
	if anon != ck.Value {
		t.Errorf("history anon id = %s, cookie = %s", anon, ck.Value)
	}
}
