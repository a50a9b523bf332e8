// apps/go-server/internal/httpserver/routes_daily.go
//
// HTTP routes for the daily puzzle.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's board
//   - GET  /daily/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// Everyone gets the same board on a UTC date (seeded from date + salt).
// Play goes through the regular /game/{id}/* routes. The first finish of a
// daily board (win, loss, or a reset before finishing) is recorded once per
// player and date; only wins rank on the leaderboard.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/apps/go-server/internal/daily"
	"github.com/robalobadob/connections/apps/go-server/internal/puzzle"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv   *Server
	store *daily.Store
	salt  string
	now   func() time.Time

	mu       sync.Mutex               // guards the maps below
	sessions map[string]*dailySession // active sessions keyed by playerID|date
	byGame   map[string]*dailySession // same sessions keyed by game ID
}

// dailySession links a live board to the day it was dealt for.
type dailySession struct {
	GameID   string
	PlayerID string
	Date     string
	Seed     int64
	Start    time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     getEnv("DAILY_SALT", "local_dev_salt"),
		now:      time.Now,
		sessions: make(map[string]*dailySession),
		byGame:   make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.daily.handleNew)
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

// playerID returns the authenticated user ID, or the anonymous cookie ID for guests.
func (d *dailyServer) playerID(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return d.srv.ensureAnonID(w, r)
}

// dailyNewRes is returned by /daily/new. Board is omitted once today is played.
type dailyNewRes struct {
	Date   string           `json:"date"`
	Played bool             `json:"played"`
	Board  *puzzle.Snapshot `json:"board,omitempty"`
}

// handleNew returns today's board for the caller.
//   - A recorded result for today → Played=true, no board.
//   - A live daily board for today → that board.
//   - Otherwise deal today's board and register it.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	pid := d.playerID(w, r)
	now := d.now().UTC()
	date := daily.DateKey(now)

	played, err := d.store.AlreadyPlayed(r.Context(), pid, date)
	if err != nil {
		log.Warn().Err(err).Str("player", pid).Str("date", date).Msg("check daily played")
	}
	if played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	key := pid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	d.mu.Unlock()
	if ok {
		var snap puzzle.Snapshot
		err := d.srv.store.Update(r.Context(), sess.GameID, func(g *puzzle.Session) error {
			snap = g.Snapshot()
			return nil
		})
		if err == nil {
			_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Board: &snap})
			return
		}
		d.forget(sess.GameID)
	}

	seed := daily.Seed(now, d.salt)
	g, err := puzzle.New(d.srv.pool, daily.Rand(now, d.salt))
	if err != nil {
		log.Error().Err(err).Msg("build daily session")
		http.Error(w, `{"error":"configuration"}`, http.StatusInternalServerError)
		return
	}
	if err := d.srv.store.Save(r.Context(), g); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	sess = &dailySession{GameID: g.ID, PlayerID: pid, Date: date, Seed: seed, Start: now}
	d.mu.Lock()
	d.sessions[key] = sess
	d.byGame[g.ID] = sess
	d.mu.Unlock()
	d.srv.recordStart(w, r, g.ID)
	log.Info().Str("gameId", g.ID).Str("date", date).Msg("daily started")

	snap := g.Snapshot()
	_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Board: &snap})
}

// record persists the outcome of a daily board for playerID.
// Boards that are not daily, or belong to another player, are ignored.
func (d *dailyServer) record(ctx context.Context, playerID, gameID string, won bool, triesUsed int) {
	d.mu.Lock()
	sess, ok := d.byGame[gameID]
	d.mu.Unlock()
	if !ok || sess.PlayerID != playerID {
		return
	}
	err := d.store.InsertResult(ctx, daily.Result{
		UserID:    playerID,
		Date:      sess.Date,
		Seed:      sess.Seed,
		Won:       won,
		TriesUsed: triesUsed,
		ElapsedMs: int(d.now().Sub(sess.Start).Milliseconds()),
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("insert daily result")
	}
}

// forget drops the daily link for a game, e.g. after it is reset to a random board.
func (d *dailyServer) forget(gameID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sess, ok := d.byGame[gameID]; ok {
		delete(d.byGame, gameID)
		delete(d.sessions, sess.PlayerID+"|"+sess.Date)
	}
}

// stale returns the games linked to a date before cutoff's.
func (d *dailyServer) stale(cutoff time.Time) []string {
	before := daily.DateKey(cutoff)
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []string
	for id, sess := range d.byGame {
		if sess.Date < before {
			ids = append(ids, id)
		}
	}
	return ids
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.now())
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
