// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the Connections backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/debug/categories".
//   - Game endpoints (optional auth): create a board, read it, and drive the
//     session's mutators (toggle, shuffle, deselect, reset, tick).
//   - Daily puzzle endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (require auth): see auth.go.
//   - Database bookkeeping for started/finished games and user stats.
//
// Notes:
//   - Live boards are held in the store; the database only keeps history.
//   - Every mutation runs inside store.Update, so one request at a time owns a board.
//   - Mutations on a finished board are no-ops and still answer 200 with the snapshot.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/apps/go-server/internal/puzzle"
	"github.com/robalobadob/connections/apps/go-server/internal/store"
)

// Server bundles router, live session store, category pool and DB handle.
type Server struct {
	r     *chi.Mux
	store store.Store
	db    *sql.DB
	pool  []puzzle.Category
	daily *dailyServer

	// newRand supplies the random source for unseeded boards and resets.
	newRand func() puzzle.Rand
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, pool []puzzle.Category) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		store: st,
		db:    db,
		pool:  pool,
		newRand: func() puzzle.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)                       // zerolog access line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS
	s.r.Use(anonScope)                       // per-request anon ID slot

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"connections-go","endpoints":["/health","POST /game/new","POST /game/{id}/toggle","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/categories", func(w http.ResponseWriter, r *http.Request) {
		out := map[string]int{}
		for tag, cats := range puzzle.GroupByTag(s.pool) {
			out[tag.String()] = len(cats)
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	// Game endpoints — OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Route("/game", func(r chi.Router) {
		r.Post("/new", s.handleNewGame)
		r.Get("/{id}", s.handleGetGame)
		r.Post("/{id}/toggle", s.handleToggle)
		r.Post("/{id}/shuffle", s.handleShuffle)
		r.Post("/{id}/deselect", s.handleDeselect)
		r.Post("/{id}/reset", s.handleReset)
		r.Post("/{id}/tick", s.handleTick)
	})

	// Daily puzzle — OPTIONAL AUTH (guests can play; one result per player and date)
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Auth + profile/stats (require auth)
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr and evicts idle boards in the background.
func (s *Server) Start(addr string) error {
	go func() {
		for now := range time.Tick(sweepEvery) {
			s.sweep(now)
		}
	}()
	return http.ListenAndServe(addr, s.r)
}

const (
	sweepEvery = time.Minute
	boardIdle  = 2 * time.Hour // boards untouched this long are dropped
)

// sweep deletes boards idle since now-boardIdle, and daily boards dealt
// before yesterday, together with their daily links.
func (s *Server) sweep(now time.Time) {
	ids := s.store.Idle(now.Add(-boardIdle))
	ids = append(ids, s.daily.stale(now.Add(-24*time.Hour))...)
	if len(ids) == 0 {
		return
	}
	ctx := context.Background()
	for _, id := range ids {
		if err := s.store.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("gameId", id).Msg("evict board")
		}
		s.daily.forget(id)
	}
	log.Info().Int("evicted", len(ids)).Int("live", s.store.Len()).Msg("sweep")
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := getEnv("CLIENT_ORIGIN", "http://localhost:5173")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one debug-level line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq is the payload for POST /game/new.
type newGameReq struct {
	Seed *int64 `json:"seed"` // optional fixed seed (reproducible boards)
}

// handleNewGame deals a new board, stores it, and records a "playing" row
// for either the logged-in user or the anonymous cookie.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	rng := s.newRand()
	if req.Seed != nil {
		rng = rand.New(rand.NewSource(*req.Seed))
	}
	g, err := puzzle.New(s.pool, rng)
	if err != nil {
		log.Error().Err(err).Msg("build session")
		http.Error(w, `{"error":"configuration"}`, http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	s.recordStart(w, r, g.ID)
	log.Info().Str("gameId", g.ID).Msg("game started")

	_ = json.NewEncoder(w).Encode(g.Snapshot())
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.apply(w, r, func(*puzzle.Session) error { return nil }); ok {
		_ = json.NewEncoder(w).Encode(snap)
	}
}

// toggleReq is the payload for POST /game/{id}/toggle.
type toggleReq struct {
	Index *int `json:"index"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if snap, ok := s.apply(w, r, func(g *puzzle.Session) error { return g.Toggle(*req.Index) }); ok {
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.apply(w, r, func(g *puzzle.Session) error { g.Shuffle(); return nil }); ok {
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.apply(w, r, func(g *puzzle.Session) error { g.DeselectAll(); return nil }); ok {
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.apply(w, r, func(g *puzzle.Session) error { g.Tick(); return nil }); ok {
		_ = json.NewEncoder(w).Encode(snap)
	}
}

// handleReset deals a new board under the same game ID. An unfinished
// board is abandoned; a new history row is started either way.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.apply(w, r, func(g *puzzle.Session) error { return g.ResetWith(s.newRand()) })
	if !ok {
		return
	}
	// A daily board reset before it finished counts as a forfeit.
	_, player, _ := s.owner(w, r)
	s.daily.record(r.Context(), player.(string), snap.ID, false, 0)
	s.daily.forget(snap.ID)
	s.recordAbandon(w, r, snap.ID)
	s.recordStart(w, r, snap.ID)
	log.Info().Str("gameId", snap.ID).Msg("game reset")
	_ = json.NewEncoder(w).Encode(snap)
}

// apply runs op against the board named by the {id} URL param and returns its
// snapshot. Errors are written to w and reported as ok=false.
// A board that finishes during op is recorded before returning.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, op func(*puzzle.Session) error) (puzzle.Snapshot, bool) {
	id := chi.URLParam(r, "id")
	var (
		snap     puzzle.Snapshot
		finished bool
	)
	err := s.store.Update(r.Context(), id, func(g *puzzle.Session) error {
		wasOver := g.GameOver()
		if err := op(g); err != nil {
			return err
		}
		finished = !wasOver && g.GameOver()
		snap = g.Snapshot()
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return snap, false
	case errors.Is(err, puzzle.ErrInvalidIndex):
		http.Error(w, `{"error":"invalid_index"}`, http.StatusBadRequest)
		return snap, false
	case err != nil:
		log.Error().Err(err).Str("gameId", id).Msg("update game")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return snap, false
	}
	if finished {
		s.recordFinish(w, r, snap)
	}
	return snap, true
}

// ----------------------------- history -------------------------------------

// owner returns the WHERE fragment and argument identifying the caller's rows.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (clause string, arg any, me *authUser) {
	if me, _ = r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return `user_id=?`, me.ID, me
	}
	return `anonymous_id=?`, s.ensureAnonID(w, r), nil
}

// recordStart inserts a "playing" row for the caller (best effort).
func (s *Server) recordStart(w http.ResponseWriter, r *http.Request, gameID string) {
	now := time.Now().UTC().Format(time.RFC3339)
	var err error
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		_, err = s.db.ExecContext(r.Context(), `INSERT INTO games (session_id, user_id, started_at, status)
		                                        VALUES (?,?,?,'playing')`, gameID, me.ID, now)
	} else {
		_, err = s.db.ExecContext(r.Context(), `INSERT INTO games (session_id, anonymous_id, started_at, status)
		                                        VALUES (?,?,?,'playing')`, gameID, s.ensureAnonID(w, r), now)
	}
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("insert game row")
	}
}

// recordAbandon marks the caller's still-open row for gameID as abandoned.
func (s *Server) recordAbandon(w http.ResponseWriter, r *http.Request, gameID string) {
	clause, arg, _ := s.owner(w, r)
	if _, err := s.db.ExecContext(r.Context(),
		`UPDATE games SET status='abandoned', finished_at=? WHERE session_id=? AND status='playing' AND `+clause,
		time.Now().UTC().Format(time.RFC3339), gameID, arg); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("abandon game row")
	}
}

// recordFinish closes the open history row, bumps user stats, and hands
// daily outcomes to the daily store. Failures are logged, never surfaced.
func (s *Server) recordFinish(w http.ResponseWriter, r *http.Request, snap puzzle.Snapshot) {
	clause, arg, me := s.owner(w, r)
	log.Info().Str("gameId", snap.ID).Str("state", snap.State).Int("triesUsed", snap.TriesUsed).Msg("game finished")

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin finish tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE games SET status=?, finished_at=?, mistakes=?, groups_found=?
	                      WHERE session_id=? AND status='playing' AND `+clause,
		snap.State, time.Now().UTC().Format(time.RFC3339), puzzle.MaxTries-snap.TriesLeft, len(snap.Groups),
		snap.ID, arg); err != nil {
		log.Warn().Err(err).Msg("finish game")
	}
	if me != nil {
		if err := s.bumpStats(tx, me.ID, snap.Won); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit finish tx")
	}

	s.daily.record(r.Context(), arg.(string), snap.ID, snap.Won, snap.TriesUsed)
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
