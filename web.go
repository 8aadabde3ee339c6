package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type createGameRequest struct {
	RoomID    string     `json:"roomId,omitempty"`
	Questions []Question `json:"questions"`
}

type createGameResponse struct {
	GameID     string `json:"gameId"`
	PIN        string `json:"pin"`
	HostSecret string `json:"hostSecret"`
}

// createGameHandler is the creation RPC used by the quiz frontend: it
// snapshots the submitted questions into a new room and hands back the
// credentials the host screen needs.
func createGameHandler(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, wireError(codeInvalidMessage, "Malformed request body."))
			return
		}

		if len(req.Questions) == 0 {
			writeJSON(w, http.StatusBadRequest, wireError(codeEmptyQuiz))
			return
		}
		if !validQuestions(req.Questions) {
			writeJSON(w, http.StatusBadRequest, wireError(codeInvalidMessage, "One or more questions are malformed."))
			return
		}

		roomID := req.RoomID
		if roomID == "" {
			roomID = newGameID()
		}

		st, err := store.Create(r.Context(), roomID, req.Questions)
		switch {
		case errors.Is(err, ErrGameExists):
			writeJSON(w, http.StatusConflict, wireError(codeGameAlreadyExists))
			return
		case errors.Is(err, ErrEmptyQuiz):
			writeJSON(w, http.StatusBadRequest, wireError(codeEmptyQuiz))
			return
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, wireError(codeInvalidMessage, "Failed to create the game."))
			return
		}

		logf(cfg, "GAMES: Created game %s (%d questions) for %s", st.ID, len(st.Questions), realIP(r))

		writeJSON(w, http.StatusCreated, createGameResponse{
			GameID:     st.ID,
			PIN:        st.PIN,
			HostSecret: st.HostSecret,
		})
	}
}

type gameStatusResponse struct {
	Exists bool  `json:"exists"`
	Phase  Phase `json:"phase"`
}

// gameStatusHandler is the existence probe clients call before opening a
// websocket.
func gameStatusHandler(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		st, err := store.Load(r.Context(), ps.ByName("gameid"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, wireError(codeGameNotFound))
			return
		}

		writeJSON(w, http.StatusOK, gameStatusResponse{
			Exists: true,
			Phase:  st.Phase,
		})
	}
}

// validateHostSecret checks a presented token against the stored room
// secret without leaking timing.
func validateHostSecret(ctx context.Context, store GameStore, roomID, token string) bool {
	st, err := store.Load(ctx, roomID)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(st.HostSecret), []byte(token)) == 1
}

// serveWS upgrades connections into a room. The host must prove the
// room secret here, before the upgrade - an invalid secret rejects the
// handshake itself. Players upgrade unconditionally and authenticate
// with their first connect message.
func serveWS(cfg *Config, store GameStore, mgr *roomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")

		if _, err := store.Load(r.Context(), gameID); err != nil {
			writeJSON(w, http.StatusNotFound, wireError(codeGameNotFound))
			return
		}

		role := r.URL.Query().Get("role")
		if role != roleHost {
			role = rolePlayer
		}

		if role == roleHost && !validateHostSecret(r.Context(), store, gameID, r.URL.Query().Get("secret")) {
			writeJSON(w, http.StatusForbidden, wireError(codeInvalidHostSecret))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: upgrade error for %s: %v", gameID, err)
			return
		}

		c := newClient(conn, role)

		// The actor may be reaped between the manager lookup and the
		// registration send; on that race, fetch the replacement actor
		// and retry. A replacement for a deleted room rejects the
		// client through the normal registration path.
		for {
			s := mgr.session(gameID)

			select {
			case s.register <- c:
				go c.writePump()
				c.readPump(s)
				return
			case <-s.done:
			}
		}
	}
}

// qrHandler generates a PNG QR code for the join URL, so the host
// screen can put the room on phones without anyone typing.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at .../games/:gameid/qr; strip the suffix to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("quizbox v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", cfg.prefix+"/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", cfg.prefix+"/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", cfg.prefix+"/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", cfg.prefix+"/pprof/mutex", pprof.Handler("mutex"))
	mux.Handler("GET", cfg.prefix+"/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)
}

// newStore picks the configured persistence backend.
func newStore(ctx context.Context, cfg *Config) (GameStore, error) {
	if cfg.redis == "" {
		return newMemoryStore(), nil
	}

	store := newRedisStore(cfg.redis, cfg.redisPassword, cfg.redisDB, cfg.sessionTimeout)
	if err := store.ping(ctx); err != nil {
		return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.redis, err)
	}

	logf(cfg, "START: Using redis game store at %s", cfg.redis)

	return store, nil
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: quizbox v%s", releaseVersion)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	mgr := newRoomManager(cfg, store)

	mux := httprouter.New()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		// Websocket connections hijack out of these; the write timeout
		// only bounds the plain HTTP endpoints.
		WriteTimeout: timeout,
	}

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		securityHeaders(cfg, w)
		writeJSON(w, http.StatusInternalServerError, wireError(codeInvalidMessage, "An error has occurred. Please try again."))
	}

	errs := make(chan error, 64)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux.POST(cfg.prefix+"/api/games", createGameHandler(cfg, store))
	mux.GET(cfg.prefix+"/api/games/:gameid", gameStatusHandler(cfg, store))
	mux.GET(cfg.prefix+"/ws/:gameid", serveWS(cfg, store, mgr))
	mux.GET(cfg.prefix+"/games/:gameid/qr", qrHandler)

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))
	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))
	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	go func() {
		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
