/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/waterrock/console"
	"github.com/Seednode/waterrock/game"
	"github.com/Seednode/waterrock/store"
	"github.com/julienschmidt/httprouter"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

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

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		writeBody(cfg, w, r, errs, http.StatusOK, "Version page", []byte("waterrock v"+releaseVersion+"\n"), startTime)
	}
}

// openStore builds the document store named by the config. SQL backends are
// wrapped so reads and per-user writes keep working from local state while
// the database is unreachable.
func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	var local *store.Memory
	if cfg.localState != "" {
		var err error

		local, err = store.OpenFile(cfg.localState)
		if err != nil {
			return nil, err
		}
	} else {
		local = store.NewMemory()
	}

	if err := store.SeedDataset(ctx, local); err != nil {
		errorf("seed local state: %v", err)
	}

	if cfg.dbDriver == "memory" {
		logf(cfg, "STORE: Using in-memory store")

		return local, nil
	}

	primary, err := store.OpenSQL(ctx, cfg.dbDriver, cfg.dbURL)
	if err != nil {
		errorf("open %s store, serving from local state only: %v", cfg.dbDriver, err)

		return local, nil
	}

	logf(cfg, "STORE: Using %s store with local fallback", cfg.dbDriver)

	s := store.NewFallback(primary, local, game.LocalCollections...)

	if err := store.SeedDataset(ctx, s); err != nil {
		errorf("seed %s store: %v", cfg.dbDriver, err)
	}

	return s, nil
}

// bootstrapAdmin makes sure the admin console can be reached on a fresh store.
func bootstrapAdmin(ctx context.Context, cfg *Config, g *game.Game) error {
	if cfg.adminPassword == "" {
		return nil
	}

	if err := g.Users.Add(ctx, game.AdminRole, cfg.adminPassword); err != nil {
		return fmt.Errorf("bootstrap admin user: %w", err)
	}

	logf(cfg, "START: Admin user ready")

	return nil
}

// newRouter registers every route. Background work it starts stops with ctx.
func newRouter(ctx context.Context, cfg *Config, g *game.Game, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		errorf("panic serving %s: %v", r.URL.Path, i)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage(cfg, "Server Error", "An error has occurred. Please try again."))
	}

	logins := newLogins(ctx, cfg.sessionTimeout)
	hub := newHub()
	con := console.New(g)

	go func() {
		<-ctx.Done()
		hub.closeAll()
	}()

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, errs))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/favicon.ico", serveFavicon(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/qr", serveQR(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	mux.POST(cfg.prefix+"/api/login", serveLogin(cfg, g, logins, errs))

	mux.POST(cfg.prefix+"/api/logout", serveLogout(cfg, logins, errs))

	mux.GET(cfg.prefix+"/api/session", serveSession(cfg, logins, errs))

	mux.POST(cfg.prefix+"/api/admin/command", serveAdminCommand(cfg, con, logins, errs))

	mux.GET(cfg.prefix+"/api/admin/state", serveAdminState(cfg, g, logins, errs))

	mux.POST(cfg.prefix+"/api/admin/state", serveAdminState(cfg, g, logins, errs))

	mux.GET(cfg.prefix+"/ws", serveWS(ctx, cfg, g, logins, hub))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	return mux
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

	logf(cfg, "START: waterrock v%s", releaseVersion)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	mode := game.RiddleMode
	if cfg.clues {
		mode = game.ClueMode
	}

	g := game.New(s, game.Options{Mode: mode, ActiveDares: cfg.activeDares})

	if err := bootstrapAdmin(ctx, cfg, g); err != nil {
		return err
	}

	logf(cfg, "GAMES: Running in %s mode with %d active dares", mode, cfg.activeDares)

	errs := make(chan error, 64)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				logf(cfg, "SERVE: Write failed: %v", err)
			}
		}
	}()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(ctx, cfg, g, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
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
			errorf("%v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	logf(cfg, "SERVE: Shut down")

	return nil
}
