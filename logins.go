/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Seednode/waterrock/game"
	"github.com/google/uuid"
)

const sessionCookieName = "waterrock_session"

type login struct {
	user     game.User
	lastSeen time.Time
}

// Logins maps session cookie tokens to authenticated users. Tokens idle for
// longer than idleTimeout are reaped.
type Logins struct {
	mu          sync.Mutex
	logins      map[string]*login
	idleTimeout time.Duration
}

func newLogins(ctx context.Context, idleTimeout time.Duration) *Logins {
	l := &Logins{
		logins:      make(map[string]*login),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go l.reaperLoop(ctx)
	}

	return l
}

func (l *Logins) create(user game.User) string {
	token := uuid.NewString()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.logins[token] = &login{user: user, lastSeen: time.Now()}

	return token
}

func (l *Logins) lookup(token string) (game.User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	li, ok := l.logins[token]
	if !ok {
		return game.User{}, false
	}
	li.lastSeen = time.Now()

	return li.user, true
}

func (l *Logins) remove(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.logins, token)
}

// fromRequest resolves the session cookie on r.
func (l *Logins) fromRequest(r *http.Request) (game.User, string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return game.User{}, "", false
	}

	user, ok := l.lookup(c.Value)

	return user, c.Value, ok
}

func (l *Logins) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(l.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.reap(time.Now().Add(-l.idleTimeout))
		}
	}
}

func (l *Logins) reap(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	reaped := 0
	for token, li := range l.logins {
		if li.lastSeen.Before(cutoff) {
			delete(l.logins, token)
			reaped++
		}
	}

	return reaped
}

func setSessionCookie(cfg *Config, w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     cfg.prefix + "/",
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(cfg *Config, w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     cfg.prefix + "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}
