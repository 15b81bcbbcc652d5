/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Seednode/waterrock/game"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var errUnknownMessage = errors.New("unknown message type")

// Messages coming from players
type ClientMessage struct {
	Type    string `json:"type"`              // "submit_answer", "request_hint", "resolve_dare", "vote_drink"
	Answer  string `json:"answer,omitempty"`  // submit_answer
	Index   int    `json:"index,omitempty"`   // resolve_dare
	Outcome string `json:"outcome,omitempty"` // resolve_dare: "complete" or "trash"
	Drink   string `json:"drink,omitempty"`   // vote_drink
}

// ViewMessage carries the full player view after any change.
type ViewMessage struct {
	Type string    `json:"type"` // "view"
	View game.View `json:"view"`
}

// ResultMessage answers a single action from the client that sent it.
type ResultMessage struct {
	Type   string      `json:"type"` // "result"
	Action string      `json:"action"`
	Result game.Result `json:"result"`
}

// ErrorMessage reports a refused action to the client that sent it.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Action  string `json:"action"`
	Message string `json:"message"`
}

type Client struct {
	conn       *websocket.Conn
	send       chan any
	views      chan game.View
	done       chan struct{}
	writerDone chan struct{}
	user       game.User
	session    *game.Session
}

func newClient(conn *websocket.Conn, user game.User) *Client {
	return &Client{
		conn:       conn,
		send:       make(chan any, 8),
		views:      make(chan game.View, 1),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		user:       user,
	}
}

// pushView replaces any view the writer has not picked up yet. It never
// blocks, as it runs under the session lock.
func (c *Client) pushView(v game.View) {
	select {
	case <-c.views:
	default:
	}

	select {
	case c.views <- v:
	default:
	}
}

func (c *Client) reply(msg any) {
	select {
	case c.send <- msg:
	case <-c.writerDone:
	}
}

// Hub tracks connected clients so they can be dropped on shutdown.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
}

func newHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c)
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// closeAll disconnects every client. Each read pump then cleans up after
// itself.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(ctx context.Context, cfg *Config, g *game.Game, logins *Logins, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		user, _, ok := logins.fromRequest(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Websocket upgrade failed for %s: %v", realIP(r), err)

			return
		}

		client := newClient(conn, user)
		client.session = g.NewSession(user, client.pushView)

		hub.register(client)

		logf(cfg, "GAMES: %s connected from %s (%d online)", user.ID, realIP(r), hub.count())

		go client.writePump()

		client.session.Start()
		client.readPump(ctx, cfg, hub)
	}
}

func (c *Client) readPump(ctx context.Context, cfg *Config, h *Hub) {
	defer func() {
		h.unregister(c)
		c.session.Close()
		close(c.done)
		_ = c.conn.Close()

		logf(cfg, "GAMES: %s disconnected (%d online)", c.user.ID, h.count())
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		actx, cancel := context.WithTimeout(ctx, timeout)
		result, err := c.handle(actx, msg)
		cancel()

		if err != nil {
			logf(cfg, "GAMES: %s %s refused: %v", c.user.ID, msg.Type, err)

			c.reply(ErrorMessage{Type: "error", Action: msg.Type, Message: playerMessage(err)})

			continue
		}

		logf(cfg, "GAMES: %s %s (%+d, %d points)", c.user.ID, msg.Type, result.Delta, result.Points)

		c.reply(ResultMessage{Type: "result", Action: msg.Type, Result: result})
	}
}

func (c *Client) handle(ctx context.Context, msg ClientMessage) (game.Result, error) {
	switch msg.Type {
	case "submit_answer":
		return c.session.SubmitAnswer(ctx, msg.Answer)
	case "request_hint":
		return c.session.RequestHint(ctx)
	case "resolve_dare":
		return c.session.ResolveDare(ctx, msg.Index, game.Outcome(msg.Outcome))
	case "vote_drink":
		return c.session.VoteDrink(ctx, msg.Drink)
	default:
		return game.Result{}, errUnknownMessage
	}
}

func (c *Client) writePump() {
	defer func() {
		close(c.writerDone)
		_ = c.conn.Close()
	}()

	for {
		var msg any

		select {
		case <-c.done:
			return
		case v := <-c.views:
			msg = ViewMessage{Type: "view", View: v}
		case m := <-c.send:
			msg = m
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// playerMessage turns an action error into text fit for the player.
func playerMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrLocked):
		return "Controls are locked. Come back later."
	case errors.Is(err, game.ErrNoPuzzle):
		return "Nothing to answer right now."
	case errors.Is(err, errUnknownMessage):
		return "Unknown action."
	case errors.Is(err, game.ErrValidation):
		_, detail, found := strings.Cut(err.Error(), game.ErrValidation.Error()+": ")
		if !found || detail == "" {
			return "Invalid input."
		}

		r, size := utf8.DecodeRuneInString(detail)

		return string(unicode.ToUpper(r)) + detail[size:]
	default:
		return "Something went wrong. Please try again."
	}
}
