package playground

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/psplay/internal/feedback"
)

const (
	sessionName = "psplay"
	sessionKey  = "board"

	// DefaultMaxBoards bounds how many session boards are kept in memory.
	DefaultMaxBoards = 1024
)

// Boards keeps one feedback board per browser session.
type Boards struct {
	store sessions.Store
	max   int

	mu     sync.Mutex
	boards map[string]*boardEntry
}

type boardEntry struct {
	board    *feedback.Board
	lastUsed time.Time
}

// NewBoards creates a registry backed by store.
func NewBoards(store sessions.Store, maxBoards int) *Boards {
	if maxBoards <= 0 {
		maxBoards = DefaultMaxBoards
	}
	return &Boards{store: store, max: maxBoards, boards: make(map[string]*boardEntry)}
}

// For returns the board of the request's session, starting a session when
// the request has none. It must run before the response is written.
func (b *Boards) For(w http.ResponseWriter, r *http.Request) (*feedback.Board, error) {
	// a cookie that no longer decodes yields a fresh session
	session, _ := b.store.Get(r, sessionName)
	if session == nil {
		return nil, fmt.Errorf("no session available")
	}

	id, _ := session.Values[sessionKey].(string)
	if id == "" {
		id = uuid.NewString()
		session.Values[sessionKey] = id
		if err := session.Save(r, w); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	return b.board(id), nil
}

// Peek returns the board of the request's session without creating one.
func (b *Boards) Peek(r *http.Request) *feedback.Board {
	session, _ := b.store.Get(r, sessionName)
	if session == nil {
		return nil
	}
	id, _ := session.Values[sessionKey].(string)
	if id == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.boards[id]; ok {
		return e.board
	}
	return nil
}

// Len returns the number of live boards.
func (b *Boards) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.boards)
}

func (b *Boards) board(id string) *feedback.Board {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if e, ok := b.boards[id]; ok {
		e.lastUsed = now
		return e.board
	}
	if len(b.boards) >= b.max {
		b.evictOldest()
	}
	e := &boardEntry{board: feedback.NewBoard(), lastUsed: now}
	b.boards[id] = e
	return e.board
}

func (b *Boards) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range b.boards {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	delete(b.boards, oldestID)
}
