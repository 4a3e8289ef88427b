// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package mapsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chefzaid/travelmapster/internal/client"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/visitation"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

// DefaultSearchDebounce is the quiet period before a search fires.
const DefaultSearchDebounce = 300 * time.Millisecond

// ErrUnauthorized is returned by operations that need a logged-in user.
var ErrUnauthorized = errors.New("not logged in")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("session closed")

// State is the authentication state of a Session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Backend is everything a Session needs from the server.
// Satisfied by *client.Client.
type Backend interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error

	ListMarkers(ctx context.Context) ([]models.Marker, error)
	AddMarker(ctx context.Context, fields models.MarkerFields) (int64, error)
	DeleteMarker(ctx context.Context, id int64) (bool, error)

	ResolveClick(ctx context.Context, at models.Coordinate) (models.Candidate, error)
	ResolveText(ctx context.Context, query string, category models.Category) (models.Candidate, error)
	PinPoint(ctx context.Context, at models.Coordinate, kind models.Kind, viewport *geo.BBox) (*markers.Placement, error)

	Watch(ctx context.Context, onChange func(ws.MarkersChangedData)) error
}

var _ Backend = (*client.Client)(nil)

// Options configures a Session.
type Options struct {
	// SearchDebounce defaults to DefaultSearchDebounce.
	SearchDebounce time.Duration

	// OnChange receives a fresh View after every reload and state change.
	OnChange func(View)

	// OnSearch receives the result of the latest search only. It runs
	// while searches are held, so it must not call Search itself.
	OnSearch func(SearchResult)
}

// View is an immutable snapshot for rendering.
type View struct {
	State     State
	User      *models.User
	Markers   []models.Marker
	Visited   []string
	LastError string
}

// Session is the client-side state of one map tab: the user, their
// markers and the visited-country projection. Sessions are independent;
// there is no shared state between them.
type Session struct {
	backend  Backend
	onChange func(View)
	onSearch func(SearchResult)
	search   *debouncer

	// base is canceled by Close and parents all background work.
	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	user    *models.User
	markers []models.Marker
	visited visitation.VisitedSet
	lastErr string
	closed  bool

	// epoch changes on login and logout. Reloads are numbered so a slow
	// response never overwrites a newer one.
	epoch   uint64
	issued  uint64
	applied uint64
}

// New creates an unauthenticated Session.
func New(backend Backend, opts Options) *Session {
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = DefaultSearchDebounce
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend:  backend,
		onChange: opts.OnChange,
		onSearch: opts.OnSearch,
		base:     base,
		cancel:   cancel,
		visited:  visitation.Project(nil),
	}
	s.search = newDebouncer(base, opts.SearchDebounce, backend.ResolveText, s.searchDone)
	return s
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the message of the most recent failure, or "" when the
// last operation succeeded.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// View returns a snapshot safe to keep and share.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		State:     s.state,
		Markers:   append([]models.Marker(nil), s.markers...),
		Visited:   s.visited.Names(),
		LastError: s.lastErr,
	}
	if s.user != nil {
		u := *s.user
		v.User = &u
	}
	return v
}

// Restore resumes an existing server session. It reports whether one was
// found; no session is not an error.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if err := s.open(); err != nil {
		return false, err
	}
	user, err := s.backend.CurrentUser(ctx)
	if err != nil {
		return false, s.fail(err)
	}
	if user == nil {
		s.clear("")
		return false, nil
	}
	if err := s.authenticate(ctx, user); err != nil {
		return true, err
	}
	return true, nil
}

// Login authenticates and loads the user's markers.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := s.open(); err != nil {
		return err
	}
	user, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return s.fail(err)
	}
	return s.authenticate(ctx, user)
}

// Register creates an account. The session stays unauthenticated; call
// Login next.
func (s *Session) Register(ctx context.Context, username, password string) error {
	if err := s.open(); err != nil {
		return err
	}
	if err := s.backend.Register(ctx, username, password); err != nil {
		return s.fail(err)
	}
	s.succeed()
	return nil
}

// Logout ends the server session and clears all local state, even when the
// server call fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	s.search.Cancel()
	if err != nil {
		s.clear(describe(err))
		logging.Warn().Err(err).Msg("Logout failed on the server, local state cleared")
		return err
	}
	s.clear("")
	return nil
}

// Reload fetches the authoritative marker list and recomputes the visited
// set from scratch.
func (s *Session) Reload(ctx context.Context) error {
	epoch, err := s.requireAuth()
	if err != nil {
		return err
	}
	return s.reload(ctx, epoch)
}

// Watch reloads whenever the server reports a change to the user's
// markers, keeping several tabs of one user consistent. It blocks until
// ctx is canceled, Close is called or the feed drops.
func (s *Session) Watch(ctx context.Context) error {
	if _, err := s.requireAuth(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	err := s.backend.Watch(ctx, func(change ws.MarkersChangedData) {
		logging.Debug().Str("reason", change.Reason).Int64("marker_id", change.MarkerID).Msg("Remote marker change")
		epoch, err := s.requireAuth()
		if err != nil {
			return
		}
		_ = s.reload(ctx, epoch)
	})
	if err != nil {
		return s.fail(err)
	}
	return nil
}

// Close cancels pending searches and background work. The session is
// unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.search.Cancel()
	s.cancel()
}

func (s *Session) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// requireAuth returns the current epoch when authenticated.
func (s *Session) requireAuth() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.state != Authenticated {
		return 0, ErrUnauthorized
	}
	return s.epoch, nil
}

func (s *Session) authenticate(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	s.state = Authenticated
	s.user = user
	s.markers = nil
	s.visited = visitation.Project(nil)
	s.lastErr = ""
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	logging.Debug().Int64("user_id", user.ID).Str("username", user.Username).Msg("Map session authenticated")
	return s.reload(ctx, epoch)
}

// reload fetches the list and applies it unless the user changed or a
// later reload already landed.
func (s *Session) reload(ctx context.Context, epoch uint64) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	list, err := s.backend.ListMarkers(ctx)
	if err != nil {
		return s.fail(err)
	}
	visited := visitation.Project(list)

	s.mu.Lock()
	if s.epoch != epoch || s.state != Authenticated || seq <= s.applied {
		s.mu.Unlock()
		return nil
	}
	s.applied = seq
	s.markers = list
	s.visited = visited
	s.lastErr = ""
	view := s.viewLocked()
	s.mu.Unlock()

	s.render(view)
	return nil
}

// clear drops every piece of user state.
func (s *Session) clear(lastErr string) {
	s.mu.Lock()
	s.state = Unauthenticated
	s.user = nil
	s.markers = nil
	s.visited = visitation.Project(nil)
	s.lastErr = lastErr
	s.epoch++
	view := s.viewLocked()
	s.mu.Unlock()

	s.render(view)
}

func (s *Session) succeed() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// fail records err for LastError. A server-side 401 means the session
// expired, so local state is cleared and ErrUnauthorized returned.
func (s *Session) fail(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		wasAuthenticated := s.State() == Authenticated
		s.clear(describe(err))
		if wasAuthenticated {
			logging.Info().Msg("Server session expired, map session cleared")
		}
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	s.mu.Lock()
	s.lastErr = describe(err)
	view := s.viewLocked()
	s.mu.Unlock()
	s.render(view)
	return err
}

func (s *Session) render(v View) {
	if s.onChange != nil {
		s.onChange(v)
	}
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrNotFound):
		return "not found"
	case errors.Is(err, client.ErrUnreachable):
		return "service unreachable, try again"
	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, ErrUnauthorized):
		return "please log in"
	case errors.Is(err, client.ErrConflict):
		return "username already taken"
	default:
		var se *client.StatusError
		if errors.As(err, &se) {
			return se.Message
		}
		return err.Error()
	}
}
