// Package state keeps the per-browser visualization state in a signed
// cookie session: the current upload and the last chart request.
package state

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie name.
const SessionName = "mlviz"

const (
	keyUploadID  = "upload_id"
	keyVizParams = "viz_params"
)

// VizParams is the last visualization a session asked for, kept so a
// download can re-render it.
type VizParams struct {
	UploadID  string
	ChartType string
	Columns   []string
	Target    string
}

func init() {
	gob.Register(VizParams{})
}

// NewCookieStore returns a cookie store with the options the server uses.
func NewCookieStore(secret string, maxAge int) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Store reads and writes visualization state on a session store.
type Store struct {
	sessions sessions.Store
}

// New wraps a session store.
func New(s sessions.Store) *Store {
	return &Store{sessions: s}
}

func (s *Store) session(r *http.Request) *sessions.Session {
	// Get returns a fresh session alongside the error when the cookie
	// cannot be decoded, which is what a stale cookie should become.
	sess, _ := s.sessions.Get(r, SessionName)
	return sess
}

// UploadID returns the session's current upload.
func (s *Store) UploadID(r *http.Request) (string, bool) {
	id, ok := s.session(r).Values[keyUploadID].(string)
	return id, ok && id != ""
}

// SetUploadID records a new upload and forgets any previous chart, since
// it referred to the old dataset.
func (s *Store) SetUploadID(w http.ResponseWriter, r *http.Request, id string) error {
	sess := s.session(r)
	sess.Values[keyUploadID] = id
	delete(sess.Values, keyVizParams)
	return sess.Save(r, w)
}

// VizParams returns the last stored visualization request.
func (s *Store) VizParams(r *http.Request) (VizParams, bool) {
	p, ok := s.session(r).Values[keyVizParams].(VizParams)
	return p, ok
}

// SetVizParams stores p as the session's last visualization.
func (s *Store) SetVizParams(w http.ResponseWriter, r *http.Request, p VizParams) error {
	sess := s.session(r)
	sess.Values[keyVizParams] = p
	if p.UploadID != "" {
		sess.Values[keyUploadID] = p.UploadID
	}
	return sess.Save(r, w)
}

// Clear drops all visualization state for the session.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := s.session(r)
	delete(sess.Values, keyUploadID)
	delete(sess.Values, keyVizParams)
	return sess.Save(r, w)
}
