// Package session keeps the per-browser login state in a signed cookie.
package session

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "pricedesk"
	stateKey   = "DESK_STATE"
)

// MaxFailedAttempts is the number of consecutive credential failures after
// which the session can no longer log in.
const MaxFailedAttempts = 3

// State is the session's view of the user. It is either logged out with an
// empty identity or logged in with both Email and Name set.
type State struct {
	LoggedIn       bool
	Email          string
	Name           string
	FailedAttempts int
}

func init() {
	gob.Register(State{})
}

// Login moves the state to logged in and resets the failure counter.
func (s *State) Login(email, name string) {
	if name == "" {
		name = email
	}
	s.LoggedIn = true
	s.Email = email
	s.Name = name
	s.FailedAttempts = 0
}

// Logout drops the identity. The failure counter survives so that logging
// out does not reopen a locked form.
func (s *State) Logout() {
	s.LoggedIn = false
	s.Email = ""
	s.Name = ""
}

// RecordFailure counts one more failed login.
func (s *State) RecordFailure() {
	if s.FailedAttempts < MaxFailedAttempts {
		s.FailedAttempts++
	}
}

// Locked reports whether the login form is disabled for this session.
func (s *State) Locked() bool {
	return s.FailedAttempts >= MaxFailedAttempts
}

// Get returns the state stored in the request's session, or a fresh
// logged-out state.
func Get(c *gin.Context) *State {
	s := sessions.Default(c)
	if obj := s.Get(stateKey); obj != nil {
		if state, ok := obj.(State); ok {
			return &state
		}
	}
	return &State{}
}

// Save writes state back to the session cookie.
func Save(c *gin.Context, state *State) error {
	s := sessions.Default(c)
	s.Set(stateKey, *state)
	return s.Save()
}

// IsLogin reports whether the request belongs to a logged-in session.
func IsLogin(c *gin.Context) bool {
	return Get(c).LoggedIn
}

// Logout clears the identity but keeps the failure counter.
func Logout(c *gin.Context) error {
	state := Get(c)
	state.Logout()
	return Save(c, state)
}
