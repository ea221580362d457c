// Package session is the browser-side identity of a logged-in user: the
// bearer token for the API plus the user's id, business and role.
//
// A Session is hydrated from the persistent per-browser store on every
// request and written back only at login; logout clears both.
package session

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Persisted keys. Written at login, removed at logout.
const (
	KeyToken      = "token"
	KeyUsername   = "username"
	KeyUserID     = "id"
	KeyBusinessID = "business_id"
	KeyRole       = "role"
)

// Keys lists every key the session owns.
var Keys = []string{KeyToken, KeyUsername, KeyUserID, KeyBusinessID, KeyRole}

const RoleAdmin = "admin"

// Storage is the persistent key/value store behind a browser session.
// sessions.Session from gin-contrib satisfies it.
type Storage interface {
	Get(key interface{}) interface{}
	Set(key interface{}, val interface{})
	Delete(key interface{})
	Save() error
}

// Session is the identity attached to a browser.
type Session struct {
	Token      string
	Username   string
	UserID     uint
	BusinessID uint
	Role       string
}

func (s Session) Authenticated() bool { return s.Token != "" }

func (s Session) IsAdmin() bool { return s.Authenticated() && s.Role == RoleAdmin }

// Load hydrates a Session from st. Missing or malformed entries yield zero
// fields; a session without a token is anonymous.
func Load(st Storage) Session {
	return Session{
		Token:      getString(st, KeyToken),
		Username:   getString(st, KeyUsername),
		UserID:     getUint(st, KeyUserID),
		BusinessID: getUint(st, KeyBusinessID),
		Role:       getString(st, KeyRole),
	}
}

// Persist writes every field of s to st and saves it.
func (s Session) Persist(st Storage) error {
	st.Set(KeyToken, s.Token)
	st.Set(KeyUsername, s.Username)
	st.Set(KeyUserID, strconv.FormatUint(uint64(s.UserID), 10))
	st.Set(KeyBusinessID, strconv.FormatUint(uint64(s.BusinessID), 10))
	st.Set(KeyRole, s.Role)
	return st.Save()
}

// Clear removes the session keys and any extra keys owned by the caller
// (cart, checkout token) from st, saves it and returns the anonymous session.
func Clear(st Storage, extra ...string) (Session, error) {
	for _, k := range Keys {
		st.Delete(k)
	}
	for _, k := range extra {
		st.Delete(k)
	}
	return Session{}, st.Save()
}

func getString(st Storage, key string) string {
	v, _ := st.Get(key).(string)
	return v
}

func getUint(st Storage, key string) uint {
	n, err := strconv.ParseUint(getString(st, key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

const contextKey = "session"

// Attach stores s in the request context.
func Attach(c *gin.Context, s Session) { c.Set(contextKey, s) }

// From returns the session attached to the request, or the anonymous one.
func From(c *gin.Context) Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(Session); ok {
			return s
		}
	}
	return Session{}
}
