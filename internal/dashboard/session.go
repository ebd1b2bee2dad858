package dashboard

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"subadmin/internal/metrics"
	"subadmin/pkg/jwt"
)

// DefaultMaxSessions bounds the live sessions; the least recently seen one is
// evicted to make room.
const DefaultMaxSessions = 1000

// ErrNoSession is returned by Resolve when the token names no live session and
// creation was not requested.
var ErrNoSession = errors.New("no session")

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Sessions maps browser sessions to their own Controller. Session ids travel
// in a signed token so a client cannot pick someone else's id.
type Sessions struct {
	secret  string
	ttl     time.Duration
	max     int
	factory func() *Controller
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessions(secret string, ttl time.Duration, factory func() *Controller) *Sessions {
	return &Sessions{
		secret:   secret,
		ttl:      ttl,
		max:      DefaultMaxSessions,
		factory:  factory,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Resolve returns the controller behind token and a renewed token to send back
// to the client. When the token is missing, invalid or points to an expired
// session, a new session is started if create is set; otherwise ErrNoSession
// is returned.
func (s *Sessions) Resolve(token string, create bool) (*Controller, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	id, err := jwt.ParseToken(s.secret, token)
	sess, ok := s.sessions[id]
	if err == nil && ok {
		renewed, err := jwt.GenerateToken(s.secret, id, s.ttl)
		if err != nil {
			return nil, "", err
		}
		sess.lastSeen = now
		return sess.ctrl, renewed, nil
	}
	if !create {
		return nil, "", ErrNoSession
	}

	id = uuid.NewString()
	renewed, err := jwt.GenerateToken(s.secret, id, s.ttl)
	if err != nil {
		return nil, "", err
	}
	if len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}
	sess = &session{ctrl: s.factory(), lastSeen: now}
	s.sessions[id] = sess
	metrics.DashboardSessionsActive.Set(float64(len(s.sessions)))
	return sess.ctrl, renewed, nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) sweepLocked(now time.Time) {
	removed := false
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed = true
		}
	}
	if removed {
		metrics.DashboardSessionsActive.Set(float64(len(s.sessions)))
	}
}

func (s *Sessions) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}
