package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/chucky-1/moods/internal/model"
)

// Identity tells the mood store who creates entries
type Identity interface {
	Owner() string
}

// Provider reports login and logout of the current actor.
// Listen calls onChange with nil on logout and blocks until ctx is done
type Provider interface {
	Listen(ctx context.Context, onChange func(*model.User)) error
}

// AuthState is the login status shared with every surface
type AuthState struct {
	User     *model.User
	Loading  bool
	LoggedIn bool
	// ProviderControlled is set once a provider has reported at least once
	ProviderControlled bool
}

// Session holds the current actor. Until somebody logs in, entries are stamped with the fallback tag
type Session struct {
	fallback string

	mu          sync.RWMutex
	state       AuthState
	subscribers []stateSubscriber
	nextSubID   int
}

type stateSubscriber struct {
	id int
	fn func(AuthState)
}

func NewSession(fallback string) *Session {
	return &Session{
		fallback: fallback,
		state:    AuthState{Loading: true},
	}
}

func (s *Session) SetUser(user *model.User) {
	if user == nil {
		s.ClearUser()
		return
	}
	s.set(AuthState{User: user, LoggedIn: true, ProviderControlled: true})
}

func (s *Session) ClearUser() {
	s.set(AuthState{ProviderControlled: true})
}

func (s *Session) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Owner returns the tag of the logged in user or the fallback tag
func (s *Session) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return s.fallback
	}
	if tag := s.state.User.Tag(); tag != "" {
		return tag
	}
	return s.fallback
}

// Subscribe calls fn with the current state right away and then on every change.
// Subscribers are called in subscription order
func (s *Session) Subscribe(fn func(AuthState)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, stateSubscriber{id: id, fn: fn})
	state := s.state
	s.mu.Unlock()

	fn(state)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.subscribers {
			if s.subscribers[i].id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Follow forwards provider reports into the session until ctx is done
func (s *Session) Follow(ctx context.Context, provider Provider) error {
	return provider.Listen(ctx, func(user *model.User) {
		if user != nil {
			logrus.Infof("user logged in: %s", user.Tag())
			s.SetUser(user)
			return
		}
		logrus.Info("user logged out")
		s.ClearUser()
	})
}

func (s *Session) set(state AuthState) {
	s.mu.Lock()
	s.state = state
	subscribers := make([]func(AuthState), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subscribers = append(subscribers, sub.fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}

// StaticProvider reports one configured user and never logs out
type StaticProvider struct {
	user *model.User
}

// NewStaticProvider returns a provider for a deployment without real authentication.
// Empty username and email report a logged out actor
func NewStaticProvider(username, email string) *StaticProvider {
	if username == "" && email == "" {
		return &StaticProvider{}
	}
	return &StaticProvider{user: &model.User{Username: username, Email: email}}
}

func (p *StaticProvider) Listen(ctx context.Context, onChange func(*model.User)) error {
	onChange(p.user)
	<-ctx.Done()
	return nil
}
