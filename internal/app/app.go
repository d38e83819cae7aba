// Package app implements the planner core: the event creation conversation,
// event listing, invite handling, and RSVP coordination.
package app

import (
	"errors"

	"tomorrowplanner/internal/invite"
	"tomorrowplanner/pkg/store"
)

// Config wires required dependencies for the application core.
type Config struct {
	Store       store.Store
	Sessions    store.SessionStore
	Codec       *invite.Codec
	BotUsername string
}

// App is the application service behind the chat transport.
type App struct {
	store       store.Store
	sessions    store.SessionStore
	codec       *invite.Codec
	botUsername string
	locks       *userLocks
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("invite codec required")
	}
	if cfg.BotUsername == "" {
		return nil, errors.New("bot username required")
	}
	return &App{
		store:       cfg.Store,
		sessions:    cfg.Sessions,
		codec:       cfg.Codec,
		botUsername: cfg.BotUsername,
		locks:       newUserLocks(),
	}, nil
}
