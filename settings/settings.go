// Package settings holds the signed in user's interface preferences in one
// place and tells subscribers whenever they change.
package settings

import (
	"context"
	"fmt"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/models"
)

// Store persists preferences. *client.Client implements it against the API.
type Store interface {
	LoadSettings(ctx context.Context) (models.UserPreferences, error)
	SaveSettings(ctx context.Context, p models.UserPreferences) (models.UserPreferences, error)
}

// Listener is called with the new preferences after every change
type Listener func(models.UserPreferences)

// Context is the single source of truth for the user's preferences
type Context struct {
	store Store

	mu        sync.RWMutex
	current   models.UserPreferences
	listeners map[int]Listener
	nextID    int
}

// New returns a context holding the defaults until Load is called
func New(store Store) *Context {
	return &Context{
		store:     store,
		current:   models.DefaultUserPreferences(""),
		listeners: map[int]Listener{},
	}
}

// Current returns the preferences in effect
func (c *Context) Current() models.UserPreferences {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe registers fn and returns a function that removes it
func (c *Context) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Load replaces the current preferences with the stored ones
func (c *Context) Load(ctx context.Context) error {
	p, err := c.store.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	c.set(p)
	return nil
}

// Update applies edit to a copy of the current preferences, saves the result
// and notifies subscribers. When saving fails nothing changes.
func (c *Context) Update(ctx context.Context, edit func(p *models.UserPreferences)) error {
	next := c.Current()
	edit(&next)
	if err := validation.Validate(next.Language, validation.In(languages()...).Error("unsupported language")); err != nil {
		return fmt.Errorf("language: %w", err)
	}

	saved, err := c.store.SaveSettings(ctx, next)
	if err != nil {
		zap.S().Warnw("failed to save settings", "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	c.set(saved)
	return nil
}

// SetDarkMode switches the theme
func (c *Context) SetDarkMode(ctx context.Context, on bool) error {
	return c.Update(ctx, func(p *models.UserPreferences) { p.DarkMode = on })
}

// SetLanguage changes the interface language
func (c *Context) SetLanguage(ctx context.Context, lang string) error {
	return c.Update(ctx, func(p *models.UserPreferences) { p.Language = lang })
}

// SetHearingReminders switches the hearing reminder email on or off
func (c *Context) SetHearingReminders(ctx context.Context, on bool) error {
	return c.Update(ctx, func(p *models.UserPreferences) { p.HearingReminders = on })
}

// Reset drops back to the defaults without touching the store, e.g. on logout
func (c *Context) Reset() {
	c.set(models.DefaultUserPreferences(""))
}

func (c *Context) set(p models.UserPreferences) {
	c.mu.Lock()
	if c.current == p {
		c.mu.Unlock()
		return
	}
	c.current = p
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(p)
	}
}

func languages() []interface{} {
	out := make([]interface{}, len(models.Languages))
	for i, l := range models.Languages {
		out[i] = l
	}
	return out
}
