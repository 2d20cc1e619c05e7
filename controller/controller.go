// Package controller owns the state of one assistant panel: the fetched
// email, its analyses, the current reply suggestions with their undo
// history, and the display settings.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mailassist/models"
	"mailassist/services"
	"mailassist/utils"
)

// ErrorKind identifies which operation produced the banner message
type ErrorKind int

const (
	NoError ErrorKind = iota
	ErrorInitialLoad
	ErrorRegenerate
)

const (
	InitialLoadFailedMessage = "Failed to load email data and initial analysis."
	RegenerateFailedMessage  = "Could not generate responses. Please try again."
)

// ErrNoEmail is returned when suggestions are requested before an email was loaded
var ErrNoEmail = errors.New("no email loaded")

// Message returns the user-facing text for the kind
func (k ErrorKind) Message() string {
	switch k {
	case ErrorInitialLoad:
		return InitialLoadFailedMessage
	case ErrorRegenerate:
		return RegenerateFailedMessage
	default:
		return ""
	}
}

// Snapshot is a point-in-time copy of the controller state
type Snapshot struct {
	Settings     models.AppSettings
	Email        *models.Email
	Security     *models.SecurityAnalysis
	Analysis     *models.EmailAnalysisResult
	FollowUp     *models.FollowUpAnalysis
	Suggestions  []string
	HistoryDepth int
	Tone         models.Tone
	Instruction  string
	Loading      bool
	Error        string
	ErrorKind    ErrorKind
	Started      bool
}

// Controller coordinates the email source and the AI services for one
// panel. Service calls run without the lock held; overlapping
// regenerations are not cancelled and the one that settles last wins.
type Controller struct {
	emails    services.EmailSource
	analyzer  services.AnalysisService
	suggester services.SuggestionService
	onChange  func()
	log       *utils.Logger

	mu             sync.Mutex
	settings       models.AppSettings
	email          *models.Email
	security       *models.SecurityAnalysis
	analysis       *models.EmailAnalysisResult
	followUp       *models.FollowUpAnalysis
	suggestions    []string
	history        [][]string
	tone           models.Tone
	instruction    string
	pending        int
	// calls already counted in pending by BeginInitialLoad, BeginReload
	// or BeginRegenerate
	reservedLoads  int
	reservedRegens int
	errKind        ErrorKind
	started        bool
}

type Option func(*Controller)

// WithSettings sets the initial settings
func WithSettings(s models.AppSettings) Option {
	return func(c *Controller) { c.settings = s.Normalize() }
}

// WithOnChange registers fn to run whenever an asynchronous call settles
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

func WithLogger(l *utils.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func New(emails services.EmailSource, analyzer services.AnalysisService, suggester services.SuggestionService, opts ...Option) *Controller {
	c := &Controller{
		emails:    emails,
		analyzer:  analyzer,
		suggester: suggester,
		settings:  models.DefaultSettings(),
		tone:      models.DefaultTone,
		log:       utils.Log.WithField("component", "controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BeginInitialLoad marks the controller as started. It returns false if the
// initial load was already kicked off, so callers run it at most once.
func (c *Controller) BeginInitialLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return false
	}
	c.started = true
	c.reservedLoads++
	c.pending++
	return true
}

// BeginReload counts a rerun of InitialLoad as pending before it is
// dispatched, so renders in between show the loading state.
func (c *Controller) BeginReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.reservedLoads++
	c.pending++
}

// BeginRegenerate counts the next RegenerateSuggestions or
// ApplyInstructions call as pending before it is dispatched.
func (c *Controller) BeginRegenerate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reservedRegens++
	c.pending++
}

// InitialLoad fetches the email, analyses it and requests the first
// suggestions, strictly in that order. Any failure records the initial load
// error. If this run did not get as far as an analysis, a safe placeholder
// replaces whatever security result was shown before.
func (c *Controller) InitialLoad(ctx context.Context) {
	c.mu.Lock()
	if c.reservedLoads > 0 {
		c.reservedLoads--
	} else {
		c.pending++
	}
	c.started = true
	c.errKind = NoError
	c.mu.Unlock()

	defer func() {
		c.end()
		c.notify()
	}()

	if analyzed, err := c.load(ctx); err != nil {
		c.log.WithError(err).Warn("initial load failed")
		c.mu.Lock()
		c.errKind = ErrorInitialLoad
		if !analyzed {
			c.security = models.UnknownSecurity()
		}
		c.mu.Unlock()
	}
}

// load runs the initial sequence. analyzed reports whether the analysis
// step completed, even when the suggestions failed afterwards.
func (c *Controller) load(ctx context.Context) (analyzed bool, err error) {
	email, err := c.emails.CurrentEmail(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch email: %w", err)
	}

	c.mu.Lock()
	c.email = email
	c.mu.Unlock()

	full, err := c.analyzer.Analyze(ctx, email)
	if err != nil {
		return false, fmt.Errorf("analyze email: %w", err)
	}

	c.mu.Lock()
	security := full.Security
	result := full.Result()
	followUp := full.FollowUp
	c.security = &security
	c.analysis = &result
	c.followUp = &followUp
	tone, instruction, settings := c.tone, c.instruction, c.settings
	c.mu.Unlock()

	if err := c.regenerate(ctx, email, tone, instruction, settings.SuggestionCount, settings.SystemInstruction); err != nil {
		return true, fmt.Errorf("generate suggestions: %w", err)
	}
	return true, nil
}

// RegenerateSuggestions replaces the current suggestions with a fresh set.
// A non-empty current list is pushed onto the history first. On failure the
// previous suggestions stay visible and the regenerate error is recorded.
func (c *Controller) RegenerateSuggestions(ctx context.Context, email *models.Email, tone models.Tone, instruction string, count int, systemInstruction string) error {
	defer c.notify()

	c.mu.Lock()
	if c.reservedRegens > 0 {
		c.reservedRegens--
	} else {
		c.pending++
	}
	c.mu.Unlock()
	defer c.end()

	if err := c.regenerate(ctx, email, tone, instruction, count, systemInstruction); err != nil {
		c.log.WithError(err).WithField("tone", tone).Warn("suggestion regeneration failed")
		c.mu.Lock()
		c.errKind = ErrorRegenerate
		c.mu.Unlock()
		return err
	}
	return nil
}

// regenerate swaps in a new suggestion list. Callers hold a pending slot.
func (c *Controller) regenerate(ctx context.Context, email *models.Email, tone models.Tone, instruction string, count int, systemInstruction string) error {
	c.mu.Lock()
	c.errKind = NoError
	if len(c.suggestions) > 0 {
		c.history = append(c.history, cloneStrings(c.suggestions))
	}
	c.mu.Unlock()

	result, err := c.suggester.GenerateSuggestions(ctx, email, tone, instruction, count, systemInstruction)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.suggestions = cloneStrings(result)
	c.mu.Unlock()
	return nil
}

// ApplyInstructions regenerates with the editor's tone and instruction and
// the configured count and system instruction.
func (c *Controller) ApplyInstructions(ctx context.Context) error {
	c.mu.Lock()
	email, tone, instruction, settings := c.email, c.tone, c.instruction, c.settings
	c.mu.Unlock()

	if email == nil {
		c.mu.Lock()
		if c.reservedRegens > 0 {
			c.reservedRegens--
			c.pending--
		}
		c.mu.Unlock()
		return ErrNoEmail
	}
	return c.RegenerateSuggestions(ctx, email, tone, instruction, settings.SuggestionCount, settings.SystemInstruction)
}

// GoBack restores the most recent history entry. It reports false when the
// history is empty.
func (c *Controller) GoBack() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.history)
	if n == 0 {
		return false
	}
	c.suggestions = c.history[n-1]
	c.history[n-1] = nil
	c.history = c.history[:n-1]
	return true
}

// SetTone selects one of the fixed tones
func (c *Controller) SetTone(tone models.Tone) error {
	if _, ok := models.ParseTone(string(tone)); !ok {
		return fmt.Errorf("unknown tone %q", tone)
	}
	c.mu.Lock()
	c.tone = tone
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetInstruction(instruction string) {
	c.mu.Lock()
	c.instruction = instruction
	c.mu.Unlock()
}

// EffectiveTheme resolves the theme for a render given the platform
// preference reported by the browser
func (c *Controller) EffectiveTheme(platform models.Theme) models.Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.EffectiveTheme(platform)
}

// ToggleTheme switches to the opposite of the effective theme and turns
// off sync with the system. It returns the new theme.
func (c *Controller) ToggleTheme(platform models.Theme) models.Theme {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.settings.EffectiveTheme(platform).Opposite()
	c.settings.SyncWithSystem = false
	c.settings.Theme = next
	return next
}

func (c *Controller) Settings() models.AppSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// ReplaceSettings applies s immediately. Out-of-range values fall back to
// their defaults.
func (c *Controller) ReplaceSettings(s models.AppSettings) models.AppSettings {
	s = s.Normalize()
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return s
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Settings:     c.settings,
		Email:        c.email,
		Security:     c.security,
		Analysis:     c.analysis,
		FollowUp:     c.followUp,
		Suggestions:  cloneStrings(c.suggestions),
		HistoryDepth: len(c.history),
		Tone:         c.tone,
		Instruction:  c.instruction,
		Loading:      c.pending > 0,
		Error:        c.errKind.Message(),
		ErrorKind:    c.errKind,
		Started:      c.started,
	}
}

func (c *Controller) end() {
	c.mu.Lock()
	if c.pending > 0 {
		c.pending--
	}
	c.mu.Unlock()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
