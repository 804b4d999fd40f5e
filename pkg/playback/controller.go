// Package playback drives story playback: narration audio and live Q&A.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"kahaanigo/pkg/convai"
	"kahaanigo/pkg/model"
	"kahaanigo/pkg/prompt"
)

// Phase is the controller's lifecycle state.
type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseNarrating  Phase = "narrating"
	PhaseConversing Phase = "conversing"
	PhaseLive       Phase = "live"
	PhaseEnded      Phase = "ended"
)

// Synthesizer generates narration audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, string, error)
}

// AudioPlayer plays narration audio files.
type AudioPlayer interface {
	Play(filepath string, onComplete func()) error
	Stop()
	SetVolume(vol float64)
}

// Session is a live conversation handle.
type Session interface {
	Events() <-chan convai.Event
	SendMessage(text string) error
	SetVolume(v float64) error
	Close() error
}

// Dialer opens live conversation sessions.
type Dialer interface {
	Dial(ctx context.Context, seed convai.SeedPrompt) (Session, error)
}

// NewConvaiDialer adapts a *convai.Dialer to the Dialer interface.
func NewConvaiDialer(d *convai.Dialer) Dialer {
	return convaiDialer{d}
}

type convaiDialer struct {
	d *convai.Dialer
}

func (c convaiDialer) Dial(ctx context.Context, seed convai.SeedPrompt) (Session, error) {
	return c.d.Dial(ctx, seed)
}

// Controller runs one story's playback. It holds the audio device and at
// most one live session; a second Start while active is a no-op, and Close
// tears everything down exactly once.
type Controller struct {
	tts     Synthesizer
	audio   AudioPlayer
	dialer  Dialer
	prompts *prompt.Manager
	outDir  string
	city    string

	mu         sync.Mutex
	phase      Phase
	isPlaying  bool
	started    bool
	transcript []model.TranscriptEntry
	session    Session
	volume     float64
	volumeSet  bool

	closeOnce sync.Once
}

// New creates a playback controller in the connecting phase.
func New(tts Synthesizer, audio AudioPlayer, dialer Dialer, pm *prompt.Manager, outDir, city string) *Controller {
	return &Controller{
		tts:     tts,
		audio:   audio,
		dialer:  dialer,
		prompts: pm,
		outDir:  outDir,
		city:    city,
		phase:   PhaseConnecting,
	}
}

// seedData feeds the agent/*.tmpl seed prompt templates.
type seedData struct {
	Script        string
	KnowledgeBase string
	LocationName  string
	City          string
	Language      string
}

// Start begins playback for the story. The interaction mode in the story's
// preferences selects the podcast or conversation path. Starting an already
// started controller is a no-op.
func (c *Controller) Start(ctx context.Context, story *model.StoryData) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		slog.Debug("Playback already started, ignoring")
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if story.Preferences.Mode == model.ModeConversation {
		return c.startConversation(ctx, story)
	}
	return c.startPodcast(ctx, story)
}

// startPodcast narrates the script once, then opens a passive Q&A session.
func (c *Controller) startPodcast(ctx context.Context, story *model.StoryData) error {
	// Script text is available before any audio; show it immediately.
	c.append(model.RoleAgent, story.Script)
	c.setPhase(PhaseNarrating, true)

	payload, _, err := c.tts.Synthesize(ctx, story.Script, story.Preferences.VoiceID)
	if err != nil {
		slog.Error("Narration synthesis failed", "error", err)
		c.append(model.RoleSystem, "[Audio playback failed. Showing text only.]")
		c.setPhase(PhaseEnded, false)
		return err
	}

	path, err := c.writeNarration(payload)
	if err != nil {
		c.append(model.RoleSystem, "[Audio playback failed. Showing text only.]")
		c.setPhase(PhaseEnded, false)
		return err
	}

	if err := c.audio.Play(path, func() { c.onNarrationDone(story) }); err != nil {
		c.append(model.RoleSystem, "[Audio playback failed. Showing text only.]")
		c.setPhase(PhaseEnded, false)
		return err
	}
	return nil
}

func (c *Controller) writeNarration(payload []byte) (string, error) {
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating narration dir: %w", err)
	}
	path := filepath.Join(c.outDir, "narration-"+uuid.New().String()+".mp3")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("writing narration: %w", err)
	}
	return path, nil
}

// onNarrationDone fires when narration audio finishes; it opens the passive
// Q&A session seeded with the script and knowledge base.
func (c *Controller) onNarrationDone(story *model.StoryData) {
	c.mu.Lock()
	if c.phase != PhaseNarrating {
		// Stopped or closed while the audio callback was in flight.
		c.mu.Unlock()
		return
	}
	c.phase = PhaseConversing
	c.isPlaying = false
	c.mu.Unlock()

	seed, err := c.prompts.Render("agent/system.tmpl", c.seedFor(story))
	if err != nil {
		slog.Error("Seed prompt render failed", "error", err)
		c.append(model.RoleSystem, "[Conversation unavailable.]")
		c.setPhase(PhaseEnded, false)
		return
	}

	s, err := c.dialer.Dial(context.Background(), convai.SeedPrompt{
		Prompt:   seed,
		Language: story.Preferences.Language,
	})
	if err != nil {
		if errors.Is(err, convai.ErrAgentNotConfigured) {
			c.append(model.RoleSystem, "[Conversation agent not configured. Q&A unavailable.]")
		} else {
			c.append(model.RoleSystem, "[Conversation unavailable.]")
		}
		slog.Warn("Q&A session unavailable", "error", err)
		c.setPhase(PhaseEnded, false)
		return
	}

	c.attachSession(s)
	c.append(model.RoleSystem, fmt.Sprintf("You can now ask me questions about %s!", story.Location.Name))
}

// startConversation opens a continuous narration session for the location.
func (c *Controller) startConversation(ctx context.Context, story *model.StoryData) error {
	seed, err := c.prompts.Render("agent/live.tmpl", c.seedFor(story))
	if err != nil {
		c.append(model.RoleSystem, "[Conversation unavailable.]")
		c.setPhase(PhaseEnded, false)
		return err
	}

	s, err := c.dialer.Dial(ctx, convai.SeedPrompt{
		Prompt:   seed,
		Language: story.Preferences.Language,
	})
	if err != nil {
		if errors.Is(err, convai.ErrAgentNotConfigured) {
			c.append(model.RoleSystem, "[Conversation agent not configured.]")
		} else {
			c.append(model.RoleSystem, "[Failed to start conversation.]")
		}
		c.setPhase(PhaseEnded, false)
		return err
	}

	c.attachSession(s)
	return nil
}

func (c *Controller) seedFor(story *model.StoryData) seedData {
	kb := story.KnowledgeBase
	if kb == "" {
		kb = story.ScrapedContent
	}
	if kb == "" {
		kb = "Historical facts about " + story.Location.Name
	}
	return seedData{
		Script:        story.Script,
		KnowledgeBase: kb,
		LocationName:  story.Location.Name,
		City:          c.city,
		Language:      story.Preferences.Language,
	}
}

func (c *Controller) attachSession(s Session) {
	c.mu.Lock()
	c.session = s
	vol := c.volume
	set := c.volumeSet
	c.mu.Unlock()

	if set {
		if err := s.SetVolume(vol); err != nil {
			slog.Warn("Session volume apply failed", "error", err)
		}
	}
	go c.consume(s)
}

// consume appends session events to the transcript in arrival order.
func (c *Controller) consume(s Session) {
	for ev := range s.Events() {
		switch ev.Type {
		case convai.EventConnected:
			c.mu.Lock()
			if c.phase == PhaseConnecting {
				c.phase = PhaseLive
				c.isPlaying = true
				c.appendLocked(model.RoleSystem, "[Conversation started.]")
			}
			c.mu.Unlock()
		case convai.EventMessage:
			c.append(ev.Role, ev.Text)
		case convai.EventError:
			if ev.Err != nil {
				c.append(model.RoleSystem, fmt.Sprintf("[Conversation error: %v]", ev.Err))
			}
		case convai.EventDisconnected:
			c.setPhase(PhaseEnded, false)
			return
		}
	}
	c.setPhase(PhaseEnded, false)
}

// SendMessage injects a typed user message into the live session. The entry
// is appended optimistically before the provider confirms receipt.
func (c *Controller) SendMessage(text string) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return fmt.Errorf("no active conversation session")
	}
	c.append(model.RoleUser, text)
	return s.SendMessage(text)
}

// SetVolume propagates a volume change to the audio player and any live
// session. Repeated calls with an unchanged value are dropped.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	if c.volumeSet && c.volume == v {
		c.mu.Unlock()
		return
	}
	c.volume = v
	c.volumeSet = true
	s := c.session
	c.mu.Unlock()

	c.audio.SetVolume(v)
	if s != nil {
		if err := s.SetVolume(v); err != nil {
			slog.Warn("Session volume apply failed", "error", err)
		}
	}
}

// Close stops audio and terminates any live session. Idempotent: only the
// first call does the teardown.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		s := c.session
		c.session = nil
		c.phase = PhaseEnded
		c.isPlaying = false
		c.mu.Unlock()

		c.audio.Stop()
		if s != nil {
			s.Close()
		}
	})
	return nil
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// IsPlaying reports whether narration or a live session is audible.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isPlaying
}

// Transcript returns a copy of the conversational history.
func (c *Controller) Transcript() []model.TranscriptEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.TranscriptEntry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

func (c *Controller) setPhase(p Phase, playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseEnded && p != PhaseEnded {
		return
	}
	c.phase = p
	c.isPlaying = playing
}

func (c *Controller) append(role model.TranscriptRole, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(role, text)
}

// appendLocked requires c.mu held. The transcript is append-only; nothing
// ever truncates or reorders it.
func (c *Controller) appendLocked(role model.TranscriptRole, text string) {
	c.transcript = append(c.transcript, model.TranscriptEntry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
}
