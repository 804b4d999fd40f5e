package model

// Story modes (narrative lens).
const (
	StoryModeDark   = "dark"
	StoryModeBright = "bright"
	StoryModeBoth   = "both"
)

// Interaction modes.
const (
	ModeNarrate      = "narrate"
	ModeConversation = "conversation"
)

// EraAll disables era filtering in research prompts.
const EraAll = "all"

// Supported narration languages.
var Languages = []string{"english", "hindi", "marathi", "hinglish"}

// Preferences is the user's story configuration for one pipeline run.
// Immutable after Normalize.
//
// The canonical schema uses StoryMode and Era; DateRange and Lens are
// deprecated aliases accepted on input for older callers and folded into
// the canonical fields by Normalize.
type Preferences struct {
	StoryMode  string `json:"storyMode"`
	Era        string `json:"era"`
	VoiceStyle string `json:"voiceStyle"`
	Language   string `json:"language"`
	Length     string `json:"length"`
	Mode       string `json:"mode"`
	VoiceID    string `json:"voiceId,omitempty"`

	// Deprecated aliases.
	DateRange string `json:"dateRange,omitempty"`
	Lens      string `json:"lens,omitempty"`
}

// Normalize folds deprecated aliases into the canonical fields and fills
// defaults for anything left unset. It returns the receiver for chaining.
func (p *Preferences) Normalize() *Preferences {
	if p.Era == "" && p.DateRange != "" {
		p.Era = p.DateRange
	}
	p.DateRange = ""

	if p.StoryMode == "" && p.Lens != "" {
		p.StoryMode = p.Lens
	}
	p.Lens = ""

	switch p.StoryMode {
	case StoryModeDark, StoryModeBright, StoryModeBoth:
	default:
		p.StoryMode = StoryModeBoth
	}

	if p.Era == "" {
		p.Era = EraAll
	}
	if p.Language == "" {
		p.Language = "english"
	}
	if p.Length == "" {
		p.Length = "medium"
	}

	switch p.Mode {
	case ModeNarrate, ModeConversation:
	default:
		p.Mode = ModeNarrate
	}

	return p
}
