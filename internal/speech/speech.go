// Package speech models the browser speech capabilities the client
// consumes: voice output behind a Synthesizer interface and voice input as
// a stream of recognition events.
package speech

import (
	"strings"
	"sync"
)

// Voice describes one synthesis voice offered by the platform.
type Voice struct {
	Name string
	Lang string
}

// Utterance is a single speech request.
type Utterance struct {
	Text  string
	Voice Voice
	Rate  float64
	Pitch float64
}

// Synthesizer is the platform text-to-speech capability. Implementations
// are feature-detected; a nil synthesizer disables voice output entirely.
type Synthesizer interface {
	Voices() []Voice
	Speak(u Utterance)
	Cancel()
}

// PickVoice selects the voice used for replies: an English voice whose
// name mentions "male", then the named fallbacks, then any en-US voice,
// then the first voice available.
func PickVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	for _, v := range voices {
		if strings.HasPrefix(v.Lang, "en") && strings.Contains(strings.ToLower(v.Name), "male") {
			return v, true
		}
	}
	for _, v := range voices {
		if strings.HasPrefix(v.Lang, "en") && (strings.Contains(v.Name, "David") || strings.Contains(v.Name, "Google US English")) {
			return v, true
		}
	}
	for _, v := range voices {
		if strings.HasPrefix(v.Lang, "en-US") {
			return v, true
		}
	}
	return voices[0], true
}

// Controller gates voice output behind the user's toggle and guarantees at
// most one utterance is in progress.
type Controller struct {
	mu      sync.Mutex
	synth   Synthesizer
	enabled bool
}

func NewController(synth Synthesizer, enabled bool) *Controller {
	return &Controller{synth: synth, enabled: enabled}
}

// Enabled reports whether voice output is on.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetEnabled flips voice output. Turning it off stops any speech in
// progress, leaving no pending utterance.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled && c.synth != nil {
		c.synth.Cancel()
	}
}

// Speak voices the text, cancelling any in-progress utterance first.
// Disabled or empty input is a no-op.
func (c *Controller) Speak(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || text == "" || c.synth == nil {
		return
	}
	voices := c.synth.Voices()
	voice, ok := PickVoice(voices)
	if !ok {
		return
	}
	c.synth.Cancel()
	c.synth.Speak(Utterance{Text: text, Voice: voice, Rate: 1, Pitch: 1})
}

// Stop cancels any in-progress utterance without changing the toggle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.synth != nil {
		c.synth.Cancel()
	}
}
