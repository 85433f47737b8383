package speech

import (
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

type fakeSynth struct {
	mu      sync.Mutex
	voices  []Voice
	spoken  []Utterance
	cancels int
}

func (f *fakeSynth) Voices() []Voice {
	return f.voices
}

func (f *fakeSynth) Speak(u Utterance) {
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.mu.Unlock()
}

func (f *fakeSynth) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func TestPickVoicePrefersEnglishMale(t *testing.T) {
	voices := []Voice{
		{Name: "Amelie", Lang: "fr-FR"},
		{Name: "Microsoft Zira", Lang: "en-US"},
		{Name: "English Male Voice", Lang: "en-GB"},
	}
	got, ok := PickVoice(voices)
	if !ok || got.Name != "English Male Voice" {
		t.Fatalf("expected male voice, got %+v", got)
	}
}

func TestPickVoiceNamedFallbacks(t *testing.T) {
	voices := []Voice{
		{Name: "Amelie", Lang: "fr-FR"},
		{Name: "Microsoft David", Lang: "en-US"},
	}
	got, _ := PickVoice(voices)
	if got.Name != "Microsoft David" {
		t.Fatalf("expected David fallback, got %+v", got)
	}

	voices = []Voice{
		{Name: "Amelie", Lang: "fr-FR"},
		{Name: "Google US English", Lang: "en-US"},
	}
	got, _ = PickVoice(voices)
	if got.Name != "Google US English" {
		t.Fatalf("expected Google US English fallback, got %+v", got)
	}
}

func TestPickVoiceLocaleThenFirst(t *testing.T) {
	voices := []Voice{
		{Name: "Amelie", Lang: "fr-FR"},
		{Name: "Samantha", Lang: "en-US"},
	}
	got, _ := PickVoice(voices)
	if got.Name != "Samantha" {
		t.Fatalf("expected en-US fallback, got %+v", got)
	}

	voices = []Voice{
		{Name: "Amelie", Lang: "fr-FR"},
		{Name: "Yuna", Lang: "ko-KR"},
	}
	got, _ = PickVoice(voices)
	if got.Name != "Amelie" {
		t.Fatalf("expected first voice fallback, got %+v", got)
	}

	if _, ok := PickVoice(nil); ok {
		t.Fatalf("no voices should report not ok")
	}
}

func TestControllerSpeakCancelsPrevious(t *testing.T) {
	synth := &fakeSynth{voices: []Voice{{Name: "Samantha", Lang: "en-US"}}}
	ctl := NewController(synth, true)

	ctl.Speak("first")
	ctl.Speak("second")
	if len(synth.spoken) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(synth.spoken))
	}
	if synth.cancels != 2 {
		t.Fatalf("each speak must cancel in-progress speech, got %d cancels", synth.cancels)
	}
	u := synth.spoken[1]
	if u.Text != "second" || u.Rate != 1 || u.Pitch != 1 {
		t.Fatalf("unexpected utterance %+v", u)
	}
	if u.Voice.Name != "Samantha" {
		t.Fatalf("voice not selected: %+v", u.Voice)
	}
}

func TestControllerDisabledIsNoOp(t *testing.T) {
	synth := &fakeSynth{voices: []Voice{{Name: "Samantha", Lang: "en-US"}}}
	ctl := NewController(synth, false)

	ctl.Speak("ignored")
	if len(synth.spoken) != 0 {
		t.Fatalf("disabled controller must not speak")
	}

	ctl.SetEnabled(true)
	ctl.Speak("")
	if len(synth.spoken) != 0 {
		t.Fatalf("empty text must not speak")
	}
}

func TestControllerDisableStopsSpeech(t *testing.T) {
	synth := &fakeSynth{voices: []Voice{{Name: "Samantha", Lang: "en-US"}}}
	ctl := NewController(synth, true)

	ctl.Speak("long reply")
	before := synth.cancels
	ctl.SetEnabled(false)
	if synth.cancels != before+1 {
		t.Fatalf("turning voice off must cancel in-progress speech")
	}
	if ctl.Enabled() {
		t.Fatalf("controller still enabled")
	}
}

type fakeRecognizer struct {
	events  chan RecognitionEvent
	started int
	stopped int
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan RecognitionEvent, 16)}
}

func (f *fakeRecognizer) Start() error {
	f.started++
	return nil
}

func (f *fakeRecognizer) Stop() {
	f.stopped++
}

func (f *fakeRecognizer) Events() <-chan RecognitionEvent {
	return f.events
}

func TestDictationCommitsOnlyFinalTranscripts(t *testing.T) {
	rec := newFakeRecognizer()
	d := NewDictation(rec)
	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Listening() {
		t.Fatalf("dictation should be listening")
	}

	rec.events <- RecognitionEvent{Transcript: "hel", Final: false}
	rec.events <- RecognitionEvent{Transcript: "hello ", Final: true}
	rec.events <- RecognitionEvent{Transcript: "wor", Final: false}
	rec.events <- RecognitionEvent{Transcript: "world", Final: true}
	close(rec.events)

	waitFor(t, func() bool { return d.Pending() == "hello world" })
	if got := d.Take(); got != "hello world" {
		t.Fatalf("take returned %q", got)
	}
	if d.Pending() != "" {
		t.Fatalf("take must clear pending text")
	}
}

func TestDictationStartStopIdempotent(t *testing.T) {
	rec := newFakeRecognizer()
	d := NewDictation(rec)
	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("double start: %v", err)
	}
	if rec.started != 1 {
		t.Fatalf("recognizer started %d times", rec.started)
	}
	d.Stop()
	d.Stop()
	if rec.stopped != 1 {
		t.Fatalf("recognizer stopped %d times", rec.stopped)
	}
	if d.Listening() {
		t.Fatalf("dictation still listening after stop")
	}
}
