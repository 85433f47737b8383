package speech

import "sync"

// RecognitionEvent is one result from the speech recognizer. Interim
// events carry a provisional transcript that later events replace; final
// events carry text that is ready to commit.
type RecognitionEvent struct {
	Transcript string
	Final      bool
}

// Recognizer is the platform speech-to-text capability.
type Recognizer interface {
	Start() error
	Stop()
	Events() <-chan RecognitionEvent
}

// Dictation accumulates recognized speech into pending input. Only final
// transcripts are committed; interim results are discarded so the input
// never flickers with provisional text.
type Dictation struct {
	mu        sync.Mutex
	rec       Recognizer
	listening bool
	pending   string
	done      chan struct{}
}

func NewDictation(rec Recognizer) *Dictation {
	return &Dictation{rec: rec}
}

// Listening reports whether the recognizer is active.
func (d *Dictation) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

// Start begins recognition. Starting while already listening is a no-op.
func (d *Dictation) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listening || d.rec == nil {
		return nil
	}
	if err := d.rec.Start(); err != nil {
		return err
	}
	d.listening = true
	d.done = make(chan struct{})
	go d.consume(d.done)
	return nil
}

// Stop ends recognition. Pending text already committed stays.
func (d *Dictation) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.listening {
		return
	}
	d.listening = false
	close(d.done)
	d.rec.Stop()
}

// Pending returns the accumulated final transcript text.
func (d *Dictation) Pending() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Take returns the accumulated text and clears it.
func (d *Dictation) Take() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	text := d.pending
	d.pending = ""
	return text
}

func (d *Dictation) consume(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-d.rec.Events():
			if !ok {
				return
			}
			if !ev.Final {
				continue
			}
			d.mu.Lock()
			d.pending += ev.Transcript
			d.mu.Unlock()
		}
	}
}
