package notify

import (
	"fmt"
	"log/slog"
	"sync"
)

//go:generate moq -out notifier_mock.go . Notifier

// Notifier accepts outcomes. Notify must return promptly.
type Notifier interface {
	Notify(outcome Outcome)
}

// Func adapts a function to Notifier
type Func func(outcome Outcome)

// Notify calls f
func (f Func) Notify(outcome Outcome) {
	f(outcome)
}

// Nop discards outcomes
type Nop struct{}

// Notify does nothing
func (Nop) Notify(Outcome) {}

// Multi delivers every outcome to each notifier in order.
// A panicking notifier does not prevent delivery to the others.
func Multi(logger *slog.Logger, notifiers ...Notifier) Notifier {
	safe := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			safe = append(safe, Safe(n, logger))
		}
	}
	return multi(safe)
}

type multi []Notifier

func (m multi) Notify(outcome Outcome) {
	for _, n := range m {
		n.Notify(outcome)
	}
}

// Safe wraps n so that a panic inside it is recovered and logged
func Safe(n Notifier, logger *slog.Logger) Notifier {
	if n == nil {
		return Nop{}
	}
	if _, ok := n.(*safeNotifier); ok {
		return n
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &safeNotifier{next: n, logger: logger}
}

type safeNotifier struct {
	next   Notifier
	logger *slog.Logger
}

func (s *safeNotifier) Notify(outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notifier panicked",
				"subject", outcome.Subject,
				"panic", fmt.Sprint(r))
		}
	}()
	s.next.Notify(outcome)
}

// Recorder keeps outcomes in emission order
type Recorder struct {
	outcomes []Outcome
	mu       sync.Mutex
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify appends the outcome
func (r *Recorder) Notify(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// Outcomes returns a copy of all recorded outcomes
func (r *Recorder) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Drain returns recorded outcomes and forgets them
func (r *Recorder) Drain() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.outcomes
	r.outcomes = nil
	return out
}

// Last returns the most recent outcome
func (r *Recorder) Last() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return Outcome{}, false
	}
	return r.outcomes[len(r.outcomes)-1], true
}

// LogNotifier writes outcomes to a structured logger
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs successes at debug level and failures at info level.
// Transport problems are already logged by the API client.
func (l *LogNotifier) Notify(outcome Outcome) {
	if !outcome.Failed() {
		l.logger.Debug(outcome.Title,
			"subject", outcome.Subject,
			"message", outcome.Message)
		return
	}

	l.logger.Info(outcome.Title,
		"subject", outcome.Subject,
		"message", outcome.Message,
		"session_expired", outcome.SessionExpired,
		"error", outcome.Err)
}
