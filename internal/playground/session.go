// Package playground holds the editor-side state machine: the current
// language and code, the detected input prompts, and a single run at a time.
package playground

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"codeplay/internal/client"
	"codeplay/internal/heuristics"
	"codeplay/internal/runtime"
	"codeplay/internal/storage"
)

var (
	ErrBusy        = errors.New("a run is already in progress")
	ErrNotDetected = errors.New("could not automatically detect language")
)

// Runner executes one request; *client.Orchestrator satisfies it.
type Runner interface {
	Execute(ctx context.Context, req client.Request) client.Result
}

// RunOutput is what a finished run shows the user.
type RunOutput struct {
	client.Result
	// Output is run.output, or run.stdout when output is empty.
	Output   string
	Stderr   string
	Analysis *heuristics.ErrorAnalysis
	// Preview holds the markup when the language is rendered, not executed.
	Preview string
}

// DetectResult reports what AutoDetect found.
type DetectResult struct {
	Language runtime.Language
	Switched bool
}

type Option func(*Session)

// WithStore persists stats as they are recorded.
func WithStore(store storage.SettingsStore) Option {
	return func(s *Session) { s.store = store }
}

// Session is one editor. It is safe for concurrent use; at most one Run is in
// flight at a time.
type Session struct {
	registry *runtime.Registry
	runner   Runner
	store    storage.SettingsStore
	now      func() time.Time

	mu       sync.Mutex
	language runtime.Language
	code     string
	prompts  []string
	inputs   map[int]string
	busy     bool
	analysis *heuristics.ErrorAnalysis
	stats    []storage.ExecutionStat
}

// NewSession starts an editor on initial.
func NewSession(runner Runner, initial Snippet, opts ...Option) (*Session, error) {
	s := &Session{
		registry: runtime.NewRegistry(),
		runner:   runner,
		now:      time.Now,
		inputs:   make(map[int]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.registry.Get(string(initial.Language)); err != nil {
		return nil, err
	}
	s.language = initial.Language
	s.code = initial.Code
	s.refreshPrompts()
	return s, nil
}

func (s *Session) Language() runtime.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Snippet returns the current state for saving or sharing.
func (s *Session) Snippet() Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snippet{Language: s.language, Code: s.code}
}

// Prompts returns the input labels detected in the current code.
func (s *Session) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.prompts...)
}

// Analysis returns the error analysis of the last run, if any.
func (s *Session) Analysis() *heuristics.ErrorAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SetCode replaces the code, recomputes prompts and clears the error line.
func (s *Session) SetCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	s.analysis = nil
	s.refreshPrompts()
}

// SetLanguage switches the language without touching the code.
func (s *Session) SetLanguage(lang runtime.Language) error {
	if _, err := s.registry.Get(string(lang)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	s.refreshPrompts()
	return nil
}

// ChangeLanguage switches language as the language picker does: the code is
// replaced by the new starter snippet only when it is blank or still the old
// language's snippet. Input values and the last analysis are cleared. It
// reports whether the code was replaced.
func (s *Session) ChangeLanguage(lang runtime.Language) (bool, error) {
	next, err := s.registry.Get(string(lang))
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.registry.MustGet(s.language)
	trimmed := strings.TrimSpace(s.code)
	pristine := trimmed == "" || trimmed == strings.TrimSpace(current.Snippet)
	if pristine {
		s.code = next.Snippet
	}

	s.language = lang
	s.inputs = make(map[int]string)
	s.analysis = nil
	s.refreshPrompts()
	return pristine, nil
}

// SetInput records the value typed for prompt i.
func (s *Session) SetInput(i int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.prompts) {
		return fmt.Errorf("input %d out of range (%d prompts)", i, len(s.prompts))
	}
	s.inputs[i] = value
	return nil
}

// Stdin returns the stdin the next run would send.
func (s *Session) Stdin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return heuristics.JoinStdin(s.prompts, s.inputs)
}

// AutoDetect guesses the language of the current code. A guess different
// from the current language is applied only when confirm returns true.
func (s *Session) AutoDetect(confirm func(runtime.Language) bool) (DetectResult, error) {
	s.mu.Lock()
	code, current := s.code, s.language
	s.mu.Unlock()

	detected, ok := heuristics.Detect(code)
	if !ok {
		return DetectResult{}, ErrNotDetected
	}
	res := DetectResult{Language: detected}
	if detected == current {
		return res, nil
	}
	if confirm != nil && confirm(detected) {
		if err := s.SetLanguage(detected); err != nil {
			return res, err
		}
		res.Switched = true
	}
	return res, nil
}

// Run executes the current code. It returns ErrBusy while another run is in
// flight. Rendered languages return a preview without any network call.
func (s *Session) Run(ctx context.Context) (RunOutput, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return RunOutput{}, ErrBusy
	}
	rt := s.registry.MustGet(s.language)
	code := s.code
	if !rt.Executable {
		s.mu.Unlock()
		return RunOutput{Preview: code}, nil
	}
	s.busy = true
	s.analysis = nil
	stdin := heuristics.JoinStdin(s.prompts, s.inputs)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	start := s.now()
	res := s.runner.Execute(ctx, client.Request{Language: rt.Language, Code: code, Stdin: stdin})

	out := RunOutput{Result: res, Output: res.Run.Output, Stderr: res.Run.Stderr}
	if out.Output == "" {
		out.Output = res.Run.Stdout
	}
	if out.Stderr != "" {
		out.Analysis = heuristics.Analyze(rt.Language, out.Stderr)
	}

	stat := storage.ExecutionStat{
		Timestamp:  start.UTC(),
		DurationMS: s.now().Sub(start).Milliseconds(),
		Language:   rt.Name,
		Status:     storage.StatSuccess,
	}
	if !res.Run.Succeeded() {
		stat.Status = storage.StatError
	}

	s.mu.Lock()
	s.analysis = out.Analysis
	s.stats = append(s.stats, stat)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.AppendStat(ctx, stat); err != nil {
			log.Warn().Err(err).Msg("recording run stat")
		}
	}
	return out, nil
}

// Stats summarizes the runs made in this session.
func (s *Session) Stats() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(s.stats)
}

// refreshPrompts must be called with mu held.
func (s *Session) refreshPrompts() {
	if !s.registry.MustGet(s.language).Executable {
		s.prompts = []string{}
		return
	}
	s.prompts = heuristics.Prompts(s.language, s.code)
}
