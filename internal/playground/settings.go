package playground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"codeplay/internal/runtime"
	"codeplay/internal/storage"
)

// Theme is the editor color scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultSnippet is the state of a brand new editor.
func DefaultSnippet() Snippet {
	return Snippet{Language: runtime.Python, Code: runtime.NewRegistry().MustGet(runtime.Python).Snippet}
}

// LoadInitial picks the starting editor state: a share fragment wins, then
// the last saved session, then the python starter snippet. store may be nil.
func LoadInitial(ctx context.Context, store storage.SettingsStore, fragment string) Snippet {
	if s := DecodeShare(fragment); s != nil {
		if _, err := runtime.Parse(string(s.Language)); err == nil {
			return *s
		}
		log.Warn().Str("language", string(s.Language)).Msg("ignoring share link with unknown language")
	}

	if store != nil {
		if s, ok := lastSession(ctx, store); ok {
			return s
		}
	}
	return DefaultSnippet()
}

func lastSession(ctx context.Context, store storage.SettingsStore) (Snippet, bool) {
	raw, err := store.Get(ctx, storage.KeyLastSession)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("reading last session")
		}
		return Snippet{}, false
	}

	var saved struct {
		Language string  `json:"language"`
		Code     *string `json:"code"`
	}
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable last session")
		return Snippet{}, false
	}

	def := DefaultSnippet()
	s := Snippet{Language: def.Language, Code: def.Code}
	if lang, err := runtime.Parse(saved.Language); err == nil {
		s.Language = lang
	}
	if saved.Code != nil {
		s.Code = *saved.Code
	}
	return s, true
}

// SaveSession stores s as the last session.
func SaveSession(ctx context.Context, store storage.SettingsStore, s Snippet) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return store.Set(ctx, storage.KeyLastSession, string(data))
}

// LoadTheme returns the saved theme, dark when unset or unrecognized.
func LoadTheme(ctx context.Context, store storage.SettingsStore) Theme {
	raw, err := store.Get(ctx, storage.KeyTheme)
	if err != nil {
		return ThemeDark
	}
	switch t := Theme(raw); t {
	case ThemeDark, ThemeLight:
		return t
	default:
		return ThemeDark
	}
}

// ToggleTheme flips and persists the theme.
func ToggleTheme(ctx context.Context, store storage.SettingsStore) (Theme, error) {
	next := ThemeLight
	if LoadTheme(ctx, store) == ThemeLight {
		next = ThemeDark
	}
	if err := store.Set(ctx, storage.KeyTheme, string(next)); err != nil {
		return "", err
	}
	return next, nil
}
