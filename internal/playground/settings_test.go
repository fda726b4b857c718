package playground

import (
	"context"
	"testing"

	"codeplay/internal/runtime"
	"codeplay/internal/storage"
	"codeplay/internal/storage/sqlite"
)

func testStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestShareRoundTrip(t *testing.T) {
	in := Snippet{Language: runtime.TypeScript, Code: "const x: number = 1;\n// ünïcödé ☃\n\ttabs"}
	token, err := EncodeShare(in)
	if err != nil {
		t.Fatal(err)
	}

	for _, frag := range []string{token, "#" + token} {
		got := DecodeShare(frag)
		if got == nil || *got != in {
			t.Errorf("DecodeShare(%q) = %+v, want %+v", frag, got, in)
		}
	}
}

func TestDecodeShare_Invalid(t *testing.T) {
	for _, frag := range []string{"", "#", "not base64 !!", "aGVsbG8"} {
		if got := DecodeShare(frag); got != nil {
			t.Errorf("DecodeShare(%q) = %+v, want nil", frag, got)
		}
	}
}

func TestLoadInitial_Precedence(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	if got := LoadInitial(ctx, store, ""); got != DefaultSnippet() {
		t.Errorf("empty store = %+v, want default", got)
	}

	if err := SaveSession(ctx, store, Snippet{Language: runtime.Go, Code: "package main"}); err != nil {
		t.Fatal(err)
	}
	if got := LoadInitial(ctx, store, ""); got.Language != runtime.Go || got.Code != "package main" {
		t.Errorf("last session = %+v", got)
	}

	token, _ := EncodeShare(Snippet{Language: runtime.PHP, Code: "<?php"})
	if got := LoadInitial(ctx, store, "#"+token); got.Language != runtime.PHP {
		t.Errorf("share link should win, got %+v", got)
	}

	bad, _ := EncodeShare(Snippet{Language: "cobol", Code: "x"})
	if got := LoadInitial(ctx, store, bad); got.Language != runtime.Go {
		t.Errorf("unknown share language should fall through, got %+v", got)
	}
}

func TestLoadInitial_PartialLastSession(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	store.Set(ctx, storage.KeyLastSession, `{"language":"java","stdin":"old"}`)
	got := LoadInitial(ctx, store, "")
	if got.Language != runtime.Java || got.Code != DefaultSnippet().Code {
		t.Errorf("got %+v, want java with default code", got)
	}

	store.Set(ctx, storage.KeyLastSession, `{"code":""}`)
	got = LoadInitial(ctx, store, "")
	if got.Language != runtime.Python || got.Code != "" {
		t.Errorf("got %+v, want python with empty code", got)
	}

	store.Set(ctx, storage.KeyLastSession, `{not json`)
	if got := LoadInitial(ctx, store, ""); got != DefaultSnippet() {
		t.Errorf("corrupt session = %+v, want default", got)
	}
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	if got := LoadTheme(ctx, store); got != ThemeDark {
		t.Errorf("default theme = %q", got)
	}
	got, err := ToggleTheme(ctx, store)
	if err != nil || got != ThemeLight {
		t.Fatalf("toggle = %q, %v", got, err)
	}
	if LoadTheme(ctx, store) != ThemeLight {
		t.Error("theme not persisted")
	}
	got, _ = ToggleTheme(ctx, store)
	if got != ThemeDark {
		t.Errorf("second toggle = %q", got)
	}

	store.Set(ctx, storage.KeyTheme, "solarized")
	if LoadTheme(ctx, store) != ThemeDark {
		t.Error("unknown theme should read as dark")
	}
}

func TestSummarize(t *testing.T) {
	if s := Summarize(nil); s.Count != 0 || s.AverageMS != 0 || s.Recent == nil {
		t.Errorf("empty summary = %+v", s)
	}

	var stats []storage.ExecutionStat
	for i := 1; i <= 12; i++ {
		status := storage.StatSuccess
		if i%3 == 0 {
			status = storage.StatError
		}
		stats = append(stats, storage.ExecutionStat{DurationMS: int64(i * 10), Status: status})
	}

	s := Summarize(stats)
	if s.Count != 12 || s.Successes != 8 {
		t.Errorf("count %d successes %d", s.Count, s.Successes)
	}
	if s.AverageMS != 65 {
		t.Errorf("average = %v, want 65", s.AverageMS)
	}
	if len(s.Recent) != 10 || s.Recent[0].DurationMS != 30 {
		t.Errorf("recent = %+v", s.Recent)
	}
}
