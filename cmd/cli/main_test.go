package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"codeplay/internal/client"
	"codeplay/internal/heuristics"
	"codeplay/internal/playground"
	"codeplay/internal/sandbox"
)

func TestPrintRun(t *testing.T) {
	out := playground.RunOutput{
		Result: client.Result{
			ExecuteResponse: sandbox.ExecuteResponse{Run: sandbox.RunResult{Code: sandbox.ExitCode(2)}},
		},
		Output:   "partial",
		Stderr:   "boom",
		Analysis: &heuristics.ErrorAnalysis{Friendly: "check your syntax", IsHint: true, Line: 4},
	}

	var stdout, stderr bytes.Buffer
	err := printRun(&stdout, &stderr, out)

	var ee *exitError
	if !errors.As(err, &ee) || ee.code != 2 {
		t.Fatalf("err = %v, want exit status 2", err)
	}
	if stdout.String() != "partial\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	for _, want := range []string{"boom", "line 4", "check your syntax"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("stderr missing %q: %q", want, stderr.String())
		}
	}
}

func TestPrintRun_ExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		run      sandbox.RunResult
		outcome  client.Outcome
		wantCode int
		wantMsg  string
	}{
		{"clean exit", sandbox.RunResult{Code: sandbox.ExitCode(0)}, client.OutcomeSuccess, 0, ""},
		{"killed with null code", sandbox.RunResult{Signal: sandbox.Signal("SIGKILL")}, client.OutcomeSuccess, 1, "killed by SIGKILL"},
		{"zero code with signal", sandbox.RunResult{Code: sandbox.ExitCode(0), Signal: sandbox.Signal("SIGTERM")}, client.OutcomeRecovered, 1, "killed by SIGTERM"},
		{"synthesized failure", sandbox.RunResult{Code: sandbox.ExitCode(1), Signal: sandbox.Signal("ERROR")}, client.OutcomeFailed, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := playground.RunOutput{Result: client.Result{
				ExecuteResponse: sandbox.ExecuteResponse{Run: tt.run},
				Outcome:         tt.outcome,
			}}
			var stdout, stderr bytes.Buffer
			err := printRun(&stdout, &stderr, out)

			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("err = %v, want nil", err)
				}
				return
			}
			var ee *exitError
			if !errors.As(err, &ee) || ee.code != tt.wantCode {
				t.Fatalf("err = %v, want exit status %d", err, tt.wantCode)
			}
			if tt.wantMsg != "" && !strings.Contains(stderr.String(), tt.wantMsg) {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.wantMsg)
			}
			if tt.outcome == client.OutcomeFailed && strings.Contains(stderr.String(), "killed by") {
				t.Errorf("synthesized failure should not report a signal: %q", stderr.String())
			}
		})
	}
}

func TestPrintRun_Preview(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := printRun(&stdout, &stderr, playground.RunOutput{Preview: "<p>x</p>"}); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "<p>x</p>" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestServiceURL(t *testing.T) {
	v.Set("server", "http://localhost:3000/api/execute?x=1")
	defer v.Set("server", nil)

	got, err := serviceURL("/health")
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://localhost:3000/health" {
		t.Errorf("serviceURL = %q", got)
	}
}

func TestLanguageFor(t *testing.T) {
	if l, err := languageFor("", "package main\nfunc main() {}"); err != nil || l != "go" {
		t.Errorf("detected %q, %v", l, err)
	}
	if l, err := languageFor("PHP", "anything"); err != nil || l != "php" {
		t.Errorf("flag %q, %v", l, err)
	}
	if _, err := languageFor("", "x = 1"); !errors.Is(err, playground.ErrNotDetected) {
		t.Errorf("err = %v, want ErrNotDetected", err)
	}
}
