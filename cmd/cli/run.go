package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"codeplay/internal/client"
	"codeplay/internal/heuristics"
	"codeplay/internal/playground"
	"codeplay/internal/runtime"
	"codeplay/internal/storage"
)

func newRunCmd() *cobra.Command {
	var (
		lang    string
		inputs  []string
		noInput bool
		share   string
	)

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Execute a file, stdin, a share link or the last session",
		Long: `Execute code. The source is the file argument, "-" for stdin, --share for a
share link, or the last saved session when nothing is given. Values for
detected input prompts come from --input in order; missing ones are asked
for interactively unless --no-input is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			store := openStore()
			if store != nil {
				defer store.Close()
			}

			snippet, fromStdin, err := loadSource(ctx, args, share, store)
			if err != nil {
				return err
			}
			if lang != "" {
				l, err := runtime.Parse(lang)
				if err != nil {
					return err
				}
				snippet.Language = l
			} else if len(args) > 0 {
				if l, ok := heuristics.Detect(snippet.Code); ok {
					snippet.Language = l
				} else {
					return fmt.Errorf("%w; use --language", playground.ErrNotDetected)
				}
			}

			var opts []playground.Option
			if store != nil {
				opts = append(opts, playground.WithStore(store))
			}
			sess, err := playground.NewSession(newOrchestrator(), snippet, opts...)
			if err != nil {
				return err
			}

			if err := fillInputs(sess, inputs, noInput || fromStdin); err != nil {
				return err
			}

			out, err := sess.Run(ctx)
			if err != nil {
				return err
			}

			if store != nil {
				if err := playground.SaveSession(ctx, store, sess.Snippet()); err != nil {
					log.Warn().Err(err).Msg("saving session")
				}
			}

			return printRun(cmd.OutOrStdout(), cmd.ErrOrStderr(), out)
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "", "Language (detected from the code when omitted)")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Value for the next input prompt (repeatable)")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Never ask for missing input values")
	cmd.Flags().StringVar(&share, "share", "", "Run the snippet in a share link fragment")
	return cmd
}

// loadSource resolves what to run. The bool reports whether the code was read
// from stdin, which rules out interactive prompting.
func loadSource(ctx context.Context, args []string, share string, store storage.SettingsStore) (playground.Snippet, bool, error) {
	switch {
	case share != "":
		s := playground.DecodeShare(share)
		if s == nil {
			return playground.Snippet{}, false, errors.New("share link could not be decoded")
		}
		return *s, false, nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return playground.Snippet{}, false, fmt.Errorf("reading stdin: %w", err)
		}
		return playground.Snippet{Code: string(data)}, true, nil
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return playground.Snippet{}, false, fmt.Errorf("reading file: %w", err)
		}
		return playground.Snippet{Code: string(data)}, false, nil
	default:
		return playground.LoadInitial(ctx, store, ""), false, nil
	}
}

func fillInputs(sess *playground.Session, values []string, nonInteractive bool) error {
	prompts := sess.Prompts()
	for i := range prompts {
		if i < len(values) {
			if err := sess.SetInput(i, values[i]); err != nil {
				return err
			}
		}
	}
	if nonInteractive || len(values) >= len(prompts) {
		return nil
	}

	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for i := len(values); i < len(prompts); i++ {
		rl.SetPrompt("\033[36m" + strings.TrimSpace(prompts[i]) + "\033[0m ")
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return errors.New("interrupted")
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := sess.SetInput(i, line); err != nil {
			return err
		}
	}
	return nil
}

func printRun(stdout, stderr io.Writer, out playground.RunOutput) error {
	if out.Preview != "" {
		fmt.Fprintln(stderr, "HTML is rendered client-side; nothing was executed.")
		fmt.Fprint(stdout, out.Preview)
		return nil
	}

	fmt.Fprint(stdout, out.Output)
	if out.Output != "" && !strings.HasSuffix(out.Output, "\n") {
		fmt.Fprintln(stdout)
	}
	if out.Stderr != "" && out.Output != out.Stderr && !strings.Contains(out.Output, out.Stderr) {
		fmt.Fprint(stderr, out.Stderr)
		if !strings.HasSuffix(out.Stderr, "\n") {
			fmt.Fprintln(stderr)
		}
	}

	if a := out.Analysis; a != nil {
		if a.Line > 0 {
			fmt.Fprintf(stderr, "\033[33mline %d\033[0m\n", a.Line)
		}
		if a.IsHint {
			fmt.Fprintf(stderr, "\033[33mhint:\033[0m %s\n", a.Friendly)
		}
	}

	log.Debug().
		Str("outcome", string(out.Outcome)).
		Int("attempts", len(out.Attempts)).
		Msg("run finished")

	if out.Run.Signal != nil && out.Outcome != client.OutcomeFailed {
		fmt.Fprintf(stderr, "\033[31mkilled by %s\033[0m\n", *out.Run.Signal)
	}
	if !out.Run.Succeeded() {
		return &exitError{code: out.Run.ExitStatus()}
	}
	return nil
}
