package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codeplay/internal/heuristics"
	"codeplay/internal/playground"
	"codeplay/internal/runtime"
)

func readCode(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file]",
		Short: "Guess the language of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(args)
			if err != nil {
				return err
			}
			lang, ok := heuristics.Detect(code)
			if !ok {
				return playground.ErrNotDetected
			}
			fmt.Fprintln(cmd.OutOrStdout(), lang)
			return nil
		},
	}
}

func newPromptsCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "prompts [file]",
		Short: "List the input prompts a program will ask for",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(args)
			if err != nil {
				return err
			}
			l, err := languageFor(lang, code)
			if err != nil {
				return err
			}
			for i, p := range heuristics.Prompts(l, code) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i+1, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "language", "l", "", "Language (detected when omitted)")
	return cmd
}

func languageFor(flag, code string) (runtime.Language, error) {
	if flag != "" {
		return runtime.Parse(flag)
	}
	if l, ok := heuristics.Detect(code); ok {
		return l, nil
	}
	return "", fmt.Errorf("%w; use --language", playground.ErrNotDetected)
}

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Create or open share links",
	}

	var lang string
	encode := &cobra.Command{
		Use:   "encode [file]",
		Short: "Print a share fragment for a file, stdin or the last session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s playground.Snippet
			if len(args) == 0 && lang == "" {
				store := openStore()
				if store != nil {
					defer store.Close()
				}
				s = playground.LoadInitial(cmd.Context(), store, "")
			} else {
				code, err := readCode(args)
				if err != nil {
					return err
				}
				l, err := languageFor(lang, code)
				if err != nil {
					return err
				}
				s = playground.Snippet{Language: l, Code: code}
			}

			token, err := playground.EncodeShare(s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "#"+token)
			return nil
		},
	}
	encode.Flags().StringVarP(&lang, "language", "l", "", "Language (detected when omitted)")

	var save bool
	decode := &cobra.Command{
		Use:   "decode <fragment>",
		Short: "Print the snippet in a share fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := playground.DecodeShare(args[0])
			if s == nil {
				return fmt.Errorf("share link could not be decoded")
			}
			if save {
				store, err := mustStore()
				if err != nil {
					return err
				}
				defer store.Close()
				if err := playground.SaveSession(cmd.Context(), store, *s); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "language: %s\n", s.Language)
			fmt.Fprint(cmd.OutOrStdout(), s.Code)
			return nil
		},
	}
	decode.Flags().BoolVar(&save, "save", false, "Store the snippet as the last session")

	cmd.AddCommand(encode, decode)
	return cmd
}

func newThemeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show the editor theme",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := mustStore()
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), playground.LoadTheme(cmd.Context(), store))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between dark and light",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := mustStore()
			if err != nil {
				return err
			}
			defer store.Close()
			theme, err := playground.ToggleTheme(cmd.Context(), store)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme)
			return nil
		},
	})
	return cmd
}

func newStatsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := mustStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.ListStats(cmd.Context(), limit)
			if err != nil {
				return err
			}
			sum := playground.Summarize(stats)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "runs:       %d\n", sum.Count)
			fmt.Fprintf(w, "successful: %d\n", sum.Successes)
			fmt.Fprintf(w, "average:    %.2f ms\n", sum.AverageMS)
			for _, st := range sum.Recent {
				fmt.Fprintf(w, "  %s  %-10s %6d ms  %s\n",
					st.Timestamp.Local().Format("2006-01-02 15:04:05"), st.Language, st.DurationMS, st.Status)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "How many past runs to include")
	return cmd
}

// serviceURL swaps the path of the configured execute endpoint.
func serviceURL(path string) (string, error) {
	u, err := url.Parse(v.GetString("server"))
	if err != nil {
		return "", fmt.Errorf("parsing server url: %w", err)
	}
	u.Path = path
	u.RawQuery = ""
	return u.String(), nil
}

func getJSON(cmd *cobra.Command, path string) error {
	target, err := serviceURL(path)
	if err != nil {
		return err
	}

	hc := &http.Client{Timeout: v.GetDuration("timeout")}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	if key := v.GetString("api-key"); key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(formatted))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", strings.TrimPrefix(path, "/"), resp.Status)
	}
	return nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check proxy health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getJSON(cmd, "/health")
		},
	}
}

func newRuntimesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runtimes",
		Short: "List runtimes installed in the sandbox",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getJSON(cmd, "/api/runtimes")
		},
	}
}
