package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeplay/internal/client"
	"codeplay/internal/sandbox"
	"codeplay/internal/storage"
	"codeplay/internal/storage/sqlite"
)

// exitError carries a program's exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var v = viper.New()

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(zerolog.WarnLevel)

	root := &cobra.Command{
		Use:           "codeplay",
		Short:         "Run code through the codeplay execution proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if v.GetBool("verbose") {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}

	home, _ := os.UserHomeDir()
	pf := root.PersistentFlags()
	pf.String("server", client.DefaultPrimaryURL, "Execution proxy endpoint")
	pf.String("fallback", client.DefaultFallbackURL, "Public sandbox API root used when the proxy is down")
	pf.Bool("no-fallback", false, "Never call the public sandbox")
	pf.Duration("timeout", 30*time.Second, "Per-call timeout")
	pf.String("api-key", "", "API key for a proxy that requires one")
	pf.String("db", filepath.Join(home, ".codeplay", "settings.db"), "Settings database path")
	pf.BoolP("verbose", "v", false, "Debug logging")

	v.SetEnvPrefix("CODEPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(pf); err != nil {
		log.Fatal().Err(err).Msg("binding flags")
	}

	root.AddCommand(
		newRunCmd(),
		newDetectCmd(),
		newPromptsCmd(),
		newShareCmd(),
		newThemeCmd(),
		newStatsCmd(),
		newHealthCmd(),
		newRuntimesCmd(),
	)

	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newOrchestrator() *client.Orchestrator {
	timeout := v.GetDuration("timeout")
	var fallback client.Executor
	if !v.GetBool("no-fallback") {
		fallback = sandbox.NewClient(v.GetString("fallback"), timeout)
	}
	return client.New(v.GetString("server"), fallback, client.WithAPIKey(v.GetString("api-key")))
}

// openStore opens the settings database. Failures are logged and yield nil;
// commands that only read settings keep working without it.
func openStore() storage.SettingsStore {
	s, err := sqlite.Open(v.GetString("db"))
	if err != nil {
		log.Warn().Err(err).Str("path", v.GetString("db")).Msg("settings unavailable")
		return nil
	}
	return s
}

// mustStore is openStore for commands that cannot work without settings.
func mustStore() (storage.SettingsStore, error) {
	s, err := sqlite.Open(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}
	return s, nil
}
