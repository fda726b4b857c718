package sandbox

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProvisionReport summarizes a startup provisioning pass.
type ProvisionReport struct {
	Reachable bool
	Installed []Package
	Failed    []Package
}

// Provision makes sure every package is installed in the sandbox. It never
// fails: an unreachable sandbox is logged and reported, and install errors
// are isolated per package (an already-installed runtime is reported as an
// error by the sandbox and is expected).
func Provision(ctx context.Context, backend Backend, pkgs []Package) ProvisionReport {
	log.Info().Msg("checking execution engine status")

	var report ProvisionReport
	if _, err := backend.Runtimes(ctx); err != nil {
		log.Warn().Err(err).Msg("execution engine unreachable; requests will fail until it is available")
		return report
	}
	report.Reachable = true

	log.Info().Int("packages", len(pkgs)).Msg("execution engine reachable, verifying packages")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, pkg := range pkgs {
		g.Go(func() error {
			err := backend.Install(gctx, pkg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Info().
					Err(err).
					Str("language", pkg.Language).
					Str("version", pkg.Version).
					Msg("package install ended (normal if already installed)")
				report.Failed = append(report.Failed, pkg)
				return nil
			}
			report.Installed = append(report.Installed, pkg)
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("installed", len(report.Installed)).
		Int("skipped", len(report.Failed)).
		Msg("language runtime verification complete")
	return report
}
