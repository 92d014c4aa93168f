package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/journal/retention"
	"regles-hq/calcul/pkg/server"
	"regles-hq/calcul/pkg/telemetry/health"
	"regles-hq/calcul/pkg/telemetry/metrics"
)

// watchRules prints the results, then prints them again after every reload
// of the rules until SIGINT or SIGTERM.
func watchRules(cmd *cobra.Command, cfg *config.Config, manager *engine.Manager, collector *metrics.Collector, jw *journalWriter, names []string, format cli.OutputFormat) error {
	ctx, stop := watchContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	formatter := cli.NewFormatter(format)

	printResults := func() {
		results, err := evaluateRules(manager, names, evalFlags.traversed, nil, jw)
		if err != nil {
			fmt.Fprintln(errOut, "Error:", err)
			return
		}
		if err := formatter.FormatTo(out, results); err != nil {
			fmt.Fprintln(errOut, "Error:", err)
		}
		if err := printDiagnostics(errOut, manager, collector); err != nil {
			fmt.Fprintln(errOut, "Error:", err)
		}
	}

	printResults()
	manager.OnReload(func(_ *engine.Engine, err error) {
		if err != nil {
			fmt.Fprintln(errOut, "Reload failed:", err)
			return
		}
		fmt.Fprintf(errOut, "Rules reloaded (generation %d)\n", manager.Generation())
		printResults()
	})

	if err := manager.Start(ctx); err != nil {
		return cli.NewCommandError("eval", err)
	}

	if jw != nil {
		scheduler := retention.NewScheduler(retention.NewPruner(jw.storage, retention.ConfigFrom(cfg.Journal.Retention), logger.Slog()))
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("eval", err)
		}
		defer scheduler.Stop()
	}

	addr := evalFlags.addr
	if addr == "" {
		addr = cfg.Telemetry.Metrics.Address
	}
	if addr == "" {
		<-ctx.Done()
		return nil
	}
	return serveStatus(ctx, cfg, addr, manager, collector)
}

// serveStatus serves metrics and health on addr until ctx is done.
func serveStatus(ctx context.Context, cfg *config.Config, addr string, manager *engine.Manager, collector *metrics.Collector) error {
	checker := health.New(0)
	checker.RegisterCheck("rules", func(context.Context) error {
		if manager.Engine() == nil {
			return engine.ErrNoRulesLoaded
		}
		_, err := manager.LastLoad()
		return err
	})

	srv := server.NewServer(&server.Config{
		Address:     addr,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Version:     Version,
		Commit:      GitCommit,
		BuildDate:   BuildDate,
	}, metricsHandler(collector), checker, logger.Slog())

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("eval", err)
	}
	return nil
}

// metricsHandler returns nil when metrics are disabled.
func metricsHandler(collector *metrics.Collector) http.Handler {
	if collector == nil {
		return nil
	}
	return collector.Handler()
}
