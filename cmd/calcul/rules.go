package main

import (
	"context"
	"fmt"
	"maps"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/engine/source"
	"regles-hq/calcul/pkg/telemetry/metrics"
)

// rulesFlags are shared by the commands evaluating rules.
type rulesFlags struct {
	paths     []string
	sets      []string
	situation string
	git       string
	revision  string
}

func (f *rulesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.paths, "rules", "r", nil, "rules files or directories (default: rules.paths from config)")
	cmd.Flags().StringArrayVarP(&f.sets, "set", "s", nil, `override a rule: "name = expression" (repeatable)`)
	cmd.Flags().StringVar(&f.situation, "situation", "", "YAML situation file (default: rules.situation from config)")
	cmd.Flags().StringVar(&f.git, "git", "", "read the rules from a commit of this Git repository; --rules paths are then relative to its root")
	cmd.Flags().StringVar(&f.revision, "revision", "", "Git revision to read with --git (default: rules.git.revision from config)")
}

// rulePaths returns the rules paths from the flags, or from the configuration.
func (f *rulesFlags) rulePaths(cfg *config.Config) ([]string, error) {
	paths := f.paths
	if len(paths) == 0 {
		paths = cfg.Rules.Paths
	}
	if len(paths) == 0 && f.gitRepository(cfg) == "" {
		return nil, cli.NewConfigError("rules", "no rules paths: use --rules or set rules.paths")
	}
	return paths, nil
}

// gitRepository returns the Git repository the rules are read from, or "".
func (f *rulesFlags) gitRepository(cfg *config.Config) string {
	if f.git != "" {
		return f.git
	}
	return cfg.Rules.Git.Repository
}

// newSource creates the rule source of the flags: a Git source when a
// repository is given, the file system otherwise.
func (f *rulesFlags) newSource(cfg *config.Config, paths []string) (engine.RuleSource, error) {
	repo := f.gitRepository(cfg)
	if repo == "" {
		return newFileSource(cfg, paths)
	}

	gitCfg := source.GitSourceConfigFrom(cfg.Rules)
	gitCfg.Repository = repo
	gitCfg.Paths = paths
	if f.revision != "" {
		gitCfg.Revision = f.revision
	}
	return source.NewGitSource(gitCfg, logger.Slog())
}

// overrides merges the situation file with the --set flags, which win.
func (f *rulesFlags) overrides(cfg *config.Config) (map[string]string, error) {
	situation := make(map[string]string)

	path := f.situation
	if path == "" {
		path = cfg.Rules.Situation
	}
	if path != "" {
		loaded, err := engine.LoadSituationFile(path)
		if err != nil {
			return nil, err
		}
		maps.Copy(situation, loaded)
	}

	for _, set := range f.sets {
		name, expr, err := engine.ParseAssignment(set)
		if err != nil {
			return nil, cli.NewConfigError("set", err.Error())
		}
		situation[name] = expr
	}
	return situation, nil
}

// newFileSource creates the rule source of the given paths.
func newFileSource(cfg *config.Config, paths []string) (*source.FileSource, error) {
	srcCfg := source.FileSourceConfigFrom(cfg.Rules)
	srcCfg.Paths = paths
	return source.NewFileSource(srcCfg, logger.Slog())
}

// newCollector creates the metrics collector, or nil when metrics are disabled.
func newCollector(cfg *config.Config) *metrics.Collector {
	if !cfg.Telemetry.Metrics.Enabled {
		return nil
	}
	metricsCfg := cfg.Telemetry.Metrics
	return metrics.NewCollector(&metricsCfg, nil)
}

// loadRules builds a manager over the rules and installs the situation.
func loadRules(ctx context.Context, cfg *config.Config, flags *rulesFlags, engineCfg *engine.Config, collector *metrics.Collector) (*engine.Manager, error) {
	paths, err := flags.rulePaths(cfg)
	if err != nil {
		return nil, err
	}
	situation, err := flags.overrides(cfg)
	if err != nil {
		return nil, err
	}

	src, err := flags.newSource(cfg, paths)
	if err != nil {
		return nil, err
	}

	manager, err := engine.NewManager(src, &engine.ManagerConfig{
		Engine:      engineCfg,
		Strict:      cfg.Rules.Strict,
		MaxFileSize: cfg.Rules.MaxFileSize,
		Tracer:      tracer,
	}, logger.Slog(), collector)
	if err != nil {
		return nil, cli.NewConfigError("engine", err.Error())
	}

	if err := manager.Load(ctx); err != nil {
		return nil, err
	}
	if len(situation) > 0 {
		if err := manager.SetSituation(situation); err != nil {
			return nil, fmt.Errorf("invalid situation: %w", err)
		}
	}
	return manager, nil
}
