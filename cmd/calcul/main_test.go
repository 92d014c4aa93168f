package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/telemetry/logging"
)

func TestMain(m *testing.M) {
	if err := config.Initialize(""); err != nil {
		panic(err)
	}
	l, err := logging.New(logging.FromConfig(config.LoggingConfig{Level: "error", Format: "text"}, io.Discard))
	if err != nil {
		panic(err)
	}
	logger = l
	os.Exit(m.Run())
}

func writeRules(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// testCommand returns a command capturing stdout and stderr.
func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(context.Background())
	return cmd, &out, &errOut
}

var payRules = map[string]string{
	"salaire.rules": "salaire: 2000 €/mois\n",
	"net.rules":     "net: salaire * 78%\n",
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"version"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Calcul "+Version) {
		t.Errorf("output = %q", out.String())
	}
	if logger == nil {
		t.Error("setup did not create the logger")
	}
}

func TestRunEval(t *testing.T) {
	dir := writeRules(t, payRules)

	tests := []struct {
		name    string
		sets    []string
		args    []string
		want    []string
		wantErr bool
	}{
		{name: "one rule", args: []string{"net"}, want: []string{"net = 1560 €/mois"}},
		{name: "all rules", want: []string{"net = 1560 €/mois", "salaire = 2000 €/mois"}},
		{name: "override", sets: []string{"salaire = 3000 €/mois"}, args: []string{"net"}, want: []string{"net = 2340 €/mois"}},
		{name: "unknown rule", args: []string{"brut"}, wantErr: true},
		{name: "bad override", sets: []string{"salaire"}, args: []string{"net"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFlags.rules = rulesFlags{paths: []string{dir}, sets: tt.sets}
			evalFlags.format = "text"
			evalFlags.traversed = false

			cmd, out, _ := testCommand()
			err := runEval(cmd, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("runEval() failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output %q does not contain %q", out.String(), want)
				}
			}
		})
	}
}

func TestRunEvalJSON(t *testing.T) {
	dir := writeRules(t, payRules)
	evalFlags.rules = rulesFlags{paths: []string{dir}}
	evalFlags.format = "json"
	evalFlags.traversed = true
	defer func() { evalFlags.traversed = false }()

	cmd, out, _ := testCommand()
	if err := runEval(cmd, []string{"net"}); err != nil {
		t.Fatalf("runEval() failed: %v", err)
	}

	var results []evalResult
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	r := results[0]
	if r.Rule != "net" || r.Value != 1560.0 || r.Unit != "€/mois" {
		t.Errorf("result = %+v", r)
	}
	if len(r.Traversed) != 2 {
		t.Errorf("Traversed = %v", r.Traversed)
	}
}

func TestRunEvalBadFormat(t *testing.T) {
	evalFlags.format = "xml"
	defer func() { evalFlags.format = "text" }()

	cmd, _, _ := testCommand()
	err := runEval(cmd, nil)
	if cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("ExitCode(%v) = %d, want %d", err, cli.ExitCode(err), cli.ExitUsage)
	}
}

func TestRunTraverse(t *testing.T) {
	dir := writeRules(t, payRules)
	traverseFlags.rules = rulesFlags{paths: []string{dir}}
	traverseFlags.format = "text"

	cmd, out, _ := testCommand()
	if err := runTraverse(cmd, []string{"net"}); err != nil {
		t.Fatalf("runTraverse() failed: %v", err)
	}
	if !strings.Contains(out.String(), "net:\n") || !strings.Contains(out.String(), "  salaire\n") {
		t.Errorf("output = %q", out.String())
	}

	traverseFlags.rules.sets = []string{"salaire = 1000"}
	cmd, out, _ = testCommand()
	if err := runTraverse(cmd, []string{"net"}); err != nil {
		t.Fatalf("runTraverse() failed: %v", err)
	}
	if !strings.Contains(out.String(), "salaire") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunLint(t *testing.T) {
	lintFlags.format = "text"

	t.Run("valid", func(t *testing.T) {
		dir := writeRules(t, payRules)
		cmd, out, _ := testCommand()
		if err := runLint(cmd, []string{dir}); err != nil {
			t.Fatalf("runLint() failed: %v", err)
		}
		if !strings.Contains(out.String(), "2 file(s)") || !strings.Contains(out.String(), ": ok") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		dir := writeRules(t, map[string]string{"a.rules": "a: b\n"})
		cmd, out, _ := testCommand()
		err := runLint(cmd, []string{dir})
		var cmdErr *cli.CommandError
		if !errors.As(err, &cmdErr) {
			t.Fatalf("runLint() error = %v, want *CommandError", err)
		}
		if !strings.Contains(out.String(), "[link]") || !strings.Contains(out.String(), "1 problem(s)") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		lintFlags.format = "json"
		defer func() { lintFlags.format = "text" }()

		dir := writeRules(t, map[string]string{"a.rules": "a: 1\n"})
		cmd, out, _ := testCommand()
		if err := runLint(cmd, []string{dir}); err != nil {
			t.Fatalf("runLint() failed: %v", err)
		}
		var result lintResult
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON %q: %v", out.String(), err)
		}
		if len(result.Files) != 1 || len(result.Problems) != 0 || result.Bytes != 5 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("no rules files", func(t *testing.T) {
		cmd, _, _ := testCommand()
		if err := runLint(cmd, []string{t.TempDir()}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestTokensCommand(t *testing.T) {
	dir := writeRules(t, map[string]string{"a.rules": "a: 1 + 2\n"})

	cmd, out, _ := testCommand()
	if err := tokensCmd.RunE(cmd, []string{filepath.Join(dir, "a.rules")}); err != nil {
		t.Fatalf("tokens failed: %v", err)
	}
	if out.Len() == 0 {
		t.Error("no tokens printed")
	}

	if err := tokensCmd.RunE(cmd, []string{filepath.Join(dir, "missing.rules")}); err == nil {
		t.Error("expected error for a missing file")
	}
}
