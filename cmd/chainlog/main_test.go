package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/jmerrifield20/chainlog/internal/chainlog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func init() {
	color.NoColor = true
}

// execute runs the CLI in-process. Flag values live in package variables and
// survive between runs, so every flag is reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var reset func(c *cobra.Command)
	resetFlag := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue) //nolint:errcheck
		f.Changed = false
	}
	reset = func(c *cobra.Command) {
		c.Flags().VisitAll(resetFlag)
		c.PersistentFlags().VisitAll(resetFlag)
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CHAINLOG_STORE_PATH", filepath.Join(dir, "data", "chainlog.db"))
	t.Setenv("CHAINLOG_DISPLAY_CURRENCY", "USD")
	return dir
}

func TestAddAndSearch_roundTrip(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "--store", "bolt", "add", "buy", "coffee", "--amount", "15000")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Entry added") || !strings.Contains(out, "$15,000.00") {
		t.Errorf("unexpected add output:\n%s", out)
	}
	if _, err := execute(t, "--store", "bolt", "add", "lunch", "--amount", "25000"); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "--store", "bolt", "search", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var entries []chainlog.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode search output: %v\n%s", err, out)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Text != "buy coffee" || entries[0].PreviousHash != chainlog.SentinelHash {
		t.Errorf("first entry: %+v", entries[0])
	}
	if entries[1].PreviousHash != entries[0].Hash {
		t.Errorf("chain broken across invocations: %+v", entries[1])
	}

	out, err = execute(t, "--store", "bolt", "search", "LUNCH", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	entries = nil
	json.Unmarshal([]byte(out), &entries)
	if len(entries) != 1 || entries[0].Amount != "25000" {
		t.Errorf("search LUNCH: %+v", entries)
	}
}

func TestList_text(t *testing.T) {
	setupEnv(t)
	execute(t, "--store", "bolt", "add", "rent", "--amount", "100")
	execute(t, "--store", "bolt", "add", "fuel", "--amount", "50")

	out, err := execute(t, "--store", "bolt", "list", "--format", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 entries, total $150.00") {
		t.Errorf("unexpected list output:\n%s", out)
	}
}

func TestAdd_quickAmount(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "--store", "bolt", "add", "parking", "--quick", "2")
	if err != nil {
		t.Fatalf("add --quick: %v\n%s", err, out)
	}
	if !strings.Contains(out, "$20,000.00") {
		t.Errorf("expected second quick amount, got:\n%s", out)
	}

	if _, err := execute(t, "--store", "bolt", "add", "parking", "--quick", "9"); err == nil {
		t.Error("expected error for out-of-range quick amount")
	}
}

func TestAdd_validationError(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "--store", "bolt", "add", "coffee", "--amount", "15k")
	if err == nil || !strings.Contains(err.Error(), "digits only") {
		t.Fatalf("expected validation error, got %v", err)
	}

	out, err := execute(t, "--store", "bolt", "list", "--format", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No entries.") {
		t.Errorf("rejected entry was stored:\n%s", out)
	}
}

func TestShow(t *testing.T) {
	setupEnv(t)
	execute(t, "--store", "bolt", "add", "coffee", "--amount", "1")

	out, err := execute(t, "--store", "bolt", "show", "0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Prev Hash: 0") {
		t.Errorf("unexpected show output:\n%s", out)
	}

	if _, err := execute(t, "--store", "bolt", "show", "5"); err == nil {
		t.Error("expected not found error")
	}
	if _, err := execute(t, "--store", "bolt", "show", "x"); err == nil {
		t.Error("expected invalid seq error")
	}
}

func TestUnknownStoreDriver(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "--store", "sqlite", "list")
	if err == nil || !strings.Contains(err.Error(), "unknown store driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chainlog dev") {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestNewServeLogger_verbose(t *testing.T) {
	tests := []struct {
		verbose bool
		debug   bool
	}{
		{false, false},
		{true, true},
	}
	for _, tt := range tests {
		l, err := newServeLogger(tt.verbose)
		if err != nil {
			t.Fatal(err)
		}
		if got := l.Core().Enabled(zap.DebugLevel); got != tt.debug {
			t.Errorf("verbose=%v: debug enabled = %v, want %v", tt.verbose, got, tt.debug)
		}
		if !l.Core().Enabled(zap.InfoLevel) {
			t.Errorf("verbose=%v: info should be enabled", tt.verbose)
		}
	}
}
