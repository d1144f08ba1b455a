package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TAGFORGE_API_KEY", "test-key")
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	home := isolateHome(t)
	target := filepath.Join(home, "config.toml")

	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, err := execute(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestSchemaInitAndCheck(t *testing.T) {
	home := isolateHome(t)
	schemaPath := filepath.Join(home, ".config", "tagforge", "schema.toml")

	if _, err := execute(t, "schema", "init", "--path", schemaPath); err != nil {
		t.Fatalf("schema init: %v", err)
	}

	out, err := execute(t, "schema", "check")
	if err != nil {
		t.Fatalf("schema check: %v", err)
	}
	if !strings.Contains(out, "Schema valid") {
		t.Fatalf("expected valid schema report, got %q", out)
	}
}

func TestSchemaShowListsDimensions(t *testing.T) {
	home := isolateHome(t)
	schemaPath := filepath.Join(home, ".config", "tagforge", "schema.toml")
	if _, err := execute(t, "schema", "init", "--path", schemaPath); err != nil {
		t.Fatalf("schema init: %v", err)
	}

	out, err := execute(t, "schema", "show")
	if err != nil {
		t.Fatalf("schema show: %v", err)
	}
	for _, want := range []string{"nicotine_strength", "flavor_family", "cbd_spectrum"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected dimension %q in output:\n%s", want, out)
		}
	}
}

func TestSchemaShowCategoryFilter(t *testing.T) {
	home := isolateHome(t)
	schemaPath := filepath.Join(home, ".config", "tagforge", "schema.toml")
	if _, err := execute(t, "schema", "init", "--path", schemaPath); err != nil {
		t.Fatalf("schema init: %v", err)
	}

	out, err := execute(t, "schema", "show", "--category", "CBD")
	if err != nil {
		t.Fatalf("schema show: %v", err)
	}
	if !strings.Contains(out, "cbd_form") {
		t.Fatalf("expected CBD dimension in output:\n%s", out)
	}
	if strings.Contains(out, "nicotine_strength") {
		t.Fatalf("nicotine_strength does not apply to CBD:\n%s", out)
	}

	if _, err := execute(t, "schema", "show", "--category", "nope"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestConfigShowRedactsAPIKey(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "test-key") {
		t.Fatalf("api key must be redacted:\n%s", out)
	}
	if !strings.Contains(out, "api_key = '(set)'") && !strings.Contains(out, `api_key = "(set)"`) {
		t.Fatalf("expected redaction marker, got:\n%s", out)
	}
}

func TestRunsListEmpty(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("expected empty-state message, got %q", out)
	}
}

func TestConfigValidateWithDefaults(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("expected valid configuration, got %q", out)
	}
}
