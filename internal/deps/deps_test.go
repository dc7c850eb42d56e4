package deps

import (
	"os"
	"path/filepath"
	"testing"

	"manifestrecon/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != present {
		t.Fatalf("expected first requirement to resolve to %s, got %#v", present, results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured command, got %#v", results[2])
	}

	missing := MissingRequired(results)
	if len(missing) != 1 || missing[0] != "Missing" {
		t.Fatalf("MissingRequired = %v, want [Missing]", missing)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.PdftotextBinary = "/opt/poppler/bin/pdftotext"

	reqs := Requirements(&cfg)
	if len(reqs) != 1 {
		t.Fatalf("expected one requirement, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/poppler/bin/pdftotext" || !reqs[0].Optional {
		t.Fatalf("unexpected pdftotext requirement: %#v", reqs[0])
	}
}
