package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseRulesOverlaysDefaults(t *testing.T) {
	rules, err := ParseRules([]byte(`{
		"senders": [{"keyword": "BASE AEREA ANAPOLIS", "value": "BAAN"}],
		"unknown_sender": "N/D"
	}`))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(rules.Senders) != 1 || rules.Senders[0].Value != "BAAN" {
		t.Fatalf("senders not replaced: %#v", rules.Senders)
	}
	if rules.UnknownSender != "N/D" {
		t.Fatalf("unknown sender = %q", rules.UnknownSender)
	}
	if rules.DefaultPackaging != "CAIXA" || len(rules.Packagings) == 0 {
		t.Fatalf("untouched sections should keep defaults: %#v", rules)
	}

	ex := New(Options{DestinationCode: "PAMALS", DestinationComponents: []string{"PAMA", "LS"}, Rules: rules})
	res := ex.Extract("Base Aérea Anápolis PAMALS 251381004311/0001 1,00 0,010 1 CAIXA 04\nPAMASP PAMALS 251381004312/0001 1,00 0,010 1 CAIXA 04")
	if len(res.Volumes) != 2 {
		t.Fatalf("expected two volumes, got %d", len(res.Volumes))
	}
	if res.Volumes[0].Sender != "BAAN" || res.Volumes[1].Sender != "N/D" {
		t.Fatalf("unexpected senders: %q %q", res.Volumes[0].Sender, res.Volumes[1].Sender)
	}
}

func TestParseRulesRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"senders": [`},
		{"unknown section", `{"recipients": []}`},
		{"keyword without value", `{"senders": [{"keyword": "CABW"}]}`},
		{"empty alias", `{"recipient_aliases": {"PAMLS": ""}}`},
		{"wrong type", `{"skip_words": "TOTAIS"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRules([]byte(tt.doc)); err == nil {
				t.Fatalf("expected %s to be rejected", tt.doc)
			}
		})
	}
}

func TestLoadRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(`{"recipient_aliases": {"PAMA LAGOA": "PAMALS"}}`), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	ex := New(Options{DestinationCode: "PAMALS", Rules: rules})
	res := ex.Extract("CABW PAMALAGOA 251381009999/0001 45,00 0,180 3 ENVELOPE 02")
	if len(res.Volumes) != 1 || res.Volumes[0].Recipient != "PAMALS" {
		t.Fatalf("alias not applied: %#v", res.Volumes)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}
