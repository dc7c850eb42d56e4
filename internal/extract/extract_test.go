package extract

import (
	"math"
	"strings"
	"testing"
	"time"

	"manifestrecon/internal/testsupport"
)

func newTestExtractor() *Extractor {
	return New(Options{DestinationCode: "PAMALS", DestinationComponents: []string{"PAMA", "LS"}})
}

func floatValue(p *float64) float64 {
	if p == nil {
		return -1
	}
	return *p
}

func TestExtractSpecimenLine(t *testing.T) {
	res := newTestExtractor().Extract("PAMASP PAMALS 251381004311/0001 25,00 0,340 04")
	if len(res.Volumes) != 1 {
		t.Fatalf("expected one volume, got %d", len(res.Volumes))
	}
	v := res.Volumes[0]
	if v.Sender != "PAMASP" || v.Recipient != "PAMALS" || v.Number != "251381004311/0001" {
		t.Fatalf("unexpected identity: %#v", v)
	}
	if floatValue(v.Weight) != 25.0 || floatValue(v.Cubage) != 0.34 {
		t.Fatalf("unexpected weight/cubage: %v %v", floatValue(v.Weight), floatValue(v.Cubage))
	}
	if v.Priority != "04" || v.Expected != 1 || v.CountSource != CountDefault || v.LowConfidence() {
		t.Fatalf("unexpected count/priority: %#v", v)
	}
	if v.Packaging != "CAIXA" || v.MaterialType != "Sem Restrições" {
		t.Fatalf("unexpected defaults: %#v", v)
	}
}

func TestExtractVolumeLines(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		keep      bool
		sender    string
		recipient string
		number    string
		expected  int
		source    CountSource
		packaging string
		material  string
	}{
		{
			name: "count before packaging and priority", keep: true,
			line:   "PAMASP PAMALS 251381004370/0001 80,00 0,240 4 CAIXA 04",
			sender: "PAMASP", recipient: "PAMALS", number: "251381004370/0001",
			expected: 4, source: CountPriority, packaging: "CAIXA", material: "Sem Restrições",
		},
		{
			name: "hyphenated recipient", keep: true,
			line:   "CABW PAMA-LS 251381009999/0001 45,00 0,180 3 ENVELOPE 02",
			sender: "CABW", recipient: "PAMALS", number: "251381009999/0001",
			expected: 3, source: CountPriority, packaging: "ENVELOPE", material: "Sem Restrições",
		},
		{
			name: "two token sender and recipient", keep: true,
			line:   "GAP SP PAMA LS 251381004371/0001 1,00 0,010 1 ENVELOPE 04",
			sender: "GAP-SP", recipient: "PAMALS", number: "251381004371/0001",
			expected: 1, source: CountPriority, packaging: "ENVELOPE", material: "Sem Restrições",
		},
		{
			name: "range marker appended", keep: true,
			line:   "PAMASP PAMALS 251381004370/0001 -0004 80,00 0,240 4 CAIXA 04",
			sender: "PAMASP", recipient: "PAMALS", number: "251381004370/0001-0004",
			expected: 4, source: CountPriority, packaging: "CAIXA", material: "Sem Restrições",
		},
		{
			name: "scan fallback without priority", keep: true,
			line:   "PAMASP PAMALS 251381004311/0001 25,00 0,340 3 CAIXA",
			sender: "PAMASP", recipient: "PAMALS", number: "251381004311/0001",
			expected: 3, source: CountScan, packaging: "CAIXA", material: "Sem Restrições",
		},
		{
			name: "unknown sender keeps the row", keep: true,
			line:   "XYZW PAMALS 251381004311/0001 1,00 0,010 1 CAIXA 04",
			sender: "DESCONHECIDO", recipient: "PAMALS", number: "251381004311/0001",
			expected: 1, source: CountPriority, packaging: "CAIXA", material: "Sem Restrições",
		},
		{
			name: "accented lowercase keywords", keep: true,
			line:   "cabe pamals 251381001234/0002 2,50 0,020 Inflamável 2 tambor 01",
			sender: "CABE", recipient: "PAMALS", number: "251381001234/0002",
			expected: 2, source: CountPriority, packaging: "TAMBOR", material: "Perigoso",
		},
		{
			name: "thousands separator in weight", keep: true,
			line:   "PAMASP PAMALS 251381004311/0001 1.234,50 0,340 2 CAIXA 04",
			sender: "PAMASP", recipient: "PAMALS", number: "251381004311/0001",
			expected: 2, source: CountPriority, packaging: "CAIXA", material: "Sem Restrições",
		},
		{name: "other recipient", line: "PAMASP PAMARF 251381007777/0001 10,00 0,100 1 CAIXA 04"},
		{name: "sender and other terminal never merge", line: "PAMALS PAMARF 251381007777/0001 10,00 0,100 1 CAIXA 04"},
		{name: "totals marker", line: "TOTAIS PAMALS 251381004311/0001 161,00 0,870"},
		{name: "no recipient token", line: "251381004311/0001 PAMALS 1,00 0,010 1 CAIXA 04"},
		{name: "short volume number", line: "PAMASP PAMALS 25138100431/0001 1,00 0,010 1 CAIXA 04"},
	}

	ex := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ex.Extract(tt.line)
			if !tt.keep {
				if len(res.Volumes) != 0 {
					t.Fatalf("expected line to be dropped, got %#v", res.Volumes)
				}
				return
			}
			if len(res.Volumes) != 1 {
				t.Fatalf("expected one volume, got %d", len(res.Volumes))
			}
			v := res.Volumes[0]
			if v.Sender != tt.sender || v.Recipient != tt.recipient || v.Number != tt.number {
				t.Fatalf("identity = %q/%q/%q, want %q/%q/%q", v.Sender, v.Recipient, v.Number, tt.sender, tt.recipient, tt.number)
			}
			if v.Expected != tt.expected || v.CountSource != tt.source {
				t.Fatalf("count = %d (%s), want %d (%s)", v.Expected, v.CountSource, tt.expected, tt.source)
			}
			if v.Packaging != tt.packaging || v.MaterialType != tt.material {
				t.Fatalf("packaging/material = %q/%q, want %q/%q", v.Packaging, v.MaterialType, tt.packaging, tt.material)
			}
		})
	}
}

func TestExtractWeightAndCubage(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		weight float64
		cubage float64
	}{
		{"decimal comma", "PAMASP PAMALS 251381004311/0001 25,00 0,340 04", 25, 0.34},
		{"decimal point", "PAMASP PAMALS 251381004311/0001 25.00 0.340 04", 25, 0.34},
		{"grouped weight", "PAMASP PAMALS 251381004311/0001 1.234,50 0,340 2 CAIXA 04", 1234.5, 0.34},
		{"grouped millions", "PAMASP PAMALS 251381004311/0001 1.000.000,25 12,500 2 CAIXA 04", 1000000.25, 12.5},
	}

	ex := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ex.Extract(tt.line)
			if len(res.Volumes) != 1 {
				t.Fatalf("expected one volume, got %d", len(res.Volumes))
			}
			v := res.Volumes[0]
			if v.Weight == nil || v.Cubage == nil {
				t.Fatalf("weight/cubage = %v/%v, want %v/%v", v.Weight, v.Cubage, tt.weight, tt.cubage)
			}
			if math.Abs(*v.Weight-tt.weight) > 1e-9 || math.Abs(*v.Cubage-tt.cubage) > 1e-9 {
				t.Fatalf("weight/cubage = %v/%v, want %v/%v", *v.Weight, *v.Cubage, tt.weight, tt.cubage)
			}
		})
	}
}

func TestExtractSampleDocument(t *testing.T) {
	res := newTestExtractor().Extract(testsupport.SampleManifestText)

	h := res.Header
	if h.Number != "202531000635" {
		t.Fatalf("number = %q", h.Number)
	}
	if h.Date == nil || !h.Date.Equal(time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", h.Date)
	}
	if h.Origin != "PCAN-GR" || h.Destination != "PCAN-LS" {
		t.Fatalf("terminals = %q -> %q", h.Origin, h.Destination)
	}
	if h.Mission != "FAB 2309" || h.Aircraft != "C-95" {
		t.Fatalf("mission/aircraft = %q/%q", h.Mission, h.Aircraft)
	}

	if len(res.Volumes) != 4 {
		t.Fatalf("expected 4 volumes for PAMALS, got %d", len(res.Volumes))
	}
	wantNumbers := []string{"251381004311/0001", "251381004370/0001", "251381009999/0001", "251381004371/0001"}
	for i, want := range wantNumbers {
		if res.Volumes[i].Number != want {
			t.Fatalf("volume %d = %q, want %q", i, res.Volumes[i].Number, want)
		}
	}
	if res.TotalBoxes() != 9 {
		t.Fatalf("expected 9 boxes, got %d", res.TotalBoxes())
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestExtractHeaderFallbacks(t *testing.T) {
	text := strings.Join([]string{
		"202531000777 CARGA",
		"ROTA PCAN-GR PCAN-LS",
		"VOO FAB 2310 EQUIPAMENTO C-105",
	}, "\n")
	res := newTestExtractor().Extract(text)
	h := res.Header
	if h.Number != "202531000777" || h.Origin != "PCAN-GR" || h.Destination != "PCAN-LS" {
		t.Fatalf("unexpected header: %#v", h)
	}
	if h.Mission != "FAB 2310" || h.Aircraft != "C-105" {
		t.Fatalf("unexpected mission/aircraft: %#v", h)
	}
	if h.Date != nil {
		t.Fatalf("expected no date, got %v", h.Date)
	}
}

func TestExtractEmptyLabelsFallBackToPositionalProbes(t *testing.T) {
	text := strings.Join([]string{
		"Manifesto: 202531000635",
		"TERMINAL DE ORIGEM:",
		"MISSÃO: FAB 2309",
		"TERMINAL DE DESTINO:   ",
		"AERONAVE:",
		"ROTA PCAN-GR PCAN-LS C-95",
	}, "\n")
	h := newTestExtractor().Extract(text).Header
	if h.Origin != "PCAN-GR" || h.Destination != "PCAN-LS" {
		t.Fatalf("terminals = %q -> %q, want PCAN-GR -> PCAN-LS", h.Origin, h.Destination)
	}
	if h.Mission != "FAB 2309" || h.Aircraft != "C-95" {
		t.Fatalf("mission/aircraft = %q/%q", h.Mission, h.Aircraft)
	}
}

func TestExtractTerminalPrefixIsConfigurable(t *testing.T) {
	ex := New(Options{DestinationCode: "PAMALS", TerminalPrefix: "sbgr"})
	res := ex.Extract("SBGR-AB para SBGR-CD e PCAN-LS")
	if res.Header.Origin != "SBGR-AB" || res.Header.Destination != "SBGR-CD" {
		t.Fatalf("unexpected terminals: %#v", res.Header)
	}
}

func TestExtractWarnings(t *testing.T) {
	ex := newTestExtractor()

	empty := ex.Extract("nothing useful here")
	want := []string{
		"manifest number not found",
		"manifest date not found",
		"destination terminal not found",
		"no volumes addressed to PAMALS found",
	}
	if strings.Join(empty.Warnings, "|") != strings.Join(want, "|") {
		t.Fatalf("warnings = %v, want %v", empty.Warnings, want)
	}

	text := testsupport.SampleManifestText +
		"PAMASP PAMALS 251381005555/0001 2,00 0,020 0 CAIXA 04\n" +
		"PAMASP PAMALS 251381006666/0001 2,00 0,020 7 CAIXA\n"
	res := ex.Extract(text)
	if len(res.Warnings) != 2 {
		t.Fatalf("expected two warnings, got %v", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0], "251381005555/0001") || !strings.Contains(res.Warnings[0], "not positive") {
		t.Fatalf("unexpected non-positive warning: %q", res.Warnings[0])
	}
	if !strings.Contains(res.Warnings[1], "251381006666/0001") || !strings.Contains(res.Warnings[1], "guessed") {
		t.Fatalf("unexpected low-confidence warning: %q", res.Warnings[1])
	}
}
