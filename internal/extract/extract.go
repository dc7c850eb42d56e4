package extract

import (
	"fmt"
	"strings"

	"manifestrecon/internal/config"
)

// Result is everything found in one document.
type Result struct {
	Header   Header
	Volumes  []VolumeRecord
	Warnings []string
}

// TotalBoxes sums the expected box counts of all volumes.
func (r Result) TotalBoxes() int {
	total := 0
	for _, v := range r.Volumes {
		total += v.Expected
	}
	return total
}

// Options configure an Extractor.
type Options struct {
	DestinationCode       string
	DestinationComponents []string
	TerminalPrefix        string
	Rules                 Rules
}

// Extractor turns document text into a Result. It is safe for concurrent use.
type Extractor struct {
	probes headerProbes
	parser lineParser
	dest   string
}

// New builds an Extractor. Empty options and rule sections fall back to the
// defaults.
func New(opts Options) *Extractor {
	code := compact(opts.DestinationCode)
	if code == "" {
		code = "PAMALS"
	}
	components := make([]string, 0, len(opts.DestinationComponents))
	for _, c := range opts.DestinationComponents {
		if c = compact(c); c != "" {
			components = append(components, c)
		}
	}
	prefix := strings.ToUpper(strings.TrimSpace(opts.TerminalPrefix))
	if prefix == "" {
		prefix = "PCAN"
	}
	rules := DefaultRules().overlay(opts.Rules)

	return &Extractor{
		probes: newHeaderProbes(prefix),
		parser: lineParser{
			rules: rules.compile(),
			dest:  destination{code: code, components: components},
		},
		dest: code,
	}
}

// NewFromConfig builds an Extractor from the extraction config, loading the
// rules file when one is configured.
func NewFromConfig(cfg *config.Config) (*Extractor, error) {
	rules := DefaultRules()
	if path := strings.TrimSpace(cfg.Extraction.RulesPath); path != "" {
		loaded, err := LoadRules(path)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}
	return New(Options{
		DestinationCode:       cfg.Extraction.DestinationCode,
		DestinationComponents: cfg.Extraction.DestinationComponents,
		TerminalPrefix:        cfg.Extraction.TerminalPrefix,
		Rules:                 rules,
	}), nil
}

// Extract parses text. It never fails; problems are reported as warnings.
func (e *Extractor) Extract(text string) Result {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	result := Result{Header: e.probes.extract(text)}
	for i, line := range strings.Split(text, "\n") {
		if rec, ok := e.parser.parse(i+1, line); ok {
			result.Volumes = append(result.Volumes, rec)
		}
	}
	result.Warnings = e.validate(result)
	return result
}

func (e *Extractor) validate(r Result) []string {
	var warnings []string
	if r.Header.Number == "" {
		warnings = append(warnings, "manifest number not found")
	}
	if r.Header.Date == nil {
		warnings = append(warnings, "manifest date not found")
	}
	if r.Header.Destination == "" {
		warnings = append(warnings, "destination terminal not found")
	}
	if len(r.Volumes) == 0 {
		warnings = append(warnings, fmt.Sprintf("no volumes addressed to %s found", e.dest))
	}
	for i, v := range r.Volumes {
		if v.Expected <= 0 {
			warnings = append(warnings, fmt.Sprintf("volume %d (%s): expected count %d is not positive", i+1, v.Number, v.Expected))
			continue
		}
		if v.LowConfidence() {
			warnings = append(warnings, fmt.Sprintf("volume %d (%s): box count %d guessed from line %d, confirm before receiving", i+1, v.Number, v.Expected, v.Line))
		}
	}
	return warnings
}
