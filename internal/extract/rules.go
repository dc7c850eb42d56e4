package extract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed rules.schema.json
var rulesSchemaJSON []byte

const rulesSchemaURL = "manifestrecon://rules.schema.json"

// Keyword maps a case- and accent-insensitive keyword to a canonical value.
type Keyword struct {
	Keyword string `json:"keyword"`
	Value   string `json:"value"`
}

// Rules holds the normalization tables. Order matters in every keyword list:
// the first match wins.
type Rules struct {
	Senders          []Keyword         `json:"senders,omitempty"`
	RecipientAliases map[string]string `json:"recipient_aliases,omitempty"`
	Materials        []Keyword         `json:"materials,omitempty"`
	Packagings       []Keyword         `json:"packagings,omitempty"`
	SkipWords        []string          `json:"skip_words,omitempty"`
	UnknownSender    string            `json:"unknown_sender,omitempty"`
	DefaultMaterial  string            `json:"default_material,omitempty"`
	DefaultPackaging string            `json:"default_packaging,omitempty"`
}

// DefaultRules returns the tables used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		Senders: []Keyword{
			{Keyword: "PAMASP", Value: "PAMASP"},
			{Keyword: "PAMALS", Value: "PAMALS"},
			{Keyword: "PAMARF", Value: "PAMARF"},
			{Keyword: "PAMAGL", Value: "PAMAGL"},
			{Keyword: "CABW", Value: "CABW"},
			{Keyword: "CABE", Value: "CABE"},
			{Keyword: "GAP SP", Value: "GAP-SP"},
			{Keyword: "GAP RJ", Value: "GAP-RJ"},
			{Keyword: "GAP BR", Value: "GAP-BR"},
			{Keyword: "GAP CO", Value: "GAP-CO"},
			{Keyword: "DIRMAB", Value: "DIRMAB"},
			{Keyword: "CELOG", Value: "CELOG"},
			{Keyword: "BAAN", Value: "BAAN"},
		},
		RecipientAliases: map[string]string{
			"PAMLS":          "PAMALS",
			"PAMALAGOASANTA": "PAMALS",
		},
		Materials: []Keyword{
			{Keyword: "PERIGOSO", Value: "Perigoso"},
			{Keyword: "INFLAMAVEL", Value: "Perigoso"},
			{Keyword: "FRAGIL", Value: "Frágil"},
			{Keyword: "REFRIGERADO", Value: "Refrigerado"},
			{Keyword: "SEM RESTRICOES", Value: "Sem Restrições"},
		},
		Packagings: []Keyword{
			{Keyword: "ENVELOPE", Value: "ENVELOPE"},
			{Keyword: "PALETE", Value: "PALETE"},
			{Keyword: "TAMBOR", Value: "TAMBOR"},
			{Keyword: "FARDO", Value: "FARDO"},
			{Keyword: "ENGRADADO", Value: "ENGRADADO"},
			{Keyword: "CAIXA", Value: "CAIXA"},
		},
		SkipWords: []string{
			"MANIFEST", "MANIFESTO",
			"PAGE", "PÁGINA",
			"TOTAL", "TOTALS", "TOTAIS",
			"DELIVERED", "ENTREGUE",
		},
		UnknownSender:    "DESCONHECIDO",
		DefaultMaterial:  "Sem Restrições",
		DefaultPackaging: "CAIXA",
	}
}

// LoadRules reads a JSON rules document, validates it, and overlays it on
// DefaultRules. Sections absent from the document keep their defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules validates and decodes a JSON rules document.
func ParseRules(data []byte) (Rules, error) {
	schema, err := compileRulesSchema()
	if err != nil {
		return Rules{}, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return Rules{}, fmt.Errorf("invalid rules: %w", err)
	}

	var loaded Rules
	if err := json.Unmarshal(data, &loaded); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	return DefaultRules().overlay(loaded), nil
}

func compileRulesSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(rulesSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse rules schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(rulesSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add rules schema: %w", err)
	}
	schema, err := compiler.Compile(rulesSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile rules schema: %w", err)
	}
	return schema, nil
}

func (r Rules) overlay(o Rules) Rules {
	if len(o.Senders) > 0 {
		r.Senders = o.Senders
	}
	if len(o.RecipientAliases) > 0 {
		r.RecipientAliases = o.RecipientAliases
	}
	if len(o.Materials) > 0 {
		r.Materials = o.Materials
	}
	if len(o.Packagings) > 0 {
		r.Packagings = o.Packagings
	}
	if len(o.SkipWords) > 0 {
		r.SkipWords = o.SkipWords
	}
	if s := strings.TrimSpace(o.UnknownSender); s != "" {
		r.UnknownSender = s
	}
	if s := strings.TrimSpace(o.DefaultMaterial); s != "" {
		r.DefaultMaterial = s
	}
	if s := strings.TrimSpace(o.DefaultPackaging); s != "" {
		r.DefaultPackaging = s
	}
	return r
}

// compiledRules is Rules with every keyword pre-compacted for matching.
type compiledRules struct {
	senders          []compiledKeyword
	aliases          map[string]string
	materials        []compiledKeyword
	packagings       []compiledKeyword
	skip             map[string]struct{}
	unknownSender    string
	defaultMaterial  string
	defaultPackaging string
}

type compiledKeyword struct {
	key   string
	value string
}

func (r Rules) compile() compiledRules {
	c := compiledRules{
		senders:          compileKeywords(r.Senders),
		aliases:          make(map[string]string, len(r.RecipientAliases)),
		materials:        compileKeywords(r.Materials),
		packagings:       compileKeywords(r.Packagings),
		skip:             make(map[string]struct{}, len(r.SkipWords)),
		unknownSender:    r.UnknownSender,
		defaultMaterial:  r.DefaultMaterial,
		defaultPackaging: r.DefaultPackaging,
	}
	for alias, canonical := range r.RecipientAliases {
		c.aliases[compact(alias)] = compact(canonical)
	}
	for _, w := range r.SkipWords {
		c.skip[compact(w)] = struct{}{}
	}
	return c
}

func compileKeywords(in []Keyword) []compiledKeyword {
	out := make([]compiledKeyword, 0, len(in))
	for _, k := range in {
		key := compact(k.Keyword)
		if key == "" {
			continue
		}
		out = append(out, compiledKeyword{key: key, value: k.Value})
	}
	return out
}

// lookup returns the value of the first keyword contained in compacted text.
func lookup(keywords []compiledKeyword, text string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k.key) {
			return k.value, true
		}
	}
	return "", false
}
