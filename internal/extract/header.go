package extract

import (
	"regexp"
	"strings"
	"time"
)

// FieldProbe looks for one header field in the full document text.
type FieldProbe func(text string) (string, bool)

// Header is the manifest metadata found at the top of the document. Empty
// strings and a nil Date mean the field was not found.
type Header struct {
	Number      string
	Date        *time.Time
	Origin      string
	Destination string
	Mission     string
	Aircraft    string
}

// headerProbes lists the probes for every header field in priority order.
type headerProbes struct {
	number      []FieldProbe
	date        []FieldProbe
	origin      []FieldProbe
	destination []FieldProbe
	mission     []FieldProbe
	aircraft    []FieldProbe
}

const manifestDateLayout = "02/01/2006"

func newHeaderProbes(terminalPrefix string) headerProbes {
	terminal := regexp.MustCompile(regexp.QuoteMeta(terminalPrefix) + `-[A-Z]{2}\b`)
	return headerProbes{
		number: []FieldProbe{
			capture(regexp.MustCompile(`(?i)Manifest[o]?:\s*(?:P[aá]gina\s*)?(\d{12})`)),
			capture(regexp.MustCompile(`(?m)^(\d{12})`)),
		},
		date: []FieldProbe{
			capture(regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s+\d{2}:\d{2}`)),
		},
		origin: []FieldProbe{
			capture(regexp.MustCompile(`(?i)TERMINAL DE ORIGEM:[ \t]*([A-Z\-]+)`)),
			nth(terminal, 0),
		},
		destination: []FieldProbe{
			capture(regexp.MustCompile(`(?i)TERMINAL DE DESTINO:[ \t]*([A-Z\-]+)`)),
			nth(terminal, 1),
		},
		mission: []FieldProbe{
			capture(regexp.MustCompile(`(?i)MISS[ÃA]O:[ \t]*([A-Z0-9 \t]+?)[ \t]*(?:\n|V\.|$)`)),
			nth(regexp.MustCompile(`FAB\s+\d+`), 0),
		},
		aircraft: []FieldProbe{
			capture(regexp.MustCompile(`(?i)AERONAVE:[ \t]*([A-Z0-9\-]+)`)),
			nth(regexp.MustCompile(`\bC-\d+`), 0),
		},
	}
}

// capture returns the first submatch of re.
func capture(re *regexp.Regexp) FieldProbe {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return "", false
		}
		value := strings.TrimSpace(m[1])
		return value, value != ""
	}
}

// nth returns the n-th (0-based) whole match of re.
func nth(re *regexp.Regexp, n int) FieldProbe {
	return func(text string) (string, bool) {
		matches := re.FindAllString(text, n+1)
		if len(matches) <= n {
			return "", false
		}
		return matches[n], true
	}
}

func firstMatch(text string, probes []FieldProbe) string {
	for _, probe := range probes {
		if value, ok := probe(text); ok {
			return value
		}
	}
	return ""
}

func (p headerProbes) extract(text string) Header {
	h := Header{
		Number:      firstMatch(text, p.number),
		Origin:      strings.ToUpper(firstMatch(text, p.origin)),
		Destination: strings.ToUpper(firstMatch(text, p.destination)),
		Mission:     firstMatch(text, p.mission),
		Aircraft:    strings.ToUpper(firstMatch(text, p.aircraft)),
	}
	if raw := firstMatch(text, p.date); raw != "" {
		if d, err := time.Parse(manifestDateLayout, raw); err == nil {
			h.Date = &d
		}
	}
	return h
}
