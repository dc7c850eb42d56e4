package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// CountSource records how a volume's expected box count was obtained.
type CountSource string

const (
	// CountPriority means the count sat two tokens before the priority code.
	CountPriority CountSource = "priority"
	// CountDefault means a priority code was found but no count next to it.
	CountDefault CountSource = "default"
	// CountScan means no priority code was found and the first plausible
	// integer after the volume number was taken.
	CountScan CountSource = "scan"
)

// VolumeRecord is one volume line addressed to the destination.
type VolumeRecord struct {
	Line         int
	Sender       string
	Recipient    string
	Number       string
	Expected     int
	CountSource  CountSource
	Weight       *float64
	Cubage       *float64
	Priority     string
	MaterialType string
	Packaging    string
}

// LowConfidence reports whether the box count is a guess that an operator
// should confirm.
func (v VolumeRecord) LowConfidence() bool { return v.CountSource == CountScan }

var (
	volumeTokenPattern   = regexp.MustCompile(`^\d{12}/\d{4}`)
	priorityTokenPattern = regexp.MustCompile(`^\d{2}$`)
	integerTokenPattern  = regexp.MustCompile(`^\d+$`)
	decimalTokenPattern  = regexp.MustCompile(`^\d+[,.]\d+$`)
	groupedTokenPattern  = regexp.MustCompile(`^\d{1,3}(\.\d{3})+,\d+$`)
	numericTokenPattern  = regexp.MustCompile(`^[\d.,/\-]+$`)
)

const (
	minScanCount = 1
	maxScanCount = 999
)

// destination is the recipient identity volume lines must match.
type destination struct {
	code       string
	components []string
}

func (d destination) matches(recipient string) bool {
	if recipient == "" {
		return false
	}
	if recipient == d.code {
		return true
	}
	if len(d.components) == 0 {
		return false
	}
	for _, c := range d.components {
		if !strings.Contains(recipient, c) {
			return false
		}
	}
	return true
}

// exact is the strict form used for two-token spellings, so that a sender
// followed by another terminal never merges into a false match.
func (d destination) exact(recipient string) bool {
	return recipient != "" && (recipient == d.code || recipient == strings.Join(d.components, ""))
}

type lineParser struct {
	rules compiledRules
	dest  destination
}

func (p lineParser) skip(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := p.rules.skip[compact(tok)]; ok {
			return true
		}
	}
	return false
}

func (p lineParser) normalizeRecipient(raw string) string {
	code := compact(raw)
	if canonical, ok := p.rules.aliases[code]; ok {
		return canonical
	}
	return code
}

// parse returns the record for one line and whether it was kept.
func (p lineParser) parse(lineNo int, line string) (VolumeRecord, bool) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 || p.skip(tokens) {
		return VolumeRecord{}, false
	}

	j := -1
	for i, tok := range tokens {
		if volumeTokenPattern.MatchString(tok) {
			j = i
			break
		}
	}
	if j < 1 {
		return VolumeRecord{}, false
	}

	number := tokens[j]
	rest := tokens[j+1:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		number += rest[0]
		rest = rest[1:]
	}

	// The recipient is normally one token; "PAMA LS" style spellings span two.
	recipientStart := j - 1
	recipient := p.normalizeRecipient(tokens[recipientStart])
	if !p.dest.matches(recipient) && j >= 2 {
		joined := p.normalizeRecipient(tokens[j-2] + tokens[j-1])
		if p.dest.exact(joined) {
			recipient = joined
			recipientStart = j - 2
		}
	}
	if !p.dest.matches(recipient) {
		return VolumeRecord{}, false
	}

	rec := VolumeRecord{
		Line:      lineNo,
		Sender:    p.sender(tokens[:recipientStart]),
		Recipient: recipient,
		Number:    number,
	}
	rec.Expected, rec.Priority, rec.CountSource = countAndPriority(rest)
	rec.Weight, rec.Cubage = weightAndCubage(rest)

	tail := compact(strings.Join(rest, " "))
	rec.MaterialType = p.rules.defaultMaterial
	if v, ok := lookup(p.rules.materials, tail); ok {
		rec.MaterialType = v
	}
	rec.Packaging = p.rules.defaultPackaging
	if v, ok := lookup(p.rules.packagings, tail); ok {
		rec.Packaging = v
	}
	return rec, true
}

// sender takes the contiguous non-numeric run ending right before the recipient.
func (p lineParser) sender(before []string) string {
	start := len(before)
	for start > 0 && !numericTokenPattern.MatchString(before[start-1]) {
		start--
	}
	run := compact(strings.Join(before[start:], " "))
	if run == "" {
		return p.rules.unknownSender
	}
	if v, ok := lookup(p.rules.senders, run); ok {
		return v
	}
	return p.rules.unknownSender
}

// countAndPriority reads the tokens after the volume number. The rightmost
// two-digit token is the priority code and the count sits two tokens before
// it. Without a priority code the first integer in [1, 999] is taken.
func countAndPriority(rest []string) (int, string, CountSource) {
	k := -1
	for i := len(rest) - 1; i >= 0; i-- {
		if priorityTokenPattern.MatchString(rest[i]) {
			k = i
			break
		}
	}
	if k >= 0 {
		priority := rest[k]
		if k >= 2 && integerTokenPattern.MatchString(rest[k-2]) {
			if n, err := strconv.Atoi(rest[k-2]); err == nil {
				return n, priority, CountPriority
			}
		}
		return 1, priority, CountDefault
	}
	for _, tok := range rest {
		if !integerTokenPattern.MatchString(tok) {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err == nil && n >= minScanCount && n <= maxScanCount {
			return n, "", CountScan
		}
	}
	return 1, "", CountScan
}

func weightAndCubage(rest []string) (*float64, *float64) {
	var found []float64
	for _, tok := range rest {
		v, ok := parseDecimal(tok)
		if !ok {
			continue
		}
		found = append(found, v)
		if len(found) == 2 {
			break
		}
	}
	var weight, cubage *float64
	if len(found) > 0 {
		weight = &found[0]
	}
	if len(found) > 1 {
		cubage = &found[1]
	}
	return weight, cubage
}

// parseDecimal reads 25,00, 25.00 and thousands-grouped 1.234,50.
func parseDecimal(tok string) (float64, bool) {
	switch {
	case groupedTokenPattern.MatchString(tok):
		tok = strings.ReplaceAll(tok, ".", "")
	case !decimalTokenPattern.MatchString(tok):
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
