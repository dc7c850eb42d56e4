package lookup

import (
	"context"
	"errors"
	"strings"

	"manifestrecon/internal/store"
)

// ErrEmptySuffix reports a search without any digits to match.
var ErrEmptySuffix = errors.New("suffix must contain at least one digit")

// Outcome classifies a search result.
type Outcome int

const (
	NotFound Outcome = iota
	Resolved
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// VolumeSource is the store query the finder needs.
type VolumeSource interface {
	VolumesBySender(ctx context.Context, manifestID int64, sender string) ([]store.Volume, error)
}

// Result holds every volume that matched.
type Result struct {
	Sender     string
	Suffix     string
	Candidates []store.Volume
}

// Outcome reports whether the search found nothing, one volume or several.
func (r Result) Outcome() Outcome {
	switch len(r.Candidates) {
	case 0:
		return NotFound
	case 1:
		return Resolved
	default:
		return Ambiguous
	}
}

// Volume returns the single match of a Resolved result.
func (r Result) Volume() (store.Volume, bool) {
	if r.Outcome() != Resolved {
		return store.Volume{}, false
	}
	return r.Candidates[0], true
}

// Finder runs suffix searches against a store.
type Finder struct {
	source VolumeSource
}

// NewFinder builds a Finder over src.
func NewFinder(src VolumeSource) *Finder {
	return &Finder{source: src}
}

// Find returns the volumes of manifestID sent by sender whose number, taken
// before the first '/' and reduced to digits, ends with suffix. Source
// errors, including store.ErrNotFound for an unknown manifest, are returned.
func (f *Finder) Find(ctx context.Context, manifestID int64, sender, suffix string) (Result, error) {
	suffix = digitsOnly(strings.TrimSpace(suffix))
	if suffix == "" {
		return Result{}, ErrEmptySuffix
	}
	volumes, err := f.source.VolumesBySender(ctx, manifestID, sender)
	if err != nil {
		return Result{}, err
	}
	res := Result{Sender: strings.ToUpper(strings.TrimSpace(sender)), Suffix: suffix}
	for _, v := range volumes {
		if strings.HasSuffix(NumberDigits(v.Number), suffix) {
			res.Candidates = append(res.Candidates, v)
		}
	}
	return res, nil
}

// NumberDigits returns the digits of a volume number before its first '/'.
func NumberDigits(number string) string {
	if i := strings.IndexByte(number, '/'); i >= 0 {
		number = number[:i]
	}
	return digitsOnly(number)
}

// DigitsFor returns how many trailing digits operators type for a sender.
// Container senders (CABW, CABE) use longer references.
func DigitsFor(sender string) int {
	s := strings.ToUpper(sender)
	if strings.Contains(s, "CABW") || strings.Contains(s, "CABE") {
		return 7
	}
	return 4
}

// TrailingDigits returns the last n digits of a volume number as an operator
// would type them. Shorter numbers are returned whole.
func TrailingDigits(number string, n int) string {
	digits := NumberDigits(number)
	if n <= 0 || len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
