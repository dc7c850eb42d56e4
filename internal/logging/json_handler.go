package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

const jsonTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// newJSONHandler writes one object per line with "ts", a lowercase level,
// durations as "<key>_ms" and blank operator or id fields dropped.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	}
	return slog.NewJSONHandler(w, &opts)
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
			if attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(jsonTimestampLayout))
			}
			return attr
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return attr
		case FieldOperator, FieldManifestID, FieldVolumeID:
			if blankAttr(attr.Value) {
				return slog.Attr{}
			}
		}
	}
	if attr.Value.Kind() == slog.KindDuration {
		return slog.Float64(attr.Key+"_ms", durationMillis(attr.Value.Duration()))
	}
	return attr
}

func blankAttr(v slog.Value) bool {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()) == ""
	case slog.KindInt64:
		return v.Int64() <= 0
	}
	return false
}

func durationMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
