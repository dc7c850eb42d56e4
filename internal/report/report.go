// Package report renders a manifest reconciliation as a semicolon separated
// CSV export or a landscape PDF.
package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"manifestrecon/internal/stats"
	"manifestrecon/internal/store"
)

// Report is everything the exporters render for one manifest.
type Report struct {
	Summary stats.Summary
	Volumes []store.Volume
	// ReceivedBy maps a volume ID to the operator of its latest received box.
	ReceivedBy  map[int64]string
	GeneratedAt time.Time
}

// Build loads the manifest, its statistics and volumes from st.
func Build(ctx context.Context, st *store.Store, manifestID int64) (Report, error) {
	m, err := st.GetManifest(ctx, manifestID)
	if err != nil {
		return Report{}, err
	}
	statistics, err := st.GetStatistics(ctx, manifestID)
	if err != nil {
		return Report{}, err
	}
	volumes, err := st.ListVolumes(ctx, manifestID)
	if err != nil {
		return Report{}, err
	}
	receivedBy := make(map[int64]string, len(volumes))
	for _, v := range volumes {
		if v.Received == 0 {
			continue
		}
		boxes, err := st.ListBoxes(ctx, v.ID)
		if err != nil {
			return Report{}, fmt.Errorf("boxes of volume %s: %w", v.Number, err)
		}
		var latest *store.Box
		for i := range boxes {
			b := &boxes[i]
			if b.ReceivedAt == nil {
				continue
			}
			if latest == nil || b.ReceivedAt.After(*latest.ReceivedAt) {
				latest = b
			}
		}
		if latest != nil {
			receivedBy[v.ID] = latest.Operator
		}
	}
	return Report{
		Summary:     stats.Summarize(*m, statistics, volumes),
		Volumes:     volumes,
		ReceivedBy:  receivedBy,
		GeneratedAt: time.Now(),
	}, nil
}

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(dateTimeLayout)
}

// formatDecimal renders with a decimal comma, as the source documents do.
func formatDecimal(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(*v, 'f', precision, 64), ".", ",", 1)
}
