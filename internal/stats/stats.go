// Package stats derives the receiving summary shown for a manifest from the
// store aggregates and its volume list.
package stats

import (
	"math"
	"sort"
	"time"

	"manifestrecon/internal/store"
)

// StatusShare is how many volumes are in one status.
type StatusShare struct {
	Status  store.VolumeStatus
	Count   int
	Percent float64
}

// SenderRollup totals the volumes of one sender.
type SenderRollup struct {
	Sender   string
	Volumes  int
	Expected int
	Received int
}

// Outstanding returns the boxes still expected from the sender.
func (r SenderRollup) Outstanding() int {
	if r.Received >= r.Expected {
		return 0
	}
	return r.Expected - r.Received
}

// Summary is the reconciliation picture of one manifest.
type Summary struct {
	Manifest    store.Manifest
	Statistics  store.Statistics
	Statuses    []StatusShare
	Senders     []SenderRollup
	Outstanding []store.Volume
	// Window is the receiving window length; zero unless both ends are set.
	Window   time.Duration
	Complete bool
}

var statusOrder = []store.VolumeStatus{
	store.VolumeNotReceived,
	store.VolumePartial,
	store.VolumeComplete,
	store.VolumeExtra,
}

// Summarize combines a manifest, its store statistics and its volumes.
func Summarize(m store.Manifest, st store.Statistics, volumes []store.Volume) Summary {
	s := Summary{
		Manifest:   m,
		Statistics: st,
		Complete:   m.Status == store.ManifestFullyReceived,
	}

	counts := map[store.VolumeStatus]int{
		store.VolumeNotReceived: st.VolumesNotReceived,
		store.VolumePartial:     st.VolumesPartial,
		store.VolumeComplete:    st.VolumesComplete,
		store.VolumeExtra:       st.VolumesExtra,
	}
	for _, status := range statusOrder {
		share := StatusShare{Status: status, Count: counts[status]}
		if st.Volumes > 0 {
			share.Percent = percent(share.Count, st.Volumes)
		}
		s.Statuses = append(s.Statuses, share)
	}

	bySender := make(map[string]*SenderRollup)
	for _, v := range volumes {
		r, ok := bySender[v.Sender]
		if !ok {
			r = &SenderRollup{Sender: v.Sender}
			bySender[v.Sender] = r
		}
		r.Volumes++
		r.Expected += v.Expected
		r.Received += v.Received
		if v.Outstanding() > 0 {
			s.Outstanding = append(s.Outstanding, v)
		}
	}
	for _, r := range bySender {
		s.Senders = append(s.Senders, *r)
	}
	sort.Slice(s.Senders, func(i, j int) bool { return s.Senders[i].Sender < s.Senders[j].Sender })

	if m.WindowStart != nil && m.WindowEnd != nil && m.WindowEnd.After(*m.WindowStart) {
		s.Window = m.WindowEnd.Sub(*m.WindowStart)
	}
	return s
}

// OutstandingBoxes sums the boxes still expected across the manifest.
func (s Summary) OutstandingBoxes() int {
	total := 0
	for _, v := range s.Outstanding {
		total += v.Outstanding()
	}
	return total
}

func percent(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*1000) / 10
}
