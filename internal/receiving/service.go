package receiving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"manifestrecon/internal/logging"
	"manifestrecon/internal/mirror"
	"manifestrecon/internal/store"
)

// ErrNegativeCount reports a ReceiveVolume call with a negative count.
var ErrNegativeCount = errors.New("box count must not be negative")

// Recorder receives receiving counters; *metrics.Registry satisfies it.
type Recorder interface {
	BoxesReceived(n int)
	VolumesImported(n int)
	ExtractionWarnings(n int)
}

type noopRecorder struct{}

func (noopRecorder) BoxesReceived(int)      {}
func (noopRecorder) VolumesImported(int)    {}
func (noopRecorder) ExtractionWarnings(int) {}

// Service applies receiving operations to the store.
type Service struct {
	store           *store.Store
	logger          *slog.Logger
	recorder        Recorder
	publisher       mirror.Publisher
	defaultOperator string
	now             func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecorder routes counters to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithPublisher routes changed rows to p.
func WithPublisher(p mirror.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithDefaultOperator names the operator recorded when a call passes none.
func WithDefaultOperator(name string) Option {
	return func(s *Service) {
		if name = strings.TrimSpace(name); name != "" {
			s.defaultOperator = name
		}
	}
}

// NewService builds a Service over st.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:           st,
		recorder:        noopRecorder{},
		publisher:       mirror.Noop{},
		defaultOperator: "Sistema",
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "receiving")
	return s
}

// Store exposes the underlying store for read queries.
func (s *Service) Store() *store.Store { return s.store }

func (s *Service) operator(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return s.defaultOperator
}

// ReceiveResult is the outcome of ReceiveBox.
type ReceiveResult struct {
	Box             store.Box
	Volume          store.Volume
	ManifestStatus  store.ManifestStatus
	AlreadyReceived bool
}

// ReceiveBox marks one box received. A box that is already received is
// reported with AlreadyReceived and left untouched.
func (s *Service) ReceiveBox(ctx context.Context, volumeID int64, boxNumber int, operator string) (ReceiveResult, error) {
	operator = s.operator(operator)
	var (
		result   ReceiveResult
		manifest *store.Manifest
		changed  bool
	)
	err := s.store.Write(ctx, func(tx *store.Tx) error {
		result = ReceiveResult{}
		changed = false

		vol, err := tx.Volume(volumeID)
		if err != nil {
			return err
		}
		box, err := tx.Box(volumeID, boxNumber)
		if err != nil {
			return err
		}
		marked := false
		if box.Status != store.BoxReceived {
			marked, err = tx.MarkBoxReceived(volumeID, boxNumber, operator)
			if err != nil {
				return err
			}
		}
		if !marked {
			manifest, err = tx.Manifest(vol.ManifestID)
			if err != nil {
				return err
			}
			result = ReceiveResult{Box: *box, Volume: *vol, ManifestStatus: manifest.Status, AlreadyReceived: true}
			return nil
		}

		vol, err = refreshVolume(tx, vol)
		if err != nil {
			return err
		}
		manifest, changed, err = refreshManifest(tx, vol.ManifestID)
		if err != nil {
			return err
		}
		if err := tx.AppendLog(&vol.ManifestID, store.ActionBoxReceived,
			fmt.Sprintf("Volume %s box %d/%d (%d/%d received)", vol.Number, boxNumber, vol.Expected, vol.Received, vol.Expected),
			operator); err != nil {
			return err
		}
		box, err = tx.Box(volumeID, boxNumber)
		if err != nil {
			return err
		}
		result.Box = *box
		result.Volume = *vol
		result.ManifestStatus = manifest.Status
		return nil
	})
	if err != nil {
		return ReceiveResult{}, err
	}

	logger := logging.WithContext(ctx, s.logger)
	if result.AlreadyReceived {
		logger.Info("box already received",
			logging.ManifestID(result.Volume.ManifestID),
			logging.VolumeID(volumeID),
			logging.Int("box", boxNumber))
		return result, nil
	}
	s.recorder.BoxesReceived(1)
	logger.Info("box received",
		logging.ManifestID(result.Volume.ManifestID),
		logging.VolumeID(volumeID),
		logging.Int("box", boxNumber),
		logging.String("volume_status", string(result.Volume.Status)),
		logging.Operator(operator))
	s.publishVolume(manifest, &result.Volume, operator)
	if changed {
		s.publisher.Publish(mirror.ManifestRow(manifest, s.now()))
	}
	return result, nil
}

// VolumeReceipt is the outcome of ReceiveVolume.
type VolumeReceipt struct {
	Volume         store.Volume
	Received       []int
	ManifestStatus store.ManifestStatus
}

// ReceiveVolume receives outstanding boxes of a volume, lowest box number
// first. A nil count receives all of them; a count of zero changes nothing.
// Never more than the outstanding boxes are received.
func (s *Service) ReceiveVolume(ctx context.Context, volumeID int64, count *int, operator string) (VolumeReceipt, error) {
	if count != nil && *count < 0 {
		return VolumeReceipt{}, ErrNegativeCount
	}
	operator = s.operator(operator)

	if count != nil && *count == 0 {
		vol, err := s.store.GetVolume(ctx, volumeID)
		if err != nil {
			return VolumeReceipt{}, err
		}
		m, err := s.store.GetManifest(ctx, vol.ManifestID)
		if err != nil {
			return VolumeReceipt{}, err
		}
		return VolumeReceipt{Volume: *vol, ManifestStatus: m.Status}, nil
	}

	limit := 0
	if count != nil {
		limit = *count
	}
	var (
		receipt  VolumeReceipt
		manifest *store.Manifest
		changed  bool
	)
	err := s.store.Write(ctx, func(tx *store.Tx) error {
		receipt = VolumeReceipt{}
		changed = false

		vol, err := tx.Volume(volumeID)
		if err != nil {
			return err
		}
		received, err := receiveOutstanding(tx, volumeID, limit, operator)
		if err != nil {
			return err
		}
		if len(received) > 0 {
			vol, err = refreshVolume(tx, vol)
			if err != nil {
				return err
			}
		}
		manifest, changed, err = refreshManifest(tx, vol.ManifestID)
		if err != nil {
			return err
		}
		if len(received) > 0 {
			if err := tx.AppendLog(&vol.ManifestID, store.ActionVolumeReceived,
				fmt.Sprintf("Volume %s: %d boxes (%d/%d received)", vol.Number, len(received), vol.Received, vol.Expected),
				operator); err != nil {
				return err
			}
		}
		receipt = VolumeReceipt{Volume: *vol, Received: received, ManifestStatus: manifest.Status}
		return nil
	})
	if err != nil {
		return VolumeReceipt{}, err
	}

	if len(receipt.Received) > 0 {
		s.recorder.BoxesReceived(len(receipt.Received))
		logging.WithContext(ctx, s.logger).Info("volume boxes received",
			logging.ManifestID(receipt.Volume.ManifestID),
			logging.VolumeID(volumeID),
			logging.Int("boxes", len(receipt.Received)),
			logging.String("volume_status", string(receipt.Volume.Status)),
			logging.Operator(operator))
		s.publishVolume(manifest, &receipt.Volume, operator)
	}
	if changed {
		s.publisher.Publish(mirror.ManifestRow(manifest, s.now()))
	}
	return receipt, nil
}

// ManifestReceipt is the outcome of ReceiveManifest.
type ManifestReceipt struct {
	Manifest store.Manifest
	Boxes    int
	Volumes  []store.Volume
}

// ReceiveManifest receives every outstanding box of every volume of a
// manifest in one transaction.
func (s *Service) ReceiveManifest(ctx context.Context, manifestID int64, operator string) (ManifestReceipt, error) {
	operator = s.operator(operator)
	var (
		receipt ManifestReceipt
		changed bool
	)
	err := s.store.Write(ctx, func(tx *store.Tx) error {
		receipt = ManifestReceipt{}
		changed = false

		if _, err := tx.Manifest(manifestID); err != nil {
			return err
		}
		ids, err := tx.ManifestVolumeIDs(manifestID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			vol, err := tx.Volume(id)
			if err != nil {
				return err
			}
			received, err := receiveOutstanding(tx, id, 0, operator)
			if err != nil {
				return err
			}
			if len(received) == 0 {
				continue
			}
			vol, err = refreshVolume(tx, vol)
			if err != nil {
				return err
			}
			receipt.Boxes += len(received)
			receipt.Volumes = append(receipt.Volumes, *vol)
		}
		m, statusChanged, err := refreshManifest(tx, manifestID)
		if err != nil {
			return err
		}
		changed = statusChanged
		receipt.Manifest = *m
		if receipt.Boxes == 0 {
			return nil
		}
		return tx.AppendLog(&manifestID, store.ActionManifestReceived,
			fmt.Sprintf("Manifest %s: %d boxes across %d volumes", m.Number, receipt.Boxes, len(receipt.Volumes)),
			operator)
	})
	if err != nil {
		return ManifestReceipt{}, err
	}

	if receipt.Boxes > 0 {
		s.recorder.BoxesReceived(receipt.Boxes)
		logging.WithContext(ctx, s.logger).Info("manifest received",
			logging.ManifestID(manifestID),
			logging.Int("boxes", receipt.Boxes),
			logging.Int("volumes", len(receipt.Volumes)),
			logging.Operator(operator))
		for i := range receipt.Volumes {
			s.publishVolume(&receipt.Manifest, &receipt.Volumes[i], operator)
		}
	}
	if changed {
		s.publisher.Publish(mirror.ManifestRow(&receipt.Manifest, s.now()))
	}
	return receipt, nil
}

// StartReconciliation opens the receiving window and records the responsible
// operator. Status is left alone.
func (s *Service) StartReconciliation(ctx context.Context, manifestID int64, operator string) (*store.Manifest, error) {
	operator = s.operator(operator)
	var manifest *store.Manifest
	err := s.store.Write(ctx, func(tx *store.Tx) error {
		if _, err := tx.Manifest(manifestID); err != nil {
			return err
		}
		if err := tx.StartWindow(manifestID, operator); err != nil {
			return err
		}
		if err := tx.AppendLog(&manifestID, store.ActionReconcileStarted, "Receiving window opened", operator); err != nil {
			return err
		}
		m, err := tx.Manifest(manifestID)
		if err != nil {
			return err
		}
		manifest = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("reconciliation started",
		logging.ManifestID(manifestID),
		logging.Operator(operator))
	return manifest, nil
}

// FinishResult is the outcome of FinishReconciliation.
type FinishResult struct {
	Manifest store.Manifest
	Totals   store.Totals
	Complete bool
}

// FinishReconciliation recomputes the manifest status from its volume totals
// and closes the receiving window. Finishing an incomplete manifest is allowed;
// Complete tells the caller whether to warn.
func (s *Service) FinishReconciliation(ctx context.Context, manifestID int64, operator string) (FinishResult, error) {
	operator = s.operator(operator)
	var (
		result  FinishResult
		changed bool
	)
	err := s.store.Write(ctx, func(tx *store.Tx) error {
		m, statusChanged, err := refreshManifest(tx, manifestID)
		if err != nil {
			return err
		}
		changed = statusChanged
		totals, err := tx.ManifestTotals(manifestID)
		if err != nil {
			return err
		}
		if err := tx.FinishWindow(manifestID); err != nil {
			return err
		}
		if err := tx.AppendLog(&manifestID, store.ActionReconcileFinished,
			fmt.Sprintf("Receiving window closed: %d/%d boxes, %s", totals.Received, totals.Expected, m.Status),
			operator); err != nil {
			return err
		}
		m, err = tx.Manifest(manifestID)
		if err != nil {
			return err
		}
		result = FinishResult{
			Manifest: *m,
			Totals:   totals,
			Complete: m.Status == store.ManifestFullyReceived,
		}
		return nil
	})
	if err != nil {
		return FinishResult{}, err
	}

	logger := logging.WithContext(ctx, s.logger)
	if result.Complete {
		logger.Info("reconciliation finished",
			logging.ManifestID(manifestID),
			logging.Int("boxes", result.Totals.Received),
			logging.Operator(operator))
	} else {
		logging.WarnWithContext(logger, "reconciliation finished with outstanding boxes", "reconcile_incomplete",
			logging.ManifestID(manifestID),
			logging.Int("expected", result.Totals.Expected),
			logging.Int("received", result.Totals.Received),
			logging.String(logging.FieldErrorHint, "list volumes to see what is missing"),
			logging.String(logging.FieldImpact, "manifest stays partially received"))
	}
	if changed {
		s.publisher.Publish(mirror.ManifestRow(&result.Manifest, s.now()))
	}
	return result, nil
}

// DeleteManifest removes a manifest with all of its volumes, boxes and log
// entries. Callers are expected to have checked the admin secret.
func (s *Service) DeleteManifest(ctx context.Context, manifestID int64, operator string) error {
	operator = s.operator(operator)
	if err := s.store.DeleteManifest(ctx, manifestID, operator); err != nil {
		return err
	}
	logging.WithContext(ctx, s.logger).Info("manifest deleted",
		logging.ManifestID(manifestID),
		logging.Operator(operator))
	return nil
}

func (s *Service) publishVolume(m *store.Manifest, v *store.Volume, operator string) {
	if m == nil || v == nil {
		return
	}
	s.publisher.Publish(mirror.VolumeRow(m.Number, v, operator, s.now()))
}

// receiveOutstanding marks up to limit outstanding boxes (all when limit <= 0)
// and returns their numbers.
func receiveOutstanding(tx *store.Tx, volumeID int64, limit int, operator string) ([]int, error) {
	numbers, err := tx.OutstandingBoxNumbers(volumeID, limit)
	if err != nil {
		return nil, err
	}
	received := make([]int, 0, len(numbers))
	for _, n := range numbers {
		ok, err := tx.MarkBoxReceived(volumeID, n, operator)
		if err != nil {
			return nil, err
		}
		if ok {
			received = append(received, n)
		}
	}
	return received, nil
}

// refreshVolume recounts received boxes and stores the derived status.
func refreshVolume(tx *store.Tx, vol *store.Volume) (*store.Volume, error) {
	received, err := tx.CountReceivedBoxes(vol.ID)
	if err != nil {
		return nil, err
	}
	status := VolumeStatusFor(received, vol.Expected, vol.Extra())
	if err := tx.UpdateVolumeProgress(vol.ID, received, status); err != nil {
		return nil, err
	}
	return tx.Volume(vol.ID)
}

// refreshManifest recomputes the manifest status from its volume totals and
// reports whether it changed.
func refreshManifest(tx *store.Tx, manifestID int64) (*store.Manifest, bool, error) {
	m, err := tx.Manifest(manifestID)
	if err != nil {
		return nil, false, err
	}
	totals, err := tx.ManifestTotals(manifestID)
	if err != nil {
		return nil, false, err
	}
	status := ManifestStatusFor(totals)
	if status == m.Status {
		return m, false, nil
	}
	if err := tx.SetManifestStatus(manifestID, status); err != nil {
		return nil, false, err
	}
	m.Status = status
	return m, true, nil
}
