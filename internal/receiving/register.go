package receiving

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"manifestrecon/internal/extract"
	"manifestrecon/internal/logging"
	"manifestrecon/internal/mirror"
	"manifestrecon/internal/store"
)

// ErrMissingManifestNumber reports an import whose document had no manifest number.
var ErrMissingManifestNumber = errors.New("manifest number missing from document")

// RegisterManifest creates a manifest in NOT_RECEIVED.
func (s *Service) RegisterManifest(ctx context.Context, in store.NewManifest, operator string) (*store.Manifest, error) {
	operator = s.operator(operator)
	id, err := s.store.CreateManifest(ctx, in, operator)
	if err != nil {
		return nil, err
	}
	m, err := s.store.GetManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("manifest registered",
		logging.ManifestID(id),
		logging.String("number", m.Number),
		logging.Operator(operator))
	s.publisher.Publish(mirror.ManifestRow(m, s.now()))
	return m, nil
}

// RegisterVolume adds a volume and its boxes to a manifest. The manifest status
// is recomputed because the expected total grows.
func (s *Service) RegisterVolume(ctx context.Context, in store.NewVolume, operator string) (*store.Volume, error) {
	in.Extra = false
	return s.registerVolume(ctx, in, operator)
}

// RegisterExtraVolume adds an operator-found volume that the document did not
// list. It is tagged EXTRA_VOLUME and its boxes are received at once because
// the operator is holding them.
func (s *Service) RegisterExtraVolume(ctx context.Context, in store.NewVolume, operator string) (*store.Volume, error) {
	in.Extra = true
	return s.registerVolume(ctx, in, operator)
}

func (s *Service) registerVolume(ctx context.Context, in store.NewVolume, operator string) (*store.Volume, error) {
	operator = s.operator(operator)
	var (
		vol      *store.Volume
		manifest *store.Manifest
		changed  bool
		received int
	)
	err := s.store.Write(ctx, func(tx *store.Tx) error {
		received = 0
		id, err := tx.InsertVolume(in)
		if err != nil {
			return err
		}
		vol, err = tx.Volume(id)
		if err != nil {
			return err
		}
		action := store.ActionVolumeCreated
		if in.Extra {
			action = store.ActionExtraVolume
			boxes, err := receiveOutstanding(tx, id, 0, operator)
			if err != nil {
				return err
			}
			received = len(boxes)
			vol, err = refreshVolume(tx, vol)
			if err != nil {
				return err
			}
		}
		manifest, changed, err = refreshManifest(tx, in.ManifestID)
		if err != nil {
			return err
		}
		return tx.AppendLog(&in.ManifestID, action,
			fmt.Sprintf("Volume %s (%s, %d boxes)", vol.Number, vol.Sender, vol.Expected), operator)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.BoxesReceived(received)
	logging.WithContext(ctx, s.logger).Info("volume registered",
		logging.ManifestID(vol.ManifestID),
		logging.VolumeID(vol.ID),
		logging.String("number", vol.Number),
		logging.Bool("extra", in.Extra),
		logging.Int("boxes", vol.Expected),
		logging.Operator(operator))
	s.publishVolume(manifest, vol, operator)
	if changed {
		s.publisher.Publish(mirror.ManifestRow(manifest, s.now()))
	}
	return vol, nil
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Manifest store.Manifest
	Volumes  []store.Volume
	Boxes    int
	Skipped  []string
	Warnings []string
}

// Import registers the manifest and every extracted volume in one
// transaction. Volumes with a non-positive box count are skipped and listed in
// Skipped. A duplicate manifest number or a volume number repeated in the
// document aborts the whole import.
func (s *Service) Import(ctx context.Context, res extract.Result, sourceRef, operator string) (ImportResult, error) {
	operator = s.operator(operator)
	number := strings.TrimSpace(res.Header.Number)
	if number == "" {
		return ImportResult{}, ErrMissingManifestNumber
	}
	s.recorder.ExtractionWarnings(len(res.Warnings))

	var out ImportResult
	err := s.store.Write(ctx, func(tx *store.Tx) error {
		out = ImportResult{Warnings: append([]string(nil), res.Warnings...)}

		manifestID, err := tx.InsertManifest(store.NewManifest{
			Number:      number,
			Date:        res.Header.Date,
			Origin:      res.Header.Origin,
			Destination: res.Header.Destination,
			Mission:     res.Header.Mission,
			Aircraft:    res.Header.Aircraft,
			SourceRef:   sourceRef,
		})
		if err != nil {
			return err
		}
		for _, rec := range res.Volumes {
			if rec.Expected < 1 {
				out.Skipped = append(out.Skipped, rec.Number)
				continue
			}
			id, err := tx.InsertVolume(store.NewVolume{
				ManifestID:   manifestID,
				Sender:       rec.Sender,
				Recipient:    rec.Recipient,
				Number:       rec.Number,
				Expected:     rec.Expected,
				Weight:       rec.Weight,
				Cubage:       rec.Cubage,
				Priority:     rec.Priority,
				MaterialType: rec.MaterialType,
				Packaging:    rec.Packaging,
			})
			if err != nil {
				return err
			}
			vol, err := tx.Volume(id)
			if err != nil {
				return err
			}
			out.Volumes = append(out.Volumes, *vol)
			out.Boxes += vol.Expected
		}
		detail := fmt.Sprintf("Imported %d volumes, %d boxes", len(out.Volumes), out.Boxes)
		if sourceRef != "" {
			detail += " from " + sourceRef
		}
		if err := tx.AppendLog(&manifestID, store.ActionManifestImported, detail, operator); err != nil {
			return err
		}
		m, err := tx.Manifest(manifestID)
		if err != nil {
			return err
		}
		out.Manifest = *m
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	s.recorder.VolumesImported(len(out.Volumes))
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("manifest imported",
		logging.ManifestID(out.Manifest.ID),
		logging.String("number", out.Manifest.Number),
		logging.Int("volumes", len(out.Volumes)),
		logging.Int("boxes", out.Boxes),
		logging.String("source", sourceRef),
		logging.Operator(operator))
	if len(out.Warnings) > 0 || len(out.Skipped) > 0 {
		logging.WarnWithContext(logger, "manifest imported with extraction warnings", "extraction_warnings",
			logging.ManifestID(out.Manifest.ID),
			logging.Int("warnings", len(out.Warnings)),
			logging.Any("skipped", out.Skipped),
			logging.String(logging.FieldErrorHint, "review the volumes against the paper manifest"),
			logging.String(logging.FieldImpact, "some box counts may need an extra volume or a correction"))
	}
	s.publisher.Publish(mirror.ManifestRow(&out.Manifest, s.now()))
	for i := range out.Volumes {
		s.publishVolume(&out.Manifest, &out.Volumes[i], "")
	}
	return out, nil
}
