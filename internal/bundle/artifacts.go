package bundle

import (
	"errors"
	"io/fs"
	"log/slog"
)

// Artifacts is a loaded bundle together with its optional metadata.
type Artifacts struct {
	Bundle   *Bundle
	Metadata *Metadata
}

// LoadArtifacts loads the bundle at modelPath and, when present, the
// metadata at metaPath. A missing metadata file is logged and tolerated; a
// missing or invalid bundle is an error.
//
// Bundles written before the large_house threshold was stored in the
// feature params take it from training_median_square_footage in the
// metadata.
func LoadArtifacts(modelPath, metaPath string, logger *slog.Logger) (*Artifacts, error) {
	b, err := Load(modelPath)
	if err != nil {
		return nil, err
	}

	var meta *Metadata
	if metaPath != "" {
		meta, err = LoadMetadata(metaPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("metadata file not found", slog.String("path", metaPath))
			meta = nil
		case err != nil:
			logger.Warn("metadata unreadable", slog.String("path", metaPath), slog.String("error", err.Error()))
			meta = nil
		}
	}

	if b.FeatureParams.MedianSquareFootage == nil && meta != nil && meta.TrainingMedianSquareFootage > 0 {
		logger.Info("large_house threshold taken from metadata",
			slog.Float64("median_square_footage", meta.TrainingMedianSquareFootage))
		checksum := b.checksum
		b = b.withMedian(meta.TrainingMedianSquareFootage)
		b.checksum = checksum
	}

	logger.Info("model loaded",
		slog.String("path", modelPath),
		slog.String("target", b.Target),
		slog.Int("features", len(b.FeaturesUsed)),
		slog.String("checksum", b.checksum))
	return &Artifacts{Bundle: b, Metadata: meta}, nil
}
