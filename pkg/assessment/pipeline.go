package assessment

import (
	"time"

	"github.com/vitalpath-ai/platform/pkg/common/config"
	"github.com/vitalpath-ai/platform/pkg/fusion"
	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/imaging"
	"github.com/vitalpath-ai/platform/pkg/pathway"
	"github.com/vitalpath-ai/platform/pkg/serving/predictor"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// Pipeline bundles the stage processors the orchestrator drives. All of
// them are stateless after construction and safe for concurrent jobs.
type Pipeline struct {
	Profiles   signal.Profiles
	Harmonizer *harmonize.Harmonizer
	Normalizer *imaging.Normalizer
	Pathways   *pathway.Registry
	Fusion     *fusion.Engine
	Scorer     *predictor.Predictor

	// Quantifier runs the stochastic passes; Fallback keeps the
	// per-model calibration constants for jobs that opt out.
	Quantifier *predictor.Quantifier
	Fallback   *predictor.Quantifier
}

// NewPipeline assembles the processors from configuration, loading the
// modality profile and model catalogs from disk when paths are set.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	profiles, err := signal.LoadProfiles(cfg.ModalityProfilePath)
	if err != nil {
		return nil, err
	}
	registry, err := predictor.LoadRegistry(cfg.ModelRegistryPath)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Profiles:   profiles,
		Harmonizer: harmonize.NewHarmonizer(profiles, cfg.CanonicalRate),
		Normalizer: imaging.NewNormalizer(imaging.DefaultTargetSize),
		Pathways:   pathway.NewRegistry(),
		Fusion:     fusion.NewEngine(fusion.DefaultQuery(pathway.EmbeddingSize)),
		Scorer:     predictor.New(registry),
		Quantifier: predictor.NewQuantifier(registry, cfg.UncertaintyPasses, cfg.UncertaintyDropout),
		Fallback:   predictor.NewQuantifier(registry, 0, 0),
	}, nil
}

// Tuning holds the orchestrator's scheduling knobs.
type Tuning struct {
	MaxWorkers    int
	QueueCapacity int
	StageRetries  int
	BackoffBase   time.Duration

	ValidateTimeout   time.Duration
	PreprocessTimeout time.Duration
	ExtractTimeout    time.Duration
	FuseTimeout       time.Duration
	PredictTimeout    time.Duration

	// UncertaintyEnabled is the default for submissions that do not set
	// the flag themselves.
	UncertaintyEnabled bool
}

func TuningFromConfig(cfg *config.Config) Tuning {
	return Tuning{
		MaxWorkers:         cfg.MaxConcurrentJobs,
		QueueCapacity:      cfg.QueueCapacity,
		StageRetries:       cfg.StageRetries,
		BackoffBase:        cfg.RetryBackoffBase,
		ValidateTimeout:    cfg.ValidateTimeout,
		PreprocessTimeout:  cfg.PreprocessTimeout,
		ExtractTimeout:     cfg.ExtractTimeout,
		FuseTimeout:        cfg.FuseTimeout,
		PredictTimeout:     cfg.PredictTimeout,
		UncertaintyEnabled: cfg.UncertaintyEnabled,
	}
}

func (t *Tuning) withDefaults() {
	if t.MaxWorkers <= 0 {
		t.MaxWorkers = 1
	}
	if t.QueueCapacity <= 0 {
		t.QueueCapacity = 64
	}
	if t.StageRetries < 0 {
		t.StageRetries = 0
	}
	if t.BackoffBase <= 0 {
		t.BackoffBase = 100 * time.Millisecond
	}
	for _, d := range []*time.Duration{
		&t.ValidateTimeout,
		&t.PreprocessTimeout,
		&t.ExtractTimeout,
		&t.FuseTimeout,
		&t.PredictTimeout,
	} {
		if *d <= 0 {
			*d = 30 * time.Second
		}
	}
}

func (t *Tuning) timeoutFor(state State) time.Duration {
	switch state {
	case StateValidating:
		return t.ValidateTimeout
	case StatePreprocessing:
		return t.PreprocessTimeout
	case StateExtracting:
		return t.ExtractTimeout
	case StateFusing:
		return t.FuseTimeout
	case StatePredicting:
		return t.PredictTimeout
	default:
		return 30 * time.Second
	}
}
