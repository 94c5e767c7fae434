package factory

import (
	"fmt"

	"go-model-inference/internal/config"
	"go-model-inference/internal/logger"
	"go-model-inference/internal/model"
	"go-model-inference/internal/storage"
)

// AppKind identifies one of the inference apps
type AppKind string

const (
	// Alzheimers classifies brain MRI scans into dementia stages
	Alzheimers AppKind = "alzheimers"
	// BrainTumor classifies brain MRI scans into tumor types
	BrainTumor AppKind = "brain-tumor"
	// Stroke scores stroke risk from tabular patient data
	Stroke AppKind = "stroke"
)

// Profile is everything that differs between apps
type Profile struct {
	Kind             AppKind
	Title            string
	DefaultModelPath string
	Defaults         model.Metadata
	// LegacyRoute also mounts POST /predict for uploads
	LegacyRoute bool
	// TextReport enables ?format=text on /api/predict
	TextReport bool
}

// Tabular reports whether the app takes form fields instead of an image
func (p Profile) Tabular() bool {
	return p.Defaults.IsTabular()
}

// Kinds lists every supported app
func Kinds() []AppKind {
	return []AppKind{Alzheimers, BrainTumor, Stroke}
}

// ProfileFor returns the built-in profile for an app
func ProfileFor(kind AppKind) (Profile, error) {
	switch kind {
	case Alzheimers:
		return Profile{
			Kind:             Alzheimers,
			Title:            "Alzheimer's Detection",
			DefaultModelPath: "models/alzheimers_efficientnet_b0.onnx",
			Defaults: model.Metadata{
				InputName:     "input",
				OutputName:    "output",
				InputShape:    []int64{1, 3, 224, 224},
				OutputShape:   []int64{1, 4},
				Output:        model.OutputLogits,
				Classes:       []string{"Non Demented", "Very Mild Demented", "Mild Demented", "Moderate Demented"},
				ImageSize:     224,
				Layout:        model.LayoutNCHW,
				Normalization: model.NormalizationImageNet,
			},
			LegacyRoute: true,
			TextReport:  true,
		}, nil
	case BrainTumor:
		return Profile{
			Kind:             BrainTumor,
			Title:            "Brain Tumor Classification",
			DefaultModelPath: "models/brain_tumor.onnx",
			Defaults: model.Metadata{
				InputName:     "input_1",
				OutputName:    "dense_1",
				InputShape:    []int64{1, 224, 224, 3},
				OutputShape:   []int64{1, 4},
				Output:        model.OutputProbabilities,
				Classes:       []string{"Glioma", "Meningioma", "No Tumor", "Pituitary"},
				ImageSize:     224,
				Layout:        model.LayoutNHWC,
				Normalization: model.NormalizationUnit,
			},
			LegacyRoute: true,
			TextReport:  true,
		}, nil
	case Stroke:
		numeric := []string{"age", "hypertension", "heart_disease", "avg_glucose_level", "bmi"}
		encoded := []string{
			"gender_Female", "gender_Male", "gender_Other",
			"ever_married_No", "ever_married_Yes",
			"work_type_Govt_job", "work_type_Never_worked", "work_type_Private", "work_type_Self-employed", "work_type_children",
			"Residence_type_Rural", "Residence_type_Urban",
			"smoking_status_Unknown", "smoking_status_formerly smoked", "smoking_status_never smoked", "smoking_status_smokes",
		}
		return Profile{
			Kind:             Stroke,
			Title:            "Stroke Prediction",
			DefaultModelPath: "models/stroke.onnx",
			Defaults: model.Metadata{
				InputName:   "float_input",
				OutputName:  "probabilities",
				InputShape:  []int64{1, int64(len(numeric) + len(encoded))},
				OutputShape: []int64{1, 2},
				Output:      model.OutputProbabilities,
				NumericCols: numeric,
				EncodedCols: encoded,
			},
		}, nil
	default:
		return Profile{}, fmt.Errorf("unsupported app kind: %s", kind)
	}
}

// StorageFactory builds the fetcher used for fileUrl inputs
type StorageFactory interface {
	CreateFetcher(cfg *config.Config, opts ...storage.HTTPOption) (storage.ImageFetcher, error)
}

type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateFetcher returns the HTTP fetcher, routed through Azure for URLs on
// the configured storage account when credentials are present
func (f *storageFactory) CreateFetcher(cfg *config.Config, opts ...storage.HTTPOption) (storage.ImageFetcher, error) {
	web := storage.NewHTTPImageFetcher(append([]storage.HTTPOption{
		storage.WithTimeout(cfg.ImageFetchTimeout),
		storage.WithMaxBytes(cfg.MaxRemoteImageSize),
	}, opts...)...)
	if !cfg.AzureEnabled() {
		return web, nil
	}

	blobs, err := storage.NewAzureStorage(cfg.AzureStorageAccount, cfg.AzureStorageKey, cfg.MaxRemoteImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure storage: %w", err)
	}
	logger.WithField("blob_host", blobs.Host()).Info("Azure blob fetching enabled")
	return storage.NewRoutingFetcher(web, blobs, blobs.Host()), nil
}
