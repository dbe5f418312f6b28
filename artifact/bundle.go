// Package artifact persists and loads the vectorizer/model pair produced by one
// training run.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"sentilyzer/ml"
)

const (
	VectorizerFile      = "vectorizer.json"
	ModelFile           = "model.json"
	ManifestFile        = "manifest.json"
	ConfusionMatrixFile = "confusion_matrix.png"

	ModelType = "logistic_regression"

	stagingPrefix = ".staging-"
)

var (
	ErrMissingArtifact     = errors.New("artifact missing")
	ErrMismatchedArtifacts = errors.New("vectorizer and model do not belong together")
)

// Metrics are the held-out scores recorded alongside the artifacts.
type Metrics struct {
	CVScore    float64              `json:"cv_weighted_f1"`
	Accuracy   float64              `json:"accuracy"`
	WeightedF1 float64              `json:"weighted_f1"`
	MacroF1    float64              `json:"macro_f1"`
	PerClass   []ml.ClassMetrics    `json:"per_class,omitempty"`
	Baseline   *ml.EvaluationReport `json:"baseline,omitempty"`
}

// Manifest ties a model to the exact vectorizer it was trained with and fixes the
// meaning of its probability columns.
type Manifest struct {
	ModelType             string             `json:"model_type"`
	Labels                []int              `json:"labels"`
	ClassNames            []string           `json:"class_names"`
	NumFeatures           int                `json:"num_features"`
	VocabularyFingerprint string             `json:"vocabulary_fingerprint"`
	ModelFingerprint      string             `json:"model_fingerprint"`
	Hyperparameters       ml.Hyperparameters `json:"hyperparameters"`
	Metrics               Metrics            `json:"metrics"`
	CreatedAt             time.Time          `json:"created_at"`
}

// Bundle is an immutable, cross-checked vectorizer/model pair.
type Bundle struct {
	Vectorizer *ml.TfidfVectorizer
	Model      *ml.LogisticRegression
	Manifest   Manifest
}

// NewBundle builds the manifest for a freshly trained pair.
func NewBundle(vectorizer *ml.TfidfVectorizer, model *ml.LogisticRegression, metrics Metrics) (*Bundle, error) {
	labels := model.Labels()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = ml.SentimentName(l)
	}
	b := &Bundle{
		Vectorizer: vectorizer,
		Model:      model,
		Manifest: Manifest{
			ModelType:             ModelType,
			Labels:                labels,
			ClassNames:            names,
			NumFeatures:           vectorizer.NumFeatures(),
			VocabularyFingerprint: vectorizer.Fingerprint(),
			ModelFingerprint:      model.Fingerprint(),
			Hyperparameters:       model.Params,
			Metrics:               metrics,
			CreatedAt:             time.Now().UTC(),
		},
	}
	if err := b.Check(); err != nil {
		return nil, err
	}
	return b, nil
}

// Check verifies the vectorizer, model and manifest describe the same feature space
// and label order.
func (b *Bundle) Check() error {
	if b.Vectorizer == nil || b.Model == nil {
		return fmt.Errorf("%w: incomplete bundle", ErrMissingArtifact)
	}
	m := b.Manifest
	if b.Vectorizer.NumFeatures() != b.Model.NumFeatures || m.NumFeatures != b.Model.NumFeatures {
		return fmt.Errorf("%w: vectorizer has %d features, model %d, manifest %d",
			ErrMismatchedArtifacts, b.Vectorizer.NumFeatures(), b.Model.NumFeatures, m.NumFeatures)
	}
	if fp := b.Vectorizer.Fingerprint(); fp != m.VocabularyFingerprint {
		return fmt.Errorf("%w: vocabulary fingerprint %.12s, manifest expects %.12s",
			ErrMismatchedArtifacts, fp, m.VocabularyFingerprint)
	}
	if fp := b.Model.Fingerprint(); fp != m.ModelFingerprint {
		return fmt.Errorf("%w: model fingerprint %.12s, manifest expects %.12s",
			ErrMismatchedArtifacts, fp, m.ModelFingerprint)
	}
	if !slices.Equal(b.Model.Labels(), m.Labels) {
		return fmt.Errorf("%w: model labels %v, manifest labels %v", ErrMismatchedArtifacts, b.Model.Labels(), m.Labels)
	}
	return nil
}

// CacheScope identifies the exact vectorizer/model pair; predictions cached under one
// scope are never served for another.
func (m Manifest) CacheScope() string {
	return prefix(m.VocabularyFingerprint, 16) + prefix(m.ModelFingerprint, 16)
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// File is an extra artifact, such as the confusion-matrix PNG, committed together
// with a bundle.
type File struct {
	Name string
	Data []byte
}

// Save writes the pair and any extra files into a staging directory under dir and
// then moves them into place, manifest last. If any step fails, the files already
// in dir keep their previous content.
func Save(dir string, b *Bundle, extras ...File) error {
	if err := b.Check(); err != nil {
		return err
	}
	names := []string{VectorizerFile, ModelFile}
	for _, f := range extras {
		switch f.Name {
		case "", VectorizerFile, ModelFile, ManifestFile:
			return fmt.Errorf("invalid artifact file name %q", f.Name)
		}
		if filepath.Base(f.Name) != f.Name || strings.HasPrefix(f.Name, stagingPrefix) {
			return fmt.Errorf("invalid artifact file name %q", f.Name)
		}
		names = append(names, f.Name)
	}
	names = append(names, ManifestFile)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	staging, err := os.MkdirTemp(dir, stagingPrefix)
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := b.Vectorizer.Save(filepath.Join(staging, VectorizerFile)); err != nil {
		return fmt.Errorf("save vectorizer: %w", err)
	}
	if err := b.Model.Save(filepath.Join(staging, ModelFile)); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	for _, f := range extras {
		if err := os.WriteFile(filepath.Join(staging, f.Name), f.Data, 0o644); err != nil {
			return fmt.Errorf("save %s: %w", f.Name, err)
		}
	}
	if err := ml.SaveJSON(filepath.Join(staging, ManifestFile), b.Manifest); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return commit(staging, dir, names)
}

type replaced struct {
	name   string
	backup string // empty when the target did not exist before
}

// commit moves the staged files over their targets in order. When a move fails, the
// targets already replaced get their previous content back.
func commit(staging, dir string, names []string) error {
	var done []replaced
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			target := filepath.Join(dir, done[i].name)
			if done[i].backup == "" {
				os.Remove(target)
				continue
			}
			os.Rename(done[i].backup, target)
		}
	}
	for _, name := range names {
		target := filepath.Join(dir, name)
		backup, err := backupFile(target, filepath.Join(staging, name+".prev"))
		if err != nil {
			rollback()
			return fmt.Errorf("back up %s: %w", name, err)
		}
		if err := os.Rename(filepath.Join(staging, name), target); err != nil {
			rollback()
			return fmt.Errorf("commit %s: %w", name, err)
		}
		done = append(done, replaced{name: name, backup: backup})
	}
	return nil
}

func backupFile(src, dst string) (string, error) {
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return "", err
	}
	return dst, nil
}

// Load reads and cross-checks the artifacts in dir.
func Load(dir string) (*Bundle, error) {
	for _, name := range []string{ManifestFile, VectorizerFile, ModelFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, filepath.Join(dir, name))
			}
			return nil, err
		}
	}

	payload, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	vectorizer, err := ml.LoadVectorizer(filepath.Join(dir, VectorizerFile))
	if err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}
	classifier, err := ml.LoadModel(manifest.ModelType, filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	model, ok := classifier.(*ml.LogisticRegression)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected model type %T", ErrMismatchedArtifacts, classifier)
	}

	b := &Bundle{Vectorizer: vectorizer, Model: model, Manifest: manifest}
	if err := b.Check(); err != nil {
		return nil, err
	}
	return b, nil
}

// LabelName resolves a label through the manifest's class names.
func (b *Bundle) LabelName(label int) string {
	for i, l := range b.Manifest.Labels {
		if l == label && i < len(b.Manifest.ClassNames) {
			return b.Manifest.ClassNames[i]
		}
	}
	return ml.SentimentName(label)
}
