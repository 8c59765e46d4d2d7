// Package modelio loads a frozen model from a YAML manifest and the
// word2vec-style text files it references.
package modelio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"paravec/internal/labels"
	"paravec/internal/learning"
	"paravec/internal/paravec"
	"paravec/internal/tokenizer"
)

var ErrManifest = errors.New("invalid model manifest")

// Manifest describes a model on disk. File paths are relative to the
// manifest's directory.
type Manifest struct {
	Dimensions      int              `yaml:"dimensions" validate:"gt=0"`
	Scoring         learning.Scoring `yaml:"scoring" validate:"omitempty,oneof=negative hierarchical"`
	Window          int              `yaml:"window" validate:"gte=0"`
	Negative        int              `yaml:"negative" validate:"gte=0"`
	Seed            uint64           `yaml:"seed"`
	LearningRate    float64          `yaml:"learning_rate" validate:"gte=0"`
	MinLearningRate *float64         `yaml:"min_learning_rate,omitempty" validate:"omitempty,gte=0"`
	Epochs          int              `yaml:"epochs" validate:"gte=0"`
	Iterations      int              `yaml:"iterations" validate:"gte=0"`
	RefineMargin    *int             `yaml:"refine_margin,omitempty"`
	Placeholders    []string         `yaml:"placeholders,omitempty"`
	StopWords       []string         `yaml:"stop_words,omitempty"`
	KeepCase        bool             `yaml:"keep_case,omitempty"`
	MinTokenLength  int              `yaml:"min_token_length,omitempty" validate:"gte=0"`
	Labels          []string         `yaml:"labels,omitempty"`

	Vocabulary string `yaml:"vocabulary,omitempty"`
	Vectors    string `yaml:"vectors" validate:"required"`
	Output     string `yaml:"output,omitempty"`

	dir string
}

var validate = validator.New()

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w: %w", path, ErrManifest, err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w: %w", path, ErrManifest, err)
	}
	if m.Scoring == "" {
		m.Scoring = learning.ScoringNegative
	}
	// Rates are checked after defaulting so a low learning_rate cannot sit
	// under the default minimum.
	cfg := m.ModelConfig()
	rates := learning.Params{LearningRate: cfg.LearningRate, MinLearningRate: cfg.MinLearningRate, Iterations: 1}
	if err := rates.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w: %w", path, ErrManifest, err)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

// Resolve returns name relative to the manifest directory.
func (m *Manifest) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.dir, name)
}

// ModelConfig maps the manifest onto model defaults. Unset values keep
// paravec.DefaultConfig.
func (m *Manifest) ModelConfig() paravec.Config {
	cfg := paravec.DefaultConfig()
	cfg.Scoring = m.Scoring
	cfg.Window = m.Window
	cfg.Negative = m.Negative
	cfg.Seed = m.Seed
	if m.LearningRate > 0 {
		cfg.LearningRate = m.LearningRate
	}
	if m.MinLearningRate != nil {
		cfg.MinLearningRate = *m.MinLearningRate
	}
	if m.Epochs > 0 {
		cfg.Epochs = m.Epochs
	}
	if m.Iterations > 0 {
		cfg.Iterations = m.Iterations
	}
	if m.RefineMargin != nil {
		cfg.RefineMargin = *m.RefineMargin
		if cfg.RefineMargin == 0 {
			cfg.RefineMargin = -1
		}
	} else {
		cfg.RefineMargin = labels.DefaultRefineMargin
	}
	if m.Placeholders != nil {
		cfg.Placeholders = m.Placeholders
	}
	return cfg
}

// TokenizerOptions configures text tokenization to match the vocabulary.
func (m *Manifest) TokenizerOptions() tokenizer.Options {
	return tokenizer.Options{
		KeepCase:  m.KeepCase,
		StopWords: m.StopWords,
		MinLength: m.MinTokenLength,
	}
}
