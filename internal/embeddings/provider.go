package embeddings

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/config"
	"github.com/fyrsmithlabs/perceptd/internal/memory"
)

// Provider is an Embedder with a known output size and resources to release.
type Provider interface {
	memory.Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is "fastembed" or "tei".
	Provider string
	// Model is the embedding model name.
	Model string
	// BaseURL is the TEI URL (tei only).
	BaseURL string
	// CacheDir is the model cache directory (fastembed only).
	CacheDir string
}

// FromAppConfig converts the embeddings section of the application config.
func FromAppConfig(cfg config.EmbeddingsConfig) (ProviderConfig, error) {
	cacheDir := cfg.CacheDir
	if cacheDir != "" {
		expanded, err := config.ExpandPath(cacheDir)
		if err != nil {
			return ProviderConfig{}, fmt.Errorf("expanding cache dir: %w", err)
		}
		cacheDir = expanded
	}
	return ProviderConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		CacheDir: cacheDir,
	}, nil
}

// NewProvider creates an embedding provider from cfg.
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "fastembed", "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("fastembed provider ready", zap.String("model", cfg.Model), zap.Int("dimension", p.Dimension()))
		return p, nil
	case "tei":
		svc, err := NewService(Config{BaseURL: cfg.BaseURL, Model: cfg.Model}, logger)
		if err != nil {
			return nil, err
		}
		return &teiProvider{Service: svc, dimension: DimensionForModel(cfg.Model)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// teiProvider adds Provider's bookkeeping to Service.
type teiProvider struct {
	*Service
	dimension int
}

func (t *teiProvider) Dimension() int {
	return t.dimension
}

// Close is a no-op; TEI is stateless HTTP.
func (t *teiProvider) Close() error {
	return nil
}
