package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPipeline() PipelineConfig {
	return PipelineConfig{
		MerkleTreeChunkSize:       1024,
		RollingHashWindowSize:     32,
		TreeEditDistanceThreshold: 0.3,
		MinhashNumPerm:            128,
		LSHNumBands:               16,
		LSHRowsPerBand:            8,
		SimilarityThreshold:       0.7,
		MaxFileSizeMB:             10,
		MaxAnalysisTimeSeconds:    300,
		MaxWorkers:                4,
	}
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PipelineConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*PipelineConfig) {}},
		{name: "zero chunk size", mutate: func(p *PipelineConfig) { p.MerkleTreeChunkSize = 0 }, wantErr: true},
		{name: "zero window", mutate: func(p *PipelineConfig) { p.RollingHashWindowSize = 0 }, wantErr: true},
		{name: "zero num perm", mutate: func(p *PipelineConfig) { p.MinhashNumPerm = 0 }, wantErr: true},
		{name: "zero bands", mutate: func(p *PipelineConfig) { p.LSHNumBands = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(p *PipelineConfig) { p.SimilarityThreshold = 1.5 }, wantErr: true},
		{name: "distance threshold out of range", mutate: func(p *PipelineConfig) { p.TreeEditDistanceThreshold = 0.7 }, wantErr: true},
		{name: "zero workers", mutate: func(p *PipelineConfig) { p.MaxWorkers = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPipeline()
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPipelineConfigDerived(t *testing.T) {
	p := validPipeline()
	assert.Equal(t, int64(10*1024*1024), p.MaxFileSizeBytes())
	assert.Equal(t, 300*time.Second, p.Deadline())
}

func TestDBConfigGetDSN(t *testing.T) {
	db := DBConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "docsentry",
		Username: "postgres",
		Password: "secret",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=docsentry sslmode=disable",
		db.GetDSN())
}

func TestValidateAI(t *testing.T) {
	cfg := &Config{}
	cfg.AI.Provider = "local"
	assert.NoError(t, cfg.ValidateForCLI())

	cfg.AI.Provider = "openai"
	assert.Error(t, cfg.ValidateForCLI(), "hosted providers require an api key")

	cfg.AI.APIKey = "sk-test"
	assert.NoError(t, cfg.ValidateForCLI())

	cfg.AI.MinConfidence = 1.5
	assert.Error(t, cfg.ValidateForCLI())

	cfg.AI.Provider = "mystery"
	assert.Error(t, cfg.ValidateForCLI())
}

func TestLoadRepoConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadRepoConfig(dir)
		assert.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
		assert.Equal(t, "docs", cfg.DocsDir)
		assert.Contains(t, cfg.DocsExtras, "README.md")
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		content := "docs_dir: documentation\nmin_confidence: 0.5\nexclude_paths:\n  - generated/\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".doc-sentry.yml"), []byte(content), 0o644))

		cfg, err := LoadRepoConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "documentation", cfg.DocsDir)
		assert.InDelta(t, 0.5, cfg.MinConfidence, 1e-9)
		assert.Equal(t, []string{"generated/"}, cfg.ExcludePaths)
	})

	t.Run("invalid confidence rejected", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".doc-sentry.yml"), []byte("min_confidence: 2.0\n"), 0o644))
		_, err := LoadRepoConfig(dir)
		assert.ErrorIs(t, err, ErrConfigParsing)
	})
}
