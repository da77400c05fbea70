package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_StorePath(t *testing.T) {
	dataDir := filepath.Join("/repo", DataDirName)
	tests := []struct {
		name  string
		store StoreConfig
		want  string
	}{
		{name: "json default", store: StoreConfig{Backend: StoreJSON}, want: filepath.Join(dataDir, "store.json")},
		{name: "empty backend", store: StoreConfig{}, want: filepath.Join(dataDir, "store.json")},
		{name: "sqlite default", store: StoreConfig{Backend: StoreSQLite}, want: filepath.Join(dataDir, "projex.db")},
		{name: "relative path", store: StoreConfig{Backend: StoreSQLite, Path: "data/x.db"}, want: filepath.Join(dataDir, "data/x.db")},
		{name: "absolute path", store: StoreConfig{Path: "/var/lib/projex.json"}, want: "/var/lib/projex.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Store: tt.store}
			assert.Equal(t, tt.want, cfg.StorePath(dataDir))
		})
	}
}

func TestConfig_ResolveEngine(t *testing.T) {
	// Setup
	urgency := 2.0
	minTokens := 2
	depth := 1
	cfg := NewDefaultConfig()
	cfg.Engine = &EngineOverrides{
		Weights:     &WeightOverrides{Urgency: &urgency},
		Duplication: &DuplicationOverrides{MinTokens: &minTokens},
	}
	project := &ProjectSnapshot{
		ID:       "p1",
		Settings: &EngineOverrides{Dependency: &DependencyOverrides{MaxDepth: &depth}},
	}
	defaults := NewDefaultEngineConfig()

	// Execute
	base := cfg.ResolveEngine(nil)
	scoped := cfg.ResolveEngine(project)

	// Assert
	assert.Equal(t, 2.0, base.Weights.Urgency)
	assert.Equal(t, defaults.Weights.Overdue, base.Weights.Overdue)
	assert.Equal(t, 2, base.Duplication.MinTokens)
	assert.Equal(t, defaults.Dependency.MaxDepth, base.Dependency.MaxDepth)
	assert.Equal(t, 1, scoped.Dependency.MaxDepth)
	assert.Equal(t, 2.0, scoped.Weights.Urgency)
}

func TestConfig_ResolveEngine_NilConfig(t *testing.T) {
	var cfg *Config
	assert.Equal(t, NewDefaultEngineConfig(), cfg.ResolveEngine(nil))
}

func TestEngineOverrides_Merge(t *testing.T) {
	// Setup
	a, b, c := 1.0, 2.0, 3.0
	median := EstimationMedian
	first := &EngineOverrides{
		Weights:    &WeightOverrides{Urgency: &a, Overdue: &a},
		Estimation: &EstimationOverrides{Method: &median},
	}
	second := &EngineOverrides{
		Weights: &WeightOverrides{Overdue: &b, Completion: &c},
	}

	// Execute
	merged := first.Merge(second)

	// Assert
	assert.Equal(t, 1.0, *merged.Weights.Urgency)
	assert.Equal(t, 2.0, *merged.Weights.Overdue)
	assert.Equal(t, 3.0, *merged.Weights.Completion)
	assert.Equal(t, EstimationMedian, *merged.Estimation.Method)
	assert.Equal(t, 1.0, *first.Weights.Overdue, "merge must not modify the receiver")
	assert.Same(t, second, (*EngineOverrides)(nil).Merge(second))
}

func TestEngineOverrides_ApplyIgnoresInvalidMethod(t *testing.T) {
	bogus := EstimationMethod("mode")
	o := &EngineOverrides{Estimation: &EstimationOverrides{Method: &bogus}}

	cfg := o.Apply(NewDefaultEngineConfig())

	assert.Equal(t, EstimationMedian, cfg.Estimation.Method)
}

func TestTaskLogPath_SanitizesID(t *testing.T) {
	got := TaskLogPath("/data", "../a/b")
	assert.Equal(t, filepath.Join("/data", "logs", "task-__a_b.log"), got)
}
