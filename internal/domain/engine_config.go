package domain

// EstimationMethod selects the central tendency used over a historical sample.
type EstimationMethod string

// Estimation methods.
const (
	EstimationMedian EstimationMethod = "median"
	EstimationMean   EstimationMethod = "mean"
)

// IsValid returns true if the method is a known value.
func (m EstimationMethod) IsValid() bool {
	return m == EstimationMedian || m == EstimationMean
}

// EngineConfig is the resolved, read-only configuration consumed by every engine.
type EngineConfig struct {
	Weights     Weights           `json:"weights" toml:"weights"`
	Priority    PriorityConfig    `json:"priority" toml:"priority"`
	Workload    WorkloadConfig    `json:"workload" toml:"workload"`
	Estimation  EstimationConfig  `json:"estimation" toml:"estimation"`
	Duplication DuplicationConfig `json:"duplication" toml:"duplication"`
	Dependency  DependencyConfig  `json:"dependency" toml:"dependency"`
}

// Weights scale each priority factor's raw contribution.
type Weights struct {
	Urgency        float64 `json:"urgency" toml:"urgency"`
	Overdue        float64 `json:"overdue" toml:"overdue"`
	ManualPriority float64 `json:"manualPriority" toml:"manual_priority"`
	Dependencies   float64 `json:"dependencies" toml:"dependencies"`
	Completion     float64 `json:"completion" toml:"completion"`
	Workload       float64 `json:"workload" toml:"workload"`
}

// PriorityConfig holds the priority engine's curve parameters.
type PriorityConfig struct {
	UrgencyDecay   float64 `json:"urgencyDecay" toml:"urgency_decay"`   // per day
	OverduePenalty float64 `json:"overduePenalty" toml:"overdue_penalty"` // per whole day overdue
	WorkloadScale  float64 `json:"workloadScale" toml:"workload_scale"`   // points per unit of workload ratio away from 1
}

// WorkloadConfig holds utilization thresholds as ratios of weekly capacity.
type WorkloadConfig struct {
	OverloadThreshold      float64 `json:"overloadThreshold" toml:"overload_threshold"`
	WarningThreshold       float64 `json:"warningThreshold" toml:"warning_threshold"`
	UnderutilizedThreshold float64 `json:"underutilizedThreshold" toml:"underutilized_threshold"`
	DefaultWeeklyCapacity  int     `json:"defaultWeeklyCapacity" toml:"default_weekly_capacity"` // minutes
}

// EstimationConfig holds the estimation engine's sampling rules.
type EstimationConfig struct {
	Method              EstimationMethod `json:"method" toml:"method"`
	FallbackMultiplier  float64          `json:"fallbackMultiplier" toml:"fallback_multiplier"`
	SimilarityThreshold float64          `json:"similarityThreshold" toml:"similarity_threshold"`
	MinSamples          int              `json:"minSamples" toml:"min_samples"`
	DefaultMinutes      int              `json:"defaultMinutes" toml:"default_minutes"`
	MaxHistory          int              `json:"maxHistory" toml:"max_history"` // 0 = unbounded
}

// DuplicationConfig holds the duplicate detector's thresholds.
type DuplicationConfig struct {
	SimilarityThreshold float64 `json:"similarityThreshold" toml:"similarity_threshold"`
	MinTokens           int     `json:"minTokens" toml:"min_tokens"`
}

// DependencyConfig bounds graph traversal.
type DependencyConfig struct {
	MaxDepth int `json:"maxDepth" toml:"max_depth"`
}

// NewDefaultEngineConfig returns the configuration shipped with the engine.
func NewDefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights: Weights{
			Urgency:        1.0,
			Overdue:        1.0,
			ManualPriority: 0.5,
			Dependencies:   1.0,
			Completion:     0.2,
			Workload:       1.0,
		},
		Priority: PriorityConfig{
			UrgencyDecay:   0.2,
			OverduePenalty: 2,
			WorkloadScale:  5,
		},
		Workload: WorkloadConfig{
			OverloadThreshold:      1.0,
			WarningThreshold:       0.9,
			UnderutilizedThreshold: 0.3,
			DefaultWeeklyCapacity:  2400,
		},
		Estimation: EstimationConfig{
			Method:              EstimationMedian,
			FallbackMultiplier:  1.5,
			SimilarityThreshold: 0.5,
			MinSamples:          3,
			DefaultMinutes:      60,
			MaxHistory:          500,
		},
		Duplication: DuplicationConfig{
			SimilarityThreshold: 0.7,
			MinTokens:           3,
		},
		Dependency: DependencyConfig{
			MaxDepth: 5,
		},
	}
}

// EngineOverrides is a sparse EngineConfig: nil fields keep the base value.
// It is the shape of the [engine] config sections and of project settings.
type EngineOverrides struct {
	Weights     *WeightOverrides      `json:"weights,omitempty" yaml:"weights,omitempty" toml:"weights,omitempty"`
	Priority    *PriorityOverrides    `json:"priority,omitempty" yaml:"priority,omitempty" toml:"priority,omitempty"`
	Workload    *WorkloadOverrides    `json:"workload,omitempty" yaml:"workload,omitempty" toml:"workload,omitempty"`
	Estimation  *EstimationOverrides  `json:"estimation,omitempty" yaml:"estimation,omitempty" toml:"estimation,omitempty"`
	Duplication *DuplicationOverrides `json:"duplication,omitempty" yaml:"duplication,omitempty" toml:"duplication,omitempty"`
	Dependency  *DependencyOverrides  `json:"dependency,omitempty" yaml:"dependency,omitempty" toml:"dependency,omitempty"`
}

// WeightOverrides overrides individual weights.
type WeightOverrides struct {
	Urgency        *float64 `json:"urgency,omitempty" yaml:"urgency,omitempty" toml:"urgency,omitempty"`
	Overdue        *float64 `json:"overdue,omitempty" yaml:"overdue,omitempty" toml:"overdue,omitempty"`
	ManualPriority *float64 `json:"manualPriority,omitempty" yaml:"manualPriority,omitempty" toml:"manual_priority,omitempty"`
	Dependencies   *float64 `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
	Completion     *float64 `json:"completion,omitempty" yaml:"completion,omitempty" toml:"completion,omitempty"`
	Workload       *float64 `json:"workload,omitempty" yaml:"workload,omitempty" toml:"workload,omitempty"`
}

// PriorityOverrides overrides priority curve parameters.
type PriorityOverrides struct {
	UrgencyDecay   *float64 `json:"urgencyDecay,omitempty" yaml:"urgencyDecay,omitempty" toml:"urgency_decay,omitempty"`
	OverduePenalty *float64 `json:"overduePenalty,omitempty" yaml:"overduePenalty,omitempty" toml:"overdue_penalty,omitempty"`
	WorkloadScale  *float64 `json:"workloadScale,omitempty" yaml:"workloadScale,omitempty" toml:"workload_scale,omitempty"`
}

// WorkloadOverrides overrides workload thresholds.
type WorkloadOverrides struct {
	OverloadThreshold      *float64 `json:"overloadThreshold,omitempty" yaml:"overloadThreshold,omitempty" toml:"overload_threshold,omitempty"`
	WarningThreshold       *float64 `json:"warningThreshold,omitempty" yaml:"warningThreshold,omitempty" toml:"warning_threshold,omitempty"`
	UnderutilizedThreshold *float64 `json:"underutilizedThreshold,omitempty" yaml:"underutilizedThreshold,omitempty" toml:"underutilized_threshold,omitempty"`
	DefaultWeeklyCapacity  *int     `json:"defaultWeeklyCapacity,omitempty" yaml:"defaultWeeklyCapacity,omitempty" toml:"default_weekly_capacity,omitempty"`
}

// EstimationOverrides overrides estimation rules.
type EstimationOverrides struct {
	Method              *EstimationMethod `json:"method,omitempty" yaml:"method,omitempty" toml:"method,omitempty"`
	FallbackMultiplier  *float64          `json:"fallbackMultiplier,omitempty" yaml:"fallbackMultiplier,omitempty" toml:"fallback_multiplier,omitempty"`
	SimilarityThreshold *float64          `json:"similarityThreshold,omitempty" yaml:"similarityThreshold,omitempty" toml:"similarity_threshold,omitempty"`
	MinSamples          *int              `json:"minSamples,omitempty" yaml:"minSamples,omitempty" toml:"min_samples,omitempty"`
	DefaultMinutes      *int              `json:"defaultMinutes,omitempty" yaml:"defaultMinutes,omitempty" toml:"default_minutes,omitempty"`
	MaxHistory          *int              `json:"maxHistory,omitempty" yaml:"maxHistory,omitempty" toml:"max_history,omitempty"`
}

// DuplicationOverrides overrides duplicate detection thresholds.
type DuplicationOverrides struct {
	SimilarityThreshold *float64 `json:"similarityThreshold,omitempty" yaml:"similarityThreshold,omitempty" toml:"similarity_threshold,omitempty"`
	MinTokens           *int     `json:"minTokens,omitempty" yaml:"minTokens,omitempty" toml:"min_tokens,omitempty"`
}

// DependencyOverrides overrides traversal bounds.
type DependencyOverrides struct {
	MaxDepth *int `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty" toml:"max_depth,omitempty"`
}

// Apply overlays o onto base section by section and key by key.
// Keys o leaves unset keep their base value; a nil o returns base unchanged.
func (o *EngineOverrides) Apply(base EngineConfig) EngineConfig {
	if o == nil {
		return base
	}
	cfg := base
	if w := o.Weights; w != nil {
		set(&cfg.Weights.Urgency, w.Urgency)
		set(&cfg.Weights.Overdue, w.Overdue)
		set(&cfg.Weights.ManualPriority, w.ManualPriority)
		set(&cfg.Weights.Dependencies, w.Dependencies)
		set(&cfg.Weights.Completion, w.Completion)
		set(&cfg.Weights.Workload, w.Workload)
	}
	if p := o.Priority; p != nil {
		set(&cfg.Priority.UrgencyDecay, p.UrgencyDecay)
		set(&cfg.Priority.OverduePenalty, p.OverduePenalty)
		set(&cfg.Priority.WorkloadScale, p.WorkloadScale)
	}
	if w := o.Workload; w != nil {
		set(&cfg.Workload.OverloadThreshold, w.OverloadThreshold)
		set(&cfg.Workload.WarningThreshold, w.WarningThreshold)
		set(&cfg.Workload.UnderutilizedThreshold, w.UnderutilizedThreshold)
		set(&cfg.Workload.DefaultWeeklyCapacity, w.DefaultWeeklyCapacity)
	}
	if e := o.Estimation; e != nil {
		if e.Method != nil && e.Method.IsValid() {
			cfg.Estimation.Method = *e.Method
		}
		set(&cfg.Estimation.FallbackMultiplier, e.FallbackMultiplier)
		set(&cfg.Estimation.SimilarityThreshold, e.SimilarityThreshold)
		set(&cfg.Estimation.MinSamples, e.MinSamples)
		set(&cfg.Estimation.DefaultMinutes, e.DefaultMinutes)
		set(&cfg.Estimation.MaxHistory, e.MaxHistory)
	}
	if d := o.Duplication; d != nil {
		set(&cfg.Duplication.SimilarityThreshold, d.SimilarityThreshold)
		set(&cfg.Duplication.MinTokens, d.MinTokens)
	}
	if d := o.Dependency; d != nil {
		set(&cfg.Dependency.MaxDepth, d.MaxDepth)
	}
	return cfg
}

// Merge returns the overrides of o with every key set in next taking precedence.
func (o *EngineOverrides) Merge(next *EngineOverrides) *EngineOverrides {
	switch {
	case o == nil:
		return next
	case next == nil:
		return o
	}
	out := *o
	if b := next.Weights; b != nil {
		w := WeightOverrides{}
		if o.Weights != nil {
			w = *o.Weights
		}
		pick(&w.Urgency, b.Urgency)
		pick(&w.Overdue, b.Overdue)
		pick(&w.ManualPriority, b.ManualPriority)
		pick(&w.Dependencies, b.Dependencies)
		pick(&w.Completion, b.Completion)
		pick(&w.Workload, b.Workload)
		out.Weights = &w
	}
	if b := next.Priority; b != nil {
		p := PriorityOverrides{}
		if o.Priority != nil {
			p = *o.Priority
		}
		pick(&p.UrgencyDecay, b.UrgencyDecay)
		pick(&p.OverduePenalty, b.OverduePenalty)
		pick(&p.WorkloadScale, b.WorkloadScale)
		out.Priority = &p
	}
	if b := next.Workload; b != nil {
		w := WorkloadOverrides{}
		if o.Workload != nil {
			w = *o.Workload
		}
		pick(&w.OverloadThreshold, b.OverloadThreshold)
		pick(&w.WarningThreshold, b.WarningThreshold)
		pick(&w.UnderutilizedThreshold, b.UnderutilizedThreshold)
		pick(&w.DefaultWeeklyCapacity, b.DefaultWeeklyCapacity)
		out.Workload = &w
	}
	if b := next.Estimation; b != nil {
		e := EstimationOverrides{}
		if o.Estimation != nil {
			e = *o.Estimation
		}
		pick(&e.Method, b.Method)
		pick(&e.FallbackMultiplier, b.FallbackMultiplier)
		pick(&e.SimilarityThreshold, b.SimilarityThreshold)
		pick(&e.MinSamples, b.MinSamples)
		pick(&e.DefaultMinutes, b.DefaultMinutes)
		pick(&e.MaxHistory, b.MaxHistory)
		out.Estimation = &e
	}
	if b := next.Duplication; b != nil {
		d := DuplicationOverrides{}
		if o.Duplication != nil {
			d = *o.Duplication
		}
		pick(&d.SimilarityThreshold, b.SimilarityThreshold)
		pick(&d.MinTokens, b.MinTokens)
		out.Duplication = &d
	}
	if b := next.Dependency; b != nil {
		d := DependencyOverrides{}
		if o.Dependency != nil {
			d = *o.Dependency
		}
		pick(&d.MaxDepth, b.MaxDepth)
		out.Dependency = &d
	}
	return &out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}
