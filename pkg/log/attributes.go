package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator, e.g. "Ridge" or "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed, see the Operation* values.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work, e.g. "compare" or "dataset".
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase, see the Phase* values.
	PhaseKey = "ml.phase"

	// RunIDKey correlates every record of one pipeline run.
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	PathKey     = "data.path"
)

// Results.
const (
	DurationMsKey  = "perf.duration_ms"
	R2ScoreKey     = "metrics.r2_score"
	RMSEKey        = "metrics.rmse"
	MAEKey         = "metrics.mae"
	AccuracyKey    = "metrics.accuracy"
	OverfittingKey = "metrics.overfitting"
	IterationKey   = "training.iteration"
	WinnerKey      = "compare.winner"
)

// Hyperparameters.
const (
	HyperParamsKey    = "model.hyperparams"
	RegularizationKey = "hyperparams.regularization"
	RandomSeedKey     = "config.random_seed"
)

// Errors.
const (
	ErrorKey      = "error"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationCompare = "compare"
	OperationLoad    = "load"
	OperationSave    = "save"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
)
