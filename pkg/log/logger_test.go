package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	mlerrors "github.com/YuminosukeSato/healthml/pkg/errors"
)

func TestZerologLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	logger.With(ModelNameKey, "Ridge").Info("Estimator fitted",
		SamplesKey, 2512,
		FeaturesKey, 29,
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Estimator fitted" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry[ModelNameKey] != "Ridge" {
		t.Errorf("%s = %v", ModelNameKey, entry[ModelNameKey])
	}
	if entry[SamplesKey] != 2512.0 {
		t.Errorf("%s = %v", SamplesKey, entry[SamplesKey])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestZerologLogger_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := mlerrors.NewDimensionError("Ridge.Predict", 29, 3, 1)
	logger.Error("prediction failed", err, OperationKey, OperationPredict)

	out := buf.String()
	if !strings.Contains(out, `"error":"healthml: Ridge.Predict: dimension mismatch`) {
		t.Errorf("error not attached: %s", out)
	}
	if !strings.Contains(out, `"ml.operation":"predict"`) {
		t.Errorf("operation missing: %s", out)
	}
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("records below level were emitted: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn record missing: %s", buf.String())
	}
	if logger.Enabled(context.Background(), LevelInfo) {
		t.Error("info should be disabled")
	}
	if !logger.Enabled(context.Background(), LevelError) {
		t.Error("error should be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLogger_RoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	if err := SetupLogger(&buf, "info", "json"); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	defer mlerrors.SetZerologWarnFunc(nil)

	mlerrors.Warn(mlerrors.NewConvergenceWarning("ElasticNet", 1000, ""))

	out := buf.String()
	if !strings.Contains(out, "ElasticNet failed to converge") {
		t.Errorf("warning not logged: %s", out)
	}
	if !strings.Contains(out, `"ml.component":"warnings"`) {
		t.Errorf("component missing: %s", out)
	}

	if err := SetupLogger(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTestLogger(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	logger := provider.GetLoggerWithName("compare").With(RunIDKey, "run-1")

	logger.Info("Comparison finished", WinnerKey, "Ridge", R2ScoreKey, 0.9672)
	logger.Error("boom", mlerrors.New("disk full"))

	tl := provider.Logger()
	if !tl.ContainsField(ComponentKey, "compare") {
		t.Error("component field missing")
	}
	if !tl.ContainsField(RunIDKey, "run-1") {
		t.Error("run id missing")
	}
	if !tl.ContainsField(R2ScoreKey, 0.9672) {
		t.Error("r2 field missing")
	}
	if !tl.ContainsField(ErrorKey, "disk full") {
		t.Error("error field missing")
	}

	entries, err := tl.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}

	tl.Clear()
	if tl.ContainsMessage("boom") {
		t.Error("Clear did not drop records")
	}
}
