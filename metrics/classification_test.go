package metrics

import (
	"math"
	"testing"
)

func TestAccuracy(t *testing.T) {
	got, err := Accuracy([]float64{0, 1, 1, 0}, []float64{0, 1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.75 {
		t.Errorf("Accuracy() = %v, want 0.75", got)
	}

	if _, err := Accuracy([]float64{1}, []float64{1, 0}); err == nil {
		t.Error("expected dimension error")
	}
	if _, err := Accuracy(nil, nil); err == nil {
		t.Error("expected error for empty labels")
	}
}

func TestPrecisionRecallF1(t *testing.T) {
	yTrue := []float64{1, 1, 1, 0, 0, 0, 1, 0}
	yPred := []float64{1, 0, 1, 1, 0, 0, 1, 0}
	// tp=3 fp=1 fn=1

	p, err := Precision(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	r, err := Recall(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	f, err := F1Score(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}

	if p != 0.75 {
		t.Errorf("Precision() = %v, want 0.75", p)
	}
	if r != 0.75 {
		t.Errorf("Recall() = %v, want 0.75", r)
	}
	if math.Abs(f-0.75) > 1e-12 {
		t.Errorf("F1Score() = %v, want 0.75", f)
	}
}

func TestPrecision_NoPositivePredictions(t *testing.T) {
	got, err := Precision([]float64{1, 0}, []float64{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("Precision() = %v, want 0", got)
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1, 1}
	yPred := []float64{0, 1, 1, 1, 0}

	cm, labels, err := ConfusionMatrix(yTrue, yPred, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 2 || labels[0] != 0 || labels[1] != 1 {
		t.Fatalf("labels = %v", labels)
	}
	want := [][]int{{1, 1}, {1, 2}}
	for i := range want {
		for j := range want[i] {
			if cm[i][j] != want[i][j] {
				t.Errorf("cm[%d][%d] = %d, want %d", i, j, cm[i][j], want[i][j])
			}
		}
	}
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yScore  []float64
		want    float64
		wantErr bool
	}{
		{
			name:   "perfect classifier",
			yTrue:  []float64{0, 0, 0, 1, 1, 1},
			yScore: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "worst classifier",
			yTrue:  []float64{0, 0, 0, 1, 1, 1},
			yScore: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:   0.0,
		},
		{
			name:   "all ties",
			yTrue:  []float64{0, 1, 0, 1},
			yScore: []float64{0.5, 0.5, 0.5, 0.5},
			want:   0.5,
		},
		{
			name:   "typical case",
			yTrue:  []float64{0, 0, 1, 1},
			yScore: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.75,
		},
		{
			name:   "single class",
			yTrue:  []float64{1, 1, 1},
			yScore: []float64{0.1, 0.4, 0.35},
			want:   0.5,
		},
		{
			name:    "non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yScore:  []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.yScore)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AUC() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}
