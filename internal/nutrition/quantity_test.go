package nutrition

import (
	"errors"
	"testing"

	"mcp-nutrition-tracker/internal/models"
)

func TestAdjustNeverBelowOne(t *testing.T) {
	for _, start := range []float64{1, 2, 5, 0.5, -3} {
		q := NewQuantities(models.FoodQuantity{Label: "apple", Amount: start})
		for i := 0; i < 10; i++ {
			if _, err := q.Adjust("apple", Decrement); err != nil {
				t.Fatalf("adjust: %v", err)
			}
			if got, _ := q.Amount("apple"); got < 1 {
				t.Fatalf("start %v: amount dropped to %v", start, got)
			}
		}
	}
}

func TestAdjustStepsByOne(t *testing.T) {
	q := NewQuantities(models.FoodQuantity{Label: "rice", Amount: 150})

	lines, err := q.Adjust("rice", Increment)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if lines[0].Amount != 151 {
		t.Errorf("expected 151, got %v", lines[0].Amount)
	}

	q.Adjust("rice", Decrement)
	q.Adjust("rice", Decrement)
	if got, _ := q.Amount("rice"); got != 149 {
		t.Errorf("expected 149, got %v", got)
	}
}

func TestAdjustUnknownFood(t *testing.T) {
	q := NewQuantities(models.FoodQuantity{Label: "apple", Amount: 1})
	if _, err := q.Adjust("pear", Increment); !errors.Is(err, ErrUnknownFood) {
		t.Errorf("expected ErrUnknownFood, got %v", err)
	}
}

func TestSetQuantityFromText(t *testing.T) {
	q := NewQuantities(models.FoodQuantity{Label: "rice", Amount: 100})
	tests := []struct {
		text string
		want float64
	}{
		{"250", 250},
		{" 12.5 ", 12.5},
		{"0", 1},
		{"-4", 1},
		{"abc", 1},
		{"", 1},
		{"NaN", 1},
	}
	for _, tt := range tests {
		got, err := q.Set("rice", tt.text)
		if err != nil {
			t.Fatalf("set %q: %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("set %q: expected %v, got %v", tt.text, tt.want, got)
		}
	}
}

func TestRemoveSignalsEmpty(t *testing.T) {
	q := NewQuantities(
		models.FoodQuantity{Label: "apple", Amount: 1},
		models.FoodQuantity{Label: "egg", Amount: 2},
	)
	empty, err := q.Remove("apple")
	if err != nil || empty {
		t.Fatalf("expected non-empty after first remove, got empty=%v err=%v", empty, err)
	}
	empty, err = q.Remove("egg")
	if err != nil || !empty {
		t.Fatalf("expected empty after last remove, got empty=%v err=%v", empty, err)
	}
	if _, err := q.Remove("egg"); !errors.Is(err, ErrUnknownFood) {
		t.Errorf("expected ErrUnknownFood, got %v", err)
	}
}

func TestDuplicateLabelsKept(t *testing.T) {
	q := NewQuantities(
		models.FoodQuantity{Label: "apple", Amount: 1},
		models.FoodQuantity{Label: "apple", Amount: 3},
	)
	q.Adjust("apple", Increment)
	lines := q.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Amount != 2 || lines[1].Amount != 3 {
		t.Errorf("expected only the first line adjusted, got %+v", lines)
	}
}

func TestSeedQuantities(t *testing.T) {
	counts := []models.DetectionCount{
		{Label: "rice", Count: 1},
		{Label: "apple", Count: 2},
		{Label: "unknown", Count: 0},
	}
	q := SeedQuantities(counts, testProfiles())

	if got, _ := q.Amount("rice"); got != 200 {
		t.Errorf("expected rice to start at its 200 g serving, got %v", got)
	}
	if got, _ := q.Amount("apple"); got != 2 {
		t.Errorf("expected 2 apples, got %v", got)
	}
	if got, _ := q.Amount("unknown"); got != 1 {
		t.Errorf("expected unknown food clamped to 1, got %v", got)
	}
}

func TestParseManualValue(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"123.45", 123.5},
		{"80", 80},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"-12", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		if got := ParseManualValue(tt.text); !approx(got, tt.want) {
			t.Errorf("ParseManualValue(%q) = %v, expected %v", tt.text, got, tt.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("increment"); err != nil || d != Increment {
		t.Errorf("expected Increment, got %v %v", d, err)
	}
	if d, err := ParseDirection("-"); err != nil || d != Decrement {
		t.Errorf("expected Decrement, got %v %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}
}

func TestAggregateDetections(t *testing.T) {
	objects := []models.DetectedObject{
		{Label: "egg", Confidence: 0.9},
		{Label: "apple", Confidence: 0.8},
		{Label: "egg", Confidence: 0.7},
		{Label: " ", Confidence: 0.1},
	}
	counts := AggregateDetections(objects)
	if len(counts) != 2 {
		t.Fatalf("expected 2 labels, got %+v", counts)
	}
	if counts[0] != (models.DetectionCount{Label: "egg", Count: 2}) || counts[1] != (models.DetectionCount{Label: "apple", Count: 1}) {
		t.Errorf("unexpected counts %+v", counts)
	}

	if got := AverageConfidence(objects[:3]); !approx(got, 80) {
		t.Errorf("expected 80%% average confidence, got %v", got)
	}
	if got := AverageConfidence(nil); got != 0 {
		t.Errorf("expected 0 for no detections, got %v", got)
	}
}
