package nutrition

import (
	"strings"

	"mcp-nutrition-tracker/internal/models"
)

// AggregateDetections folds raw detections into per-label counts, keeping the
// order in which labels first appear.
func AggregateDetections(objects []models.DetectedObject) []models.DetectionCount {
	var counts []models.DetectionCount
	idx := make(map[string]int)
	for _, o := range objects {
		label := strings.TrimSpace(o.Label)
		if label == "" {
			continue
		}
		if i, ok := idx[label]; ok {
			counts[i].Count++
			continue
		}
		idx[label] = len(counts)
		counts = append(counts, models.DetectionCount{Label: label, Count: 1})
	}
	return counts
}

// AverageConfidence returns the mean detection confidence as a percentage.
func AverageConfidence(objects []models.DetectedObject) float64 {
	if len(objects) == 0 {
		return 0
	}
	var sum float64
	for _, o := range objects {
		sum += o.Confidence
	}
	return sum / float64(len(objects)) * 100
}
