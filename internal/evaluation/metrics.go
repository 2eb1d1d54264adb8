// internal/evaluation/metrics.go
package evaluation

import (
	"sort"

	"modeltest-workers/internal/models"
)

// EvaluationMetrics builds a classification report over parallel target and
// prediction label sequences. Labels equal to excludeLabel contribute to
// accuracy but are excluded from per-class metrics and from the averaged
// precision and F1, so a dominant filler label cannot mask real errors.
// Pass an empty excludeLabel to score every label.
func EvaluationMetrics(targets, predictions []string, excludeLabel string) (*models.EvaluationReport, float64, float64, float64) {
	total := len(targets)
	if len(predictions) < total {
		total = len(predictions)
	}

	matches := 0
	truePositives := map[string]int{}
	targetCounts := map[string]int{}
	predictionCounts := map[string]int{}

	for i := 0; i < total; i++ {
		if targets[i] == predictions[i] {
			matches++
			truePositives[targets[i]]++
		}
		targetCounts[targets[i]]++
		predictionCounts[predictions[i]]++
	}

	accuracy := 0.0
	if total > 0 {
		accuracy = float64(matches) / float64(total)
	}

	labels := collectLabels(targetCounts, predictionCounts, excludeLabel)

	report := &models.EvaluationReport{
		Classes:  make(map[string]models.ClassMetrics, len(labels)),
		Accuracy: accuracy,
		Support:  total,
	}

	scored := 0
	var macro models.ClassMetrics
	var weighted models.ClassMetrics

	for _, label := range labels {
		metrics := classMetrics(label, truePositives, targetCounts, predictionCounts)
		report.Classes[label] = metrics

		macro.Precision += metrics.Precision
		macro.Recall += metrics.Recall
		macro.F1Score += metrics.F1Score
		macro.Support += metrics.Support

		weight := float64(metrics.Support)
		weighted.Precision += metrics.Precision * weight
		weighted.Recall += metrics.Recall * weight
		weighted.F1Score += metrics.F1Score * weight
		weighted.Support += metrics.Support
		scored += metrics.Support
	}

	if len(labels) > 0 {
		macro.Precision /= float64(len(labels))
		macro.Recall /= float64(len(labels))
		macro.F1Score /= float64(len(labels))
	}
	if scored > 0 {
		weighted.Precision /= float64(scored)
		weighted.Recall /= float64(scored)
		weighted.F1Score /= float64(scored)
	}

	report.MacroAvg = macro
	report.WeightedAvg = weighted

	return report, weighted.Precision, weighted.F1Score, accuracy
}

func classMetrics(label string, truePositives, targetCounts, predictionCounts map[string]int) models.ClassMetrics {
	tp := float64(truePositives[label])
	predicted := float64(predictionCounts[label])
	actual := float64(targetCounts[label])

	var precision, recall, f1 float64
	if predicted > 0 {
		precision = tp / predicted
	}
	if actual > 0 {
		recall = tp / actual
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return models.ClassMetrics{
		Precision: precision,
		Recall:    recall,
		F1Score:   f1,
		Support:   targetCounts[label],
	}
}

func collectLabels(targetCounts, predictionCounts map[string]int, excludeLabel string) []string {
	seen := map[string]bool{}
	var labels []string
	for label := range targetCounts {
		if label != excludeLabel && !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	for label := range predictionCounts {
		if label != excludeLabel && !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}
