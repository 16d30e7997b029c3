package nn

// OneHot converts integer class labels to one-hot target rows.
func OneHot(labels []int, numClasses int) [][]float64 {
	out := make([][]float64, len(labels))
	for i, label := range labels {
		out[i] = make([]float64, numClasses)
		if label >= 0 && label < numClasses {
			out[i][label] = 1.0
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
