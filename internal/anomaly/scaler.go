package anomaly

import "math"

// scaler standardizes vectors to zero mean and unit variance per
// dimension, using statistics captured at training time.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(vectors [][]float64, dim int) scaler {
	s := scaler{mean: make([]float64, dim), std: make([]float64, dim)}
	n := float64(len(vectors))

	for _, v := range vectors {
		for d := 0; d < dim; d++ {
			s.mean[d] += v[d]
		}
	}
	for d := 0; d < dim; d++ {
		s.mean[d] /= n
	}

	for _, v := range vectors {
		for d := 0; d < dim; d++ {
			diff := v[d] - s.mean[d]
			s.std[d] += diff * diff
		}
	}
	for d := 0; d < dim; d++ {
		s.std[d] = math.Sqrt(s.std[d] / n)
		if s.std[d] == 0 {
			s.std[d] = 1
		}
	}

	return s
}

func (s scaler) transform(v []float64) []float64 {
	out := make([]float64, len(v))
	for d := range v {
		out[d] = (v[d] - s.mean[d]) / s.std[d]
	}
	return out
}
