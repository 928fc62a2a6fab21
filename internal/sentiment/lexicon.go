package sentiment

// Weighted lexicon tuned for Sri Lankan news and social chatter. Weights
// are pre-tanh contributions, negative for adverse terms.

var unigramWeights = map[string]float64{
	// adverse
	"crisis":     -1.0,
	"shortage":   -0.9,
	"scarcity":   -0.9,
	"emergency":  -0.9,
	"flood":      -0.8,
	"floods":     -0.8,
	"flooding":   -0.8,
	"landslide":  -0.9,
	"protest":    -0.7,
	"protests":   -0.7,
	"strike":     -0.7,
	"outage":     -0.7,
	"blackout":   -0.8,
	"queue":      -0.5,
	"queues":     -0.5,
	"accident":   -0.7,
	"collision":  -0.7,
	"injured":    -0.8,
	"killed":     -1.0,
	"death":      -1.0,
	"deaths":     -1.0,
	"collapse":   -0.9,
	"corruption": -0.8,
	"inflation":  -0.6,
	"unrest":     -0.8,
	"warning":    -0.5,
	"evacuate":   -0.8,
	"evacuated":  -0.8,
	"disrupted":  -0.6,
	"disruption": -0.6,
	"delayed":    -0.4,
	"cancelled":  -0.5,
	"failure":    -0.7,
	"broken":     -0.5,
	"angry":      -0.6,
	"frustrated": -0.6,
	"worried":    -0.5,
	"fear":       -0.6,
	"panic":      -0.8,

	// favourable
	"boost":       0.7,
	"recovery":    0.8,
	"recovering":  0.7,
	"growth":      0.6,
	"improved":    0.6,
	"improvement": 0.6,
	"restored":    0.7,
	"resolved":    0.7,
	"success":     0.7,
	"successful":  0.7,
	"record":      0.3,
	"surge":       0.3,
	"celebrate":   0.7,
	"festival":    0.4,
	"win":         0.5,
	"won":         0.5,
	"happy":       0.6,
	"relief":      0.6,
	"stable":      0.4,
	"reopened":    0.6,
	"thriving":    0.8,
}

var bigramWeights = map[string]float64{
	"power cut":        -0.8,
	"power cuts":       -0.8,
	"fuel shortage":    -1.0,
	"price hike":       -0.7,
	"price increase":   -0.6,
	"heavy rain":       -0.5,
	"flash flood":      -0.9,
	"water cut":        -0.6,
	"road closed":      -0.5,
	"tourist arrivals": 0.5,
	"tourism boost":    0.8,
	"bumper harvest":   0.8,
	"prices dropped":   0.5,
	"back online":      0.6,
}
