package audio

import "math"

const (
	normalizeTargetPeak = 0.7 * math.MaxInt16
	normalizeMaxGain    = 8.0
	dcBlockPole         = 0.995
)

// normalizePeak boosts quiet recordings so their peak reaches
// normalizeTargetPeak. It never attenuates and never amplifies beyond
// normalizeMaxGain.
func normalizePeak(samples []int16) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	gain := min(normalizeTargetPeak/peak, normalizeMaxGain)
	if gain <= 1 {
		return
	}
	for i, s := range samples {
		samples[i] = clampInt16(float64(s) * gain)
	}
}

// dcBlocker is a one-pole high-pass that strips microphone DC offset.
type dcBlocker struct {
	prevIn  float64
	prevOut float64
}

func (d *dcBlocker) process(samples []int16) {
	for i, s := range samples {
		in := float64(s)
		out := in - d.prevIn + dcBlockPole*d.prevOut
		d.prevIn = in
		d.prevOut = out
		samples[i] = clampInt16(out)
	}
}

func clampInt16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(math.Round(v))
	}
}
