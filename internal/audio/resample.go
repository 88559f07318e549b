package audio

import "math"

const resampleTaps = 31

// ResampleInt16 converts mono samples from srcRate to dstRate with linear
// interpolation, low-pass filtering on the side of the lower rate.
func ResampleInt16(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 || srcRate <= 0 || dstRate <= 0 {
		return samples
	}

	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s)
	}
	nyquist := float64(min(srcRate, dstRate)) / 2
	if srcRate > dstRate {
		in = lowPass(in, nyquist, float64(srcRate))
	}

	ratio := float64(srcRate) / float64(dstRate)
	out := make([]float64, int(float64(len(in))/ratio))
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		if idx+1 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}

	if dstRate > srcRate {
		out = lowPass(out, nyquist, float64(dstRate))
	}

	result := make([]int16, len(out))
	for i, v := range out {
		result[i] = clampInt16(v)
	}
	return result
}

func lowPass(samples []float64, cutoff, rate float64) []float64 {
	kernel := blackmanSinc(cutoff/rate, resampleTaps)
	half := resampleTaps / 2
	out := make([]float64, len(samples))
	for i := range samples {
		var sum float64
		for j := max(0, half-i); j < min(resampleTaps, len(samples)-i+half); j++ {
			sum += samples[i+j-half] * kernel[j]
		}
		out[i] = sum
	}
	return out
}

// blackmanSinc builds a unity-gain windowed-sinc kernel for normalized cutoff fc.
func blackmanSinc(fc float64, taps int) []float64 {
	half := taps / 2
	kernel := make([]float64, taps)
	var sum float64
	for i := range kernel {
		n := float64(i - half)
		v := 1.0
		if n != 0 {
			x := 2 * math.Pi * fc * n
			v = math.Sin(x) / x
		}
		phase := float64(i) / float64(taps-1)
		v *= 0.42 - 0.5*math.Cos(2*math.Pi*phase) + 0.08*math.Cos(4*math.Pi*phase)
		kernel[i] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}
