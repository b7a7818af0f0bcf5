package dsp

import "math"

// Slaney-style mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSP       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSP
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSP
	}
	return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melMinLogMel {
		return mel * melFSP
	}
	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
}

// melFilter is one triangular band, stored only over its non-zero bins.
type melFilter struct {
	start   int
	weights []float64
}

func (f melFilter) apply(power []float64) float64 {
	var sum float64
	for i, w := range f.weights {
		sum += w * power[f.start+i]
	}
	return sum
}

// melFilterbank builds area-normalized triangular filters spanning
// 0 Hz to Nyquist over the nFFT/2+1 bins of a real FFT.
func melFilterbank(sampleRate, nFFT, nMels int) []melFilter {
	bins := nFFT/2 + 1
	fftFreqs := make([]float64, bins)
	for i := range fftFreqs {
		fftFreqs[i] = float64(i) * float64(sampleRate) / float64(nFFT)
	}

	maxMel := hzToMel(float64(sampleRate) / 2)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = melToHz(maxMel * float64(i) / float64(nMels+1))
	}

	filters := make([]melFilter, nMels)
	for m := 0; m < nMels; m++ {
		lower, center, upper := melF[m], melF[m+1], melF[m+2]
		enorm := 2.0 / (upper - lower)
		f := melFilter{start: -1}
		for k, freq := range fftFreqs {
			left := (freq - lower) / (center - lower)
			right := (upper - freq) / (upper - center)
			w := math.Max(0, math.Min(left, right)) * enorm
			if w <= 0 {
				if f.start >= 0 {
					break
				}
				continue
			}
			if f.start < 0 {
				f.start = k
			}
			f.weights = append(f.weights, w)
		}
		if f.start < 0 {
			f.start = 0
		}
		filters[m] = f
	}
	return filters
}

// dctOrtho returns the first n coefficients of the orthonormal DCT-II of x.
func dctOrtho(x []float64, n int, basis [][]float64) []float64 {
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range x {
			sum += v * basis[k][i]
		}
		out[k] = sum
	}
	return out
}

func dctBasis(n, size int) [][]float64 {
	basis := make([][]float64, n)
	for k := 0; k < n; k++ {
		scale := math.Sqrt(2.0 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(size))
		}
		row := make([]float64, size)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(size)))
		}
		basis[k] = row
	}
	return basis
}
