package transcribe

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	minPitchHz = 50.0
	maxPitchHz = 500.0

	// Frames quieter than this RMS (full scale = 1) are treated as silence.
	silenceRMS = 0.01
	// Normalized autocorrelation peak a frame needs to count as voiced.
	voicingThreshold = 0.5
	// The first lag within this fraction of the best peak wins, which keeps
	// sub-harmonics from halving the estimate.
	peakTolerance = 0.9
)

// ErrInvalidAudio indicates the input is not a readable PCM WAV stream.
var ErrInvalidAudio = errors.New("invalid audio")

// EstimatePitch returns the mean fundamental frequency in Hz across the
// voiced frames of a PCM WAV stream, or nil when no frame is voiced.
func EstimatePitch(r io.ReadSeeker) (*float64, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM wav file", ErrInvalidAudio)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidAudio)
	}

	samples := monoSamples(buf, int(d.BitDepth))
	return estimateF0(samples, float64(buf.Format.SampleRate)), nil
}

// EstimatePitchFile opens path and calls EstimatePitch.
func EstimatePitchFile(path string) (*float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return EstimatePitch(f)
}

// monoSamples averages interleaved channels and scales to [-1, 1].
func monoSamples(buf *audio.IntBuffer, bitDepth int) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := math.Pow(2, float64(bitDepth-1))

	n := len(buf.Data) / channels
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

func estimateF0(samples []float64, sampleRate float64) *float64 {
	minLag := int(sampleRate / maxPitchHz)
	maxLag := int(math.Ceil(sampleRate / minPitchHz))
	if minLag < 1 {
		minLag = 1
	}
	frame := 2 * maxLag
	if floor := int(sampleRate * 0.04); frame < floor {
		frame = floor
	}
	hop := frame / 2

	var sum float64
	var voiced int
	for start := 0; start+frame <= len(samples); start += hop {
		if f0, ok := frameF0(samples[start:start+frame], minLag, maxLag, sampleRate); ok {
			sum += f0
			voiced++
		}
	}
	if voiced == 0 {
		return nil
	}
	mean := sum / float64(voiced)
	return &mean
}

func frameF0(x []float64, minLag, maxLag int, sampleRate float64) (float64, bool) {
	var energy float64
	for _, v := range x {
		energy += v * v
	}
	if math.Sqrt(energy/float64(len(x))) < silenceRMS {
		return 0, false
	}
	if maxLag >= len(x)-1 {
		maxLag = len(x) - 2
	}
	if maxLag <= minLag {
		return 0, false
	}

	r := make([]float64, maxLag+2)
	best := 0.0
	for lag := minLag; lag <= maxLag+1 && lag < len(x); lag++ {
		r[lag] = normalizedAutocorr(x, lag)
		if lag <= maxLag && r[lag] > best {
			best = r[lag]
		}
	}
	if best < voicingThreshold {
		return 0, false
	}

	lag := minLag
	for ; lag <= maxLag; lag++ {
		if r[lag] >= peakTolerance*best {
			break
		}
	}
	for lag < maxLag && r[lag+1] > r[lag] {
		lag++
	}

	period := float64(lag)
	if lag > minLag && lag <= maxLag {
		// Parabolic interpolation around the peak.
		a, b, c := r[lag-1], r[lag], r[lag+1]
		if denom := a - 2*b + c; denom != 0 {
			period += 0.5 * (a - c) / denom
		}
	}
	f0 := sampleRate / period
	if f0 < minPitchHz || f0 > maxPitchHz {
		return 0, false
	}
	return f0, true
}

func normalizedAutocorr(x []float64, lag int) float64 {
	var num, e0, e1 float64
	for i := 0; i+lag < len(x); i++ {
		num += x[i] * x[i+lag]
		e0 += x[i] * x[i]
		e1 += x[i+lag] * x[i+lag]
	}
	if e0 == 0 || e1 == 0 {
		return 0
	}
	return num / math.Sqrt(e0*e1)
}
