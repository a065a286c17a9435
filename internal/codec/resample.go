package codec

import "math"

// resampler converts interleaved float32 audio between sample rates with
// Catmull-Rom cubic interpolation. Input is pushed in arbitrary blocks;
// output is appended as soon as enough history is available.
type resampler struct {
	channels int
	ratio    float64 // input frames per output frame

	// hist holds the input frames still needed for interpolation. hist[0] is
	// the frame before the one at floor(pos).
	hist    []float32
	pos     float64
	started bool

	// one-pole low-pass applied to input when downsampling
	lowpass bool
	alpha   float32
	state   []float32
}

func newResampler(inRate, outRate, channels int) *resampler {
	r := &resampler{
		channels: channels,
		ratio:    float64(inRate) / float64(outRate),
		state:    make([]float32, channels),
	}
	if r.ratio > 1 {
		r.lowpass = true
		r.alpha = 0.5
	}
	return r
}

func (r *resampler) passthrough() bool { return r.ratio == 1 }

// push feeds interleaved input frames and appends any output to out.
func (r *resampler) push(in []float32, out []float32) []float32 {
	if r.passthrough() {
		return append(out, in...)
	}
	if len(in) == 0 {
		return out
	}

	if !r.started {
		// edge-extend the first frame so the stream start has a predecessor
		r.hist = append(r.hist, in[:r.channels]...)
		r.pos = 1
		r.started = true
		if r.lowpass {
			copy(r.state, in[:r.channels])
		}
	}

	start := len(r.hist)
	r.hist = append(r.hist, in...)
	if r.lowpass {
		for i := start; i < len(r.hist); i += r.channels {
			for c := 0; c < r.channels; c++ {
				y := r.alpha*r.hist[i+c] + (1-r.alpha)*r.state[c]
				r.hist[i+c] = y
				r.state[c] = y
			}
		}
	}

	// cubic interpolation at i reads frames i-1 through i+2
	out = r.interpolate(out, len(r.hist)/r.channels-3)
	r.trim()
	return out
}

// flush emits the output still pending at end of stream.
func (r *resampler) flush(out []float32) []float32 {
	if r.passthrough() || !r.started {
		return out
	}
	n := len(r.hist) / r.channels
	last := r.hist[(n-1)*r.channels : n*r.channels]
	tail := make([]float32, 0, 2*r.channels)
	tail = append(tail, last...)
	tail = append(tail, last...)
	r.hist = append(r.hist, tail...)

	// positions up to the last real input frame
	out = r.interpolate(out, n-1)
	r.hist = r.hist[:0]
	r.started = false
	return out
}

// interpolate emits output frames while floor(pos) <= limit.
func (r *resampler) interpolate(out []float32, limit int) []float32 {
	ch := r.channels
	for {
		i := int(math.Floor(r.pos))
		if i > limit || i < 1 {
			return out
		}
		frac := float32(r.pos - float64(i))
		y0 := r.hist[(i-1)*ch:]
		y1 := r.hist[i*ch:]
		y2 := r.hist[(i+1)*ch:]
		y3 := r.hist[(i+2)*ch:]
		for c := 0; c < ch; c++ {
			out = append(out, cubic(y0[c], y1[c], y2[c], y3[c], frac))
		}
		r.pos += r.ratio
	}
}

// trim drops frames no longer reachable by interpolation.
func (r *resampler) trim() {
	drop := int(math.Floor(r.pos)) - 1
	if drop <= 0 {
		return
	}
	drop = min(drop, len(r.hist)/r.channels)
	n := copy(r.hist, r.hist[drop*r.channels:])
	r.hist = r.hist[:n]
	r.pos -= float64(drop)
}

// cubic is Catmull-Rom interpolation between y1 and y2 at x in [0,1).
func cubic(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1
	return ((a0*x+a1)*x+a2)*x + a3
}
