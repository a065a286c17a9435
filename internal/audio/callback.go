package audio

// callback is handed to the output device. Fill runs on the device's
// real-time thread: it never blocks, locks, allocates or logs.
type callback struct {
	t        *transport
	ring     *ring
	queue    *commandQueue
	channels int
}

// Fill writes len(out) interleaved samples. When paused, muted or starved
// it writes silence and leaves the ring alone, so the position holds.
func (c *callback) Fill(out []int16) {
	n := 0
	if c.t.playing.Load() && !c.t.muted.Load() {
		n = c.ring.Read(out)

		if gain := c.t.Volume(); gain != 1 {
			for i := 0; i < n; i++ {
				out[i] = int16(float64(out[i]) * gain)
			}
		}
	} else {
		// let a seek or stop while paused or muted free the ring for new
		// samples
		c.ring.Sync()
	}
	clear(out[n:])

	if n > 0 {
		c.t.advance(n / c.channels)
	}
	c.queue.signal()
}
