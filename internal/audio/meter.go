package audio

import (
	"math"
	"sync"
)

const (
	meterWindow    = 2048
	meterSmoothing = 0.5
	// SilenceFloorDB is reported when the window holds no signal at all.
	SilenceFloorDB = -100.0
)

// Meter tracks the loudness of the most recent meterWindow samples. Each
// Loudness call folds the current window into an exponential average.
type Meter struct {
	mu       sync.Mutex
	window   [meterWindow]int16
	pos      int
	filled   int
	smoothed float64
}

func NewMeter() *Meter {
	return &Meter{}
}

func (m *Meter) Write(samples []int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range samples {
		m.window[m.pos] = s
		m.pos = (m.pos + 1) % meterWindow
		if m.filled < meterWindow {
			m.filled++
		}
	}
}

// Loudness returns the smoothed mean absolute amplitude in dBFS.
func (m *Meter) Loudness() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var level float64
	if m.filled > 0 {
		var sum float64
		for i := 0; i < m.filled; i++ {
			sum += math.Abs(float64(m.window[i]))
		}
		level = sum / float64(m.filled) / 32768.0
	}
	m.smoothed = meterSmoothing*m.smoothed + (1-meterSmoothing)*level
	return levelToDB(m.smoothed)
}

func levelToDB(level float64) float64 {
	if level <= 0 {
		return SilenceFloorDB
	}
	db := 20 * math.Log10(level)
	if db < SilenceFloorDB {
		return SilenceFloorDB
	}
	return db
}
