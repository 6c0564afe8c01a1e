package indicator

import (
	"math"

	"quant-corev1/internal/model"
)

// Bollinger calculates Bollinger Bands: a rolling SMA of close plus and
// minus a multiple of the rolling sample standard deviation. The bands
// share one circular buffer; variance is recomputed by scanning the
// window, which keeps the numbers exact for the small periods in use.
type Bollinger struct {
	period int
	stdDev float64 // band width in standard deviations
	buf    []float64
	idx    int
	count  int
	sum    float64
	upper  float64
	lower  float64
}

// NewBollinger creates a Bollinger Bands indicator with the given
// period and band width (typically 20, 2).
func NewBollinger(period int, stdDev float64) *Bollinger {
	return &Bollinger{
		period: period,
		stdDev: stdDev,
		buf:    make([]float64, period),
	}
}

func (b *Bollinger) Name() string { return "BB" }

func (b *Bollinger) Update(candle model.Candle) {
	price := candle.Close

	if b.count >= b.period {
		b.sum -= b.buf[b.idx]
	}
	b.buf[b.idx] = price
	b.sum += price
	b.idx = (b.idx + 1) % b.period
	b.count++

	if b.count < b.period {
		return
	}

	mean := b.sum / float64(b.period)
	var sq float64
	for _, v := range b.buf {
		d := v - mean
		sq += d * d
	}
	// Sample standard deviation (n-1 denominator)
	sigma := math.Sqrt(sq / float64(b.period-1))

	b.upper = mean + b.stdDev*sigma
	b.lower = mean - b.stdDev*sigma
}

// Upper returns the current upper band.
func (b *Bollinger) Upper() float64 { return b.upper }

// Lower returns the current lower band.
func (b *Bollinger) Lower() float64 { return b.lower }

// Value returns the upper band, satisfying the Indicator interface.
func (b *Bollinger) Value() float64 { return b.upper }

func (b *Bollinger) Ready() bool { return b.count >= b.period }
