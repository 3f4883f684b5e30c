package upload

import (
	"context"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
)

// Simulated fabricates transfer and processing with timers.
// Progress advances by Step every Tick; processing takes ProcessingDelay.
type Simulated struct {
	Tick            time.Duration
	Step            int
	ProcessingDelay time.Duration

	// Optional failure injection
	FailTransfer   func(file models.FileRecord, progress int) error
	FailProcessing func(file models.FileRecord) error
}

// NewSimulated returns a simulated backend with the given timings
func NewSimulated(tick time.Duration, step int, processingDelay time.Duration) *Simulated {
	return &Simulated{Tick: tick, Step: step, ProcessingDelay: processingDelay}
}

func (s *Simulated) Transfer(ctx context.Context, file models.FileRecord, progress func(int)) error {
	step := s.Step
	if step <= 0 {
		step = 10
	}

	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()

	p := 0
	for p < 100 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if s.FailTransfer != nil {
			if err := s.FailTransfer(file, p); err != nil {
				return err
			}
		}

		p += step
		if p > 100 {
			p = 100
		}
		progress(p)
	}
	return nil
}

func (s *Simulated) Process(ctx context.Context, file models.FileRecord) error {
	timer := time.NewTimer(s.ProcessingDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if s.FailProcessing != nil {
		return s.FailProcessing(file)
	}
	return nil
}
