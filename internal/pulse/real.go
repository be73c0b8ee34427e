//go:build linux

package pulse

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealSource captures pulse edges from actual hardware using the Linux
// GPIO character device.
type RealSource struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	pin  int
}

// NewRealSource opens the GPIO chip for the given pulse pin. The line is
// not requested until Start, because the event handler must be bound at
// request time.
func NewRealSource(pin int) (*RealSource, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealSource{chip: chip, pin: pin}, nil
}

// Start requests the pulse line with a rising-edge event handler that
// forwards each edge to h. The handler runs on the gpiocdev event
// goroutine.
func (r *RealSource) Start(h Handler) error {
	line, err := r.chip.RequestLine(r.pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			h(time.Now())
		}))
	if err != nil {
		return fmt.Errorf("request pulse pin %d: %w", r.pin, err)
	}
	r.line = line
	return nil
}

// Close releases the line and chip. The pin is reconfigured to input with
// pull-down (Pi boot default) before closing so external sensor modules
// cannot hold it in an unexpected state across a reboot.
func (r *RealSource) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pulse pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pulse pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
