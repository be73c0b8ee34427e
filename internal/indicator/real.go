//go:build linux

package indicator

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"
)

// RealControl drives LEDs on actual hardware using the Linux GPIO
// character device.
type RealControl struct {
	chip  *gpiocdev.Chip
	alert *gpiocdev.Line
	conn  *gpiocdev.Line
	tx    *gpiocdev.Line
	log   *zap.Logger
}

// NewRealControl requests the three indicator pins as outputs, all off.
func NewRealControl(pinAlert, pinConn, pinTx int, logger *zap.Logger) (*RealControl, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	alert, err := chip.RequestLine(pinAlert, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request alert pin %d: %w", pinAlert, err)
	}

	conn, err := chip.RequestLine(pinConn, gpiocdev.AsOutput(0))
	if err != nil {
		alert.Close()
		chip.Close()
		return nil, fmt.Errorf("request connectivity pin %d: %w", pinConn, err)
	}

	tx, err := chip.RequestLine(pinTx, gpiocdev.AsOutput(0))
	if err != nil {
		conn.Close()
		alert.Close()
		chip.Close()
		return nil, fmt.Errorf("request tx pin %d: %w", pinTx, err)
	}

	return &RealControl{
		chip:  chip,
		alert: alert,
		conn:  conn,
		tx:    tx,
		log:   logger,
	}, nil
}

// SetAlert turns the alert LED on or off.
func (r *RealControl) SetAlert(on bool) {
	r.set(r.alert, "alert", on)
}

// SetConnectivity turns the connectivity LED on or off.
func (r *RealControl) SetConnectivity(on bool) {
	r.set(r.conn, "connectivity", on)
}

// TransmissionPulse blinks the transmission LED for 100ms. The off edge
// runs on a timer so the poll loop never sleeps for it.
func (r *RealControl) TransmissionPulse() {
	r.set(r.tx, "tx", true)
	time.AfterFunc(100*time.Millisecond, func() {
		r.set(r.tx, "tx", false)
	})
}

func (r *RealControl) set(line *gpiocdev.Line, name string, on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		r.log.Warn("set indicator failed",
			zap.String("indicator", name),
			zap.Error(err))
	}
}

// Close turns all LEDs off and releases the lines.
func (r *RealControl) Close() error {
	var errs []error
	for _, line := range []*gpiocdev.Line{r.alert, r.conn, r.tx} {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear indicator: %w", err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close indicator: %w", err))
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
