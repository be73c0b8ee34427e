//go:build !linux

package indicator

import (
	"errors"

	"go.uber.org/zap"
)

// RealControl is not available on non-Linux platforms.
type RealControl struct{}

// NewRealControl returns an error on non-Linux platforms.
func NewRealControl(pinAlert, pinConn, pinTx int, logger *zap.Logger) (*RealControl, error) {
	return nil, errors.New("indicator: not supported on this platform (requires Linux)")
}

// SetAlert is not implemented on non-Linux platforms.
func (r *RealControl) SetAlert(bool) {}

// SetConnectivity is not implemented on non-Linux platforms.
func (r *RealControl) SetConnectivity(bool) {}

// TransmissionPulse is not implemented on non-Linux platforms.
func (r *RealControl) TransmissionPulse() {}

// Close is not implemented on non-Linux platforms.
func (r *RealControl) Close() error { return nil }
