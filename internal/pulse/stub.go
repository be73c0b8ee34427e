//go:build !linux

package pulse

import "errors"

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(pin int) (*RealSource, error) {
	return nil, errors.New("pulse: not supported on this platform (requires Linux)")
}

// Start is not implemented on non-Linux platforms.
func (r *RealSource) Start(h Handler) error {
	return errors.New("pulse: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealSource) Close() error {
	return nil
}
