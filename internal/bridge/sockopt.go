package bridge

import (
	"fmt"

	"github.com/kstaniek/go-can-bridge/internal/frame"
	"github.com/kstaniek/go-can-bridge/internal/metrics"
)

// Socket option identifiers understood by the adapter (values as in
// <linux/can/raw.h>).
const (
	SolCANRaw    = 101
	CANRawFilter = 1
)

// SetOption is the socket option adapter. Only (SOL_CAN_RAW, CAN_RAW_FILTER)
// is a filter-install request; everything else is rejected. Userspace hands
// the filter in one of two layouts and the declared byte length is the only
// discriminator; frame.DecodeFilter performs the validated-length dispatch.
// Installing a filter replaces any previous one.
func (c *Context) SetOption(level, name int, value []byte) error {
	if level != SolCANRaw || name != CANRawFilter {
		metrics.IncMalformedFilter()
		return fmt.Errorf("%w: level=%d name=%d", ErrOptionUnsupported, level, name)
	}
	if c.ch == nil {
		return fmt.Errorf("%w: %s", ErrDeviceNotPresent, c.name)
	}
	flt, err := frame.DecodeFilter(value)
	if err != nil {
		metrics.IncMalformedFilter()
		return fmt.Errorf("setsockopt %s: %w", c.name, err)
	}
	if err := c.ch.InstallFilter(flt); err != nil {
		metrics.IncError(metrics.ErrFilterInstall)
		c.log.Warn("filter_install_error", "if", c.name, "error", err)
		return fmt.Errorf("install filter %s: %w", c.name, err)
	}
	metrics.IncFilterInstall()
	c.log.Debug("filter_installed", "if", c.name, "id", flt.ID, "mask", flt.Mask)
	return nil
}
