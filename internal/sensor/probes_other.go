//go:build !linux

package sensor

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// Socket probes require Linux; other platforms only build for tests.
func openProbes(cfg Config, log *zap.Logger) (RecordSource, time.Time, error) {
	return nil, time.Time{}, errors.New("socket probes are only supported on linux")
}
