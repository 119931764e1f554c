package keen

import (
	"log/slog"
	"sync"
)

// Mode selects how Instance interacts with the process-wide core.
type Mode int

const (
	// ModeCurrent returns the current core without creating one or
	// touching the holder count. It returns nil when no core exists.
	ModeCurrent Mode = iota

	// ModeRenew returns the current core, creating it first if none
	// exists, and records the caller as a holder.
	ModeRenew

	// ModeRelease drops one holder. When the last holder releases, the
	// core is closed and discarded; the next ModeRenew builds a fresh
	// one.
	ModeRelease
)

var (
	instanceMu sync.Mutex
	instance   *Core
	holders    int
)

// Instance accesses the process-wide core according to mode. See the
// Mode constants for the exact semantics. The returned core is nil for
// ModeRelease and for ModeCurrent when no core exists.
func Instance(mode Mode) *Core {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	switch mode {
	case ModeCurrent:
		return instance

	case ModeRenew:
		if instance == nil {
			c, err := New()
			if err != nil {
				// Defaults cannot fail validation; this guards
				// future options only.
				slog.Default().Error("failed to build shared core", slog.String("error", err.Error()))
				return nil
			}
			instance = c
		}
		holders++
		return instance

	case ModeRelease:
		if holders > 0 {
			holders--
		}
		if holders == 0 && instance != nil {
			if err := instance.Close(); err != nil {
				instance.logger.Warn("shared core close error", slog.String("error", err.Error()))
			}
			instance = nil
		}
		return nil
	}
	return nil
}

// GetInstance acquires the process-wide core, creating it on first use.
// Pair every call with ReleaseInstance.
func GetInstance() *Core { return Instance(ModeRenew) }

// ReleaseInstance drops one hold on the process-wide core. The core is
// closed when the last hold is released.
func ReleaseInstance() { Instance(ModeRelease) }

// CurrentRefCount reports how many holders the process-wide core has.
// It is zero when no core exists.
func CurrentRefCount() int {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		return 0
	}
	return holders
}
