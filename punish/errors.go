package punish

import "github.com/pkg/errors"

// Failure kinds returned by the moderation services. Callers match them with errors.Is.
var (
	// ErrUnparseableExpiration means the expiration text held no recognizable date.
	ErrUnparseableExpiration = errors.New("unparseable expiration")
	// ErrMissingConfiguration means a required per-server setting is absent.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrPlatformEffect means a Discord call (role, ban, kick) failed.
	ErrPlatformEffect = errors.New("platform effect failed")
	// ErrNotFound means the guild, member or ban no longer exists on the platform.
	ErrNotFound = errors.New("not found")
	// ErrGuildUnavailable means the guild could not be resolved while reversing.
	ErrGuildUnavailable = errors.New("guild unavailable")
	// ErrStore means the record store failed.
	ErrStore = errors.New("record store failure")
	// ErrNotReady means startup reconciliation has not finished.
	ErrNotReady = errors.New("moderation services not ready")
)
