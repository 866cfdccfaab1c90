package constants

import "time"

const (
	SessionValidity     = 1 * time.Hour
	SessionPollInterval = 60 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 4
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultMatchLimit = 50
)

// DisplayUTCOffset is the fixed offset used when rendering match timestamps.
// No daylight saving adjustment is applied.
const DisplayUTCOffset = -4 * time.Hour

const (
	DefaultIconName = "default"
	IconExtension   = ".png"
)
