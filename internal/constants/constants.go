package constants

import "time"

// Clash API gate. One gate for the whole process, shared by every guild.
const (
	GatewayMaxInFlight       = 4
	GatewayRequestsPerSecond = 8
	GatewayMaxRetries        = 3
	GatewayRetryBaseDelay    = 500 * time.Millisecond
	GatewayRequestTimeout    = 10 * time.Second
	GatewayMaxConnsPerHost   = 100
	GatewayIdleConnDuration  = 1 * time.Minute
)

const (
	SyncRequestTimeout   = 5 * time.Minute
	PlayerFetchBatchSize = 20
	EventWindowDays      = 90
)

const (
	RegularWarAttacksAllowed = 2
	CwlAttacksAllowed        = 1
)

const (
	DBMaxOpenConns = 25
	DBMaxIdleConns = 5
)

const (
	SchedulerTickSpec      = "@every 5m"
	DefaultSyncIntervalHrs = 6
	MinSyncIntervalHrs     = 1
	MaxSyncIntervalHrs     = 24
)

const (
	ShutdownTimeout = 5 * time.Second
	NoteMaxLength   = 240
)
