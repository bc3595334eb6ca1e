package config

// Runtime-tunable keys read by the escalation core.
const (
	KeyIgnoreInterval          = "IGNORE_INTERVAL"
	KeyIgnoreMaxRetry          = "IGNORE_MAX_RETRY"
	KeyTimeoutRemind           = "TIMEOUT_REMIND"
	KeyLimitDayPavlokCounts    = "LIMIT_DAY_PAVLOK_COUNTS"
	KeyRetryDelay              = "RETRY_DELAY"
	KeySystemPaused            = "SYSTEM_PAUSED"
	KeyEscalationLookbackHours = "ESCALATION_LOOKBACK_HOURS"
)

const (
	DefaultIgnoreInterval          = 900
	DefaultIgnoreMaxRetry          = 5
	DefaultTimeoutRemind           = 600
	DefaultLimitDayPavlokCounts    = 100
	DefaultRetryDelayMinutes       = 5
	DefaultEscalationLookbackHours = 24
)

// KeyPlanDefaultTime is the clock time of the next PLAN when a submission omits one.
const (
	KeyPlanDefaultTime     = "PLAN_DEFAULT_TIME"
	DefaultPlanDefaultTime = "07:00"
)
