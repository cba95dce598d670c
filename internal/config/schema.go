package config

// Config is the top-level configuration
type Config struct {
	Channels  ChannelsConfig  `json:"channels"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Limits    LimitsConfig    `json:"limits"`
	Premium   PremiumConfig   `json:"premium"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	AllowedUsers []int64 `json:"allowedUsers"`
}

type StorageConfig struct {
	DBPath string `json:"dbPath"`
}

type SchedulerConfig struct {
	// Timezone is the IANA name of the civil timezone every phrase is
	// anchored to and every schedule runs in.
	Timezone    string `json:"timezone"`
	SummaryHour int    `json:"summaryHour"`

	// FixedInterval keeps reminder cadence anchored to the original fire
	// moments instead of drifting with sweep time.
	FixedInterval bool `json:"fixedInterval"`
}

type LimitsConfig struct {
	FreeTasks     int `json:"freeTasks"`
	FreeReminders int `json:"freeReminders"`
}

type PremiumConfig struct {
	PriceStars int `json:"priceStars"`
	Days       int `json:"days"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DBPath: "~/.zakkerni/zakkerni.db",
		},
		Scheduler: SchedulerConfig{
			Timezone:    "Africa/Cairo",
			SummaryHour: 8,
		},
		Limits: LimitsConfig{
			FreeTasks:     15,
			FreeReminders: 3,
		},
		Premium: PremiumConfig{
			PriceStars: 299,
			Days:       30,
		},
	}
}
