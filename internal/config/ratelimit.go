package config

import "time"

// RateLimitConfig bounds how often one visitor may trigger side-effecting
// submissions (code resends, reset requests, checkout) within Window.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Prefix  string
	Debug   bool
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("THROTTLE_ENABLED", true),
		Limit:   envInt("THROTTLE_LIMIT", 5),
		Window:  envDur("THROTTLE_WINDOW", time.Minute),
		Prefix:  envStr("THROTTLE_PREFIX", "throttle"),
		Debug:   envBool("THROTTLE_DEBUG", false),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window < time.Second {
		cfg.Window = time.Second
	}
	return cfg
}
