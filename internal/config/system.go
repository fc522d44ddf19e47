package config

// WatchdogConfig bounds the supervisor's restart policy (spec.md 6.2).
type WatchdogConfig struct {
	MaxRestarts      int     `toml:"max_restarts"`
	InitialBackoffMs int     `toml:"initial_backoff_ms"`
	MaxBackoffS      int     `toml:"max_backoff_s"`
	StableRunS       int     `toml:"stable_run_s"`
	SigtermTimeoutS  float64 `toml:"sigterm_timeout_s"`
	HalReadyTimeoutS float64 `toml:"hal_ready_timeout_s"`
}

func (w WatchdogConfig) validate() error {
	if w.MaxRestarts < 1 || w.MaxRestarts > 100 {
		return newErr(ErrOutOfRange, "config.toml", "watchdog.max_restarts %d out of [1,100]", w.MaxRestarts)
	}
	if w.InitialBackoffMs < 10 || w.InitialBackoffMs > 10000 {
		return newErr(ErrOutOfRange, "config.toml", "watchdog.initial_backoff_ms %d out of [10,10000]", w.InitialBackoffMs)
	}
	if w.MaxBackoffS < 1 || w.MaxBackoffS > 300 {
		return newErr(ErrOutOfRange, "config.toml", "watchdog.max_backoff_s %d out of [1,300]", w.MaxBackoffS)
	}
	if w.StableRunS < 10 || w.StableRunS > 3600 {
		return newErr(ErrOutOfRange, "config.toml", "watchdog.stable_run_s %d out of [10,3600]", w.StableRunS)
	}
	if w.SigtermTimeoutS < 0.5 || w.SigtermTimeoutS > 30.0 {
		return newErr(ErrOutOfRange, "config.toml", "watchdog.sigterm_timeout_s %v out of [0.5,30.0]", w.SigtermTimeoutS)
	}
	if w.HalReadyTimeoutS < 1.0 || w.HalReadyTimeoutS > 60.0 {
		return newErr(ErrOutOfRange, "config.toml", "watchdog.hal_ready_timeout_s %v out of [1.0,60.0]", w.HalReadyTimeoutS)
	}
	return nil
}

// ProcessSection is the common shape of the [hal] [cu] [re] [mqtt] [grpc]
// [api] [dashboard] [diagnostic] tables. These processes are external
// collaborators or ambient surfaces (spec.md 1's out-of-scope list); only
// their startup-relevant fields are modeled here.
type ProcessSection struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// SystemConfig is the decoded contents of config.toml.
type SystemConfig struct {
	Watchdog   WatchdogConfig  `toml:"watchdog"`
	Hal        ProcessSection  `toml:"hal"`
	Cu         ProcessSection  `toml:"cu"`
	Re         ProcessSection  `toml:"re"`
	Mqtt       ProcessSection  `toml:"mqtt"`
	Grpc       ProcessSection  `toml:"grpc"`
	Api        ProcessSection  `toml:"api"`
	Dashboard  ProcessSection  `toml:"dashboard"`
	Diagnostic ProcessSection  `toml:"diagnostic"`
}
