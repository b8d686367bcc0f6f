package config

import "github.com/spf13/pflag"

// Flag names shared by every command.
const (
	FlagConfig     = "config"
	FlagOutputDir  = "output-dir"
	FlagTargetSize = "target-size"
	FlagWorkers    = "workers"
	FlagLogLevel   = "log-level"
	FlagLogFile    = "log-file"
	FlagDebug      = "debug"
)

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "Path to config file")
	fs.String(FlagOutputDir, "", "Directory for generated files")
	fs.Float64(FlagTargetSize, 0, "Longest side of the normalized model in mm")
	fs.Int(FlagWorkers, 0, "Concurrent geometry workers")
	fs.String(FlagLogLevel, "", "Log level (debug, info, warn, error)")
	fs.String(FlagLogFile, "", "Also write logs to this file")
	fs.Bool(FlagDebug, false, "Enable debug logging")
}

// ApplyFlags applies flags that were set explicitly on top of cfg.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs.Changed(FlagOutputDir) {
		cfg.OutputDir, _ = fs.GetString(FlagOutputDir)
	}
	if fs.Changed(FlagTargetSize) {
		cfg.TargetSize, _ = fs.GetFloat64(FlagTargetSize)
	}
	if fs.Changed(FlagWorkers) {
		cfg.Workers, _ = fs.GetInt(FlagWorkers)
	}
	if fs.Changed(FlagLogLevel) {
		cfg.Logging.Level, _ = fs.GetString(FlagLogLevel)
	}
	if fs.Changed(FlagLogFile) {
		cfg.Logging.LogFile, _ = fs.GetString(FlagLogFile)
	}
	if debug, _ := fs.GetBool(FlagDebug); debug {
		cfg.Logging.Level = "debug"
	}
}
