package cfg

// GlobalOptions are options to be applied globally and set at the root of the config.
type GlobalOptions struct {
	LogLevel    string `yaml:"log_level" cli:"level" desc:"log level (trace, debug, info, warn, error)"`
	ForceColors bool   `yaml:"force_colors" cli:"colors" desc:"force colored log output"`
	ConfigFile  string `yaml:"-" cli:"config" desc:"yaml config file"`
	EnvFile     string `yaml:"-" cli:"env-file" desc:"file of environment variables to load"`
}
