package log

// Config configures the global logger.
type Config struct {
	// Name is attached to every entry as the logger name.
	Name string `conf:"name" yaml:"name" json:"name"`

	// Level is one of debug, info, warn, error, panic, fatal.
	Level string `conf:"level" yaml:"level" json:"level"`

	// Encoding is json or console.
	Encoding string `conf:"encoding" yaml:"encoding" json:"encoding"`

	Debug bool `conf:"debug" yaml:"debug" json:"debug"`

	// Output is stdio or file.
	Output string `conf:"output" yaml:"output" json:"output"`

	File FileConfig `conf:"file" yaml:"file" json:"file"`

	IncludeCaller     bool `conf:"include_caller" yaml:"include_caller" json:"include_caller"`
	IncludeStacktrace bool `conf:"include_stacktrace" yaml:"include_stacktrace" json:"include_stacktrace"`
}

// FileConfig is used when Output is file; files are rotated by lumberjack.
type FileConfig struct {
	Path       string `conf:"path" yaml:"path" json:"path"`
	MaxSize    int    `conf:"max_size" yaml:"max_size" json:"max_size"`
	MaxAge     int    `conf:"max_age" yaml:"max_age" json:"max_age"`
	MaxBackups int    `conf:"max_backups" yaml:"max_backups" json:"max_backups"`
	LocalTime  bool   `conf:"local_time" yaml:"local_time" json:"local_time"`
}

const (
	OutputStdio = "stdio"
	OutputFile  = "file"
)
