package job

import (
	"io"
	"os"

	"github.com/mastercactapus/svgrbl/gcode"
	"github.com/mastercactapus/svgrbl/geom"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// Config is everything needed to turn a drawing into a job and stream it.
type Config struct {
	// Resolution is the target distance between sampled points, in mm.
	Resolution float64 `toml:"resolution"`

	Machining gcode.Params `toml:"machining"`
	Level     LevelConfig  `toml:"level"`
	Serial    SerialConfig `toml:"serial"`
}

// LevelConfig enables height-map leveling when Grid is set.
type LevelConfig struct {
	// Grid is a JSON probe file, see meshlevel.LoadGrid.
	Grid        string  `toml:"grid"`
	Granularity float64 `toml:"granularity"`
}

// SerialConfig describes the controller connection.
type SerialConfig struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`

	// ReadTimeout and StartupDrain are in seconds.
	ReadTimeout  float64 `toml:"read_timeout"`
	StartupDrain float64 `toml:"startup_drain"`

	// SPJS is the websocket URL of a serial-port-json-server. When set the
	// port is opened through it instead of locally.
	SPJS string `toml:"spjs"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Resolution: geom.DefaultResolution,
		Machining:  gcode.DefaultParams(),
		Level: LevelConfig{
			Granularity: 1,
		},
		Serial: SerialConfig{
			Port:         "/dev/ttyUSB0",
			Baud:         115200,
			ReadTimeout:  1,
			StartupDrain: 1,
		},
	}
}

// Load reads a TOML config file. Keys missing from the file keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, err
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a TOML config from r on top of DefaultConfig.
func Decode(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes cfg as TOML.
func Save(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
