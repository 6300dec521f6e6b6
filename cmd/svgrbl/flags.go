package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/mastercactapus/svgrbl/job"
	"github.com/mastercactapus/svgrbl/machine"
	"github.com/mastercactapus/svgrbl/machine/grbl"
	"github.com/mastercactapus/svgrbl/spjs"
)

// configFlags are the flags shared by every command. A flag only overrides
// the config file when it is set on the command line.
type configFlags struct {
	path string

	resolution float64
	grid       string
	port       string
	baud       int
	spjs       string
}

func addConfigFlags(fs *flag.FlagSet) *configFlags {
	def := job.DefaultConfig()
	f := &configFlags{}
	fs.StringVar(&f.path, "config", "", "TOML config file to load.")
	fs.Float64Var(&f.resolution, "resolution", def.Resolution, "Distance between sampled points in mm.")
	fs.StringVar(&f.grid, "grid", def.Level.Grid, "Probe grid JSON file to level the job with.")
	fs.StringVar(&f.port, "port", def.Serial.Port, "Port path (or name if using SPJS).")
	fs.IntVar(&f.baud, "baud", def.Serial.Baud, "Baud rate of the controller.")
	fs.StringVar(&f.spjs, "spjs", def.Serial.SPJS, "Websocket URL of the SPJS server to use.")
	return f
}

// load must be called after fs has been parsed.
func (f *configFlags) load(fs *flag.FlagSet) (job.Config, error) {
	cfg := job.DefaultConfig()
	if f.path != "" {
		var err error
		cfg, err = job.Load(f.path)
		if err != nil {
			return cfg, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "resolution":
			cfg.Resolution = f.resolution
		case "grid":
			cfg.Level.Grid = f.grid
		case "port":
			cfg.Serial.Port = f.port
		case "baud":
			cfg.Serial.Baud = f.baud
		case "spjs":
			cfg.Serial.SPJS = f.spjs
		}
	})
	return cfg, nil
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// streamerConfig builds the streamer config for c. The returned func releases
// the SPJS client, if one was needed.
func streamerConfig(c job.SerialConfig) (grbl.Config, func()) {
	cfg := grbl.DefaultConfig(c.Port)
	cfg.Baud = c.Baud
	cfg.ReadTimeout = seconds(c.ReadTimeout)
	cfg.StartupDrain = seconds(c.StartupDrain)
	if c.SPJS == "" {
		return cfg, func() {}
	}

	sp := spjs.NewSPJS(c.SPJS, log.New(os.Stderr, "spjs: ", log.Lshortfile))
	cfg.Opener = machine.SPJSOpener(sp)
	return cfg, func() { sp.Close() }
}
