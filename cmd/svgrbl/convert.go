package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mastercactapus/svgrbl/gcode"
	"github.com/mastercactapus/svgrbl/job"
	"github.com/mitchellh/go-homedir"
)

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	cf := addConfigFlags(fs)
	out := fs.String("o", "", "Output file, defaults to the input with a .gcode extension.")
	watch := fs.Bool("watch", false, "Convert again every time the input file changes.")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("convert: expected exactly one SVG file")
	}
	cfg, err := cf.load(fs)
	if err != nil {
		return err
	}

	in, err := homedir.Expand(fs.Arg(0))
	if err != nil {
		return err
	}
	name := *out
	if name == "" {
		name = strings.TrimSuffix(in, filepath.Ext(in)) + ".gcode"
	}

	err = convertFile(in, name, cfg)
	if !*watch {
		return err
	}
	if err != nil {
		log.Println("ERROR: convert:", err)
	}

	return watchFile(in, func() {
		err := convertFile(in, name, cfg)
		if err != nil {
			log.Println("ERROR: convert:", err)
		}
	})
}

func convertFile(in, out string, cfg job.Config) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	lines, err := job.FromSVG(f, cfg)
	if err != nil {
		return err
	}
	err = job.WriteFile(out, lines)
	if err != nil {
		return err
	}

	sum, err := gcode.Measure(lines)
	if err != nil {
		return err
	}
	log.Printf("Wrote %s: %d lines, %d moves, X %.3f..%.3f Y %.3f..%.3f, %.1fmm travel",
		out, sum.Lines, sum.Moves, sum.Min.X, sum.Max.X, sum.Min.Y, sum.Max.Y, sum.Travel)
	return nil
}

// watchFile calls fn whenever name is written or replaced. The directory is
// watched since most editors save by renaming a new file into place.
func watchFile(name string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = watcher.Add(filepath.Dir(name))
	if err != nil {
		return err
	}
	log.Println("Watching", name)

	name = filepath.Clean(name)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				fn()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("ERROR: watch:", err)
		}
	}
}
