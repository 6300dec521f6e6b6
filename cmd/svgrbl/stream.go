package main

import (
	"bufio"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/mastercactapus/svgrbl/job"
	"github.com/mastercactapus/svgrbl/machine/grbl"
)

func runStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	cf := addConfigFlags(fs)
	verbose := fs.Bool("v", false, "Log all serial traffic to stderr.")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("stream: expected exactly one gcode file")
	}
	cfg, err := cf.load(fs)
	if err != nil {
		return err
	}
	lines, err := job.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	gcfg, release := streamerConfig(cfg.Serial)
	defer release()
	gcfg.Observers = []grbl.Observer{newConsole(os.Stdout)}
	if *verbose {
		gcfg.Logger = log.New(os.Stderr, "", log.Ltime)
	}

	s := grbl.NewStreamer(lines, gcfg)
	err = s.Start()
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		for range sig {
			log.Println("Aborting...")
			s.Abort()
		}
	}()
	go readControls(os.Stdin, s)

	s.Wait(0)
	if e := s.LastError(); e != nil {
		return e
	}
	if s.State() != grbl.Done {
		return errors.New("stream aborted")
	}
	return nil
}

// readControls pauses, resumes or aborts s from commands typed on r, one per
// line.
func readControls(r io.Reader, s *grbl.Streamer) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var err error
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "p", "pause":
			err = s.Pause()
		case "r", "resume":
			err = s.Resume()
		case "a", "abort":
			err = s.Abort()
		default:
			continue
		}
		if err != nil {
			log.Println("ERROR:", err)
		}
	}
}
