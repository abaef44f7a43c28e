// Command ptsim runs a page-table simulation from command-line words.
//
//	ptsim np 1 2 np 2 3 pfm ppt 1
//
// Commands:
//
//	np <proc> <pages>   create a process with pages data pages
//	pfm                 print the free-frame map
//	ppt <proc>          print a process page table
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/oda/ptsim/internal/config"
	"github.com/oda/ptsim/internal/sim"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ptsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON configuration file")
	image := fs.String("image", "", "persist RAM in this image file")
	level := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: ptsim commands")
		return 1
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "ptsim: %v\n", err)
		return 1
	}
	if *image != "" {
		cfg.Image = *image
	}
	if *level != "" {
		if _, err := config.ParseLevel(*level); err != nil {
			fmt.Fprintf(stderr, "ptsim: %v\n", err)
			return 1
		}
		cfg.LogLevel = *level
	}
	log := config.NewLogger(cfg.LogLevel, "ptsim")

	cmds, err := sim.Parse(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "ptsim: %v\n", err)
		return 1
	}

	s, err := sim.New(sim.Options{Geometry: cfg.Geometry, Image: cfg.Image, Logger: log})
	if err != nil {
		fmt.Fprintf(stderr, "ptsim: %v\n", err)
		return 1
	}

	runErr := s.Run(stdout, cmds)
	if err := s.Close(); err != nil {
		log.Error("close failed", "err", err.Error())
		return 1
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "ptsim: %v\n", runErr)
		return 1
	}
	return 0
}
