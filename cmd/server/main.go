// Package main provides an HTTP API server for the page-table simulator.
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/oda/ptsim/internal/config"
	"github.com/oda/ptsim/internal/sim"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfg, err := config.LoadConfig(os.Getenv("PTSIM_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel, "server")

	s, err := sim.New(sim.Options{Geometry: cfg.Geometry, Image: cfg.Image, Logger: logger})
	if err != nil {
		log.Fatalf("simulator: %v", err)
	}
	defer s.Close()

	srv := NewServer(s)

	logger.Info("ptsim API server starting", "port", port, "image", cfg.Image)
	if err := http.ListenAndServe(":"+port, srv.Routes()); err != nil {
		logger.Error("server stopped", "err", err.Error())
	}
}
