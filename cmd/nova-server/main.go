package main

import (
	"log"

	"github.com/novachat/nova"
)

func main() {
	cfg := nova.LoadConfig()

	relay, err := nova.NewRelay(cfg)
	if err != nil {
		log.Fatalf("Failed to start relay: %v", err)
	}
	defer relay.Close()

	log.Printf("Nova relay listening on %s (model: %s)", cfg.Addr, cfg.ModelName)
	if err := relay.Run(cfg.Addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
