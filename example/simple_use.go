package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/leandrodaf/midisynth/sdk/midisynth"
)

func main() {
	log := logger.NewZapLogger()

	service, err := midisynth.NewService(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithPortEventFilter(contracts.PortEventFilter{
			Kinds: []contracts.EventKind{contracts.EventNoteOn, contracts.EventNoteOff},
		}),
	)
	if err != nil {
		log.Error("Failed to initialize synthesizer", log.Field().Error("error", err))
		return
	}
	defer service.Close()

	ports, err := service.ListPorts()
	if err != nil {
		log.Warn("Could not list MIDI sources", log.Field().Error("error", err))
	}
	fmt.Println("Available MIDI sources:", ports)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = service.Serve(ctx, func(name string) {
		fmt.Printf("Playing notes received on %s... Press Ctrl+C to exit.\n", name)
	})
	if err != nil {
		log.Error("MIDI service failed", log.Field().Error("error", err))
	}
}
