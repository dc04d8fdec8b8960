package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"movieverse/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.Root()

	if err := root.Run(ctx, os.Args); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			log.Printf("[main] shutting down: %v", cause)
			return
		}
		log.Printf("[main] %v", err)
		os.Exit(1)
	}
}
