// ============================================================================
// Sundial Demo - Bare Library Usage
// ============================================================================
//
// File: cmd/demo/main.go
// Purpose: Shows the scheduler's embedded-library surface with no CLI
//          machinery: register a few Order and Disorder tasks on second
//          and minute cron expressions, then block until interrupted.
//
// ============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sundial "github.com/cherish-ltt/lynn-sundial"
)

func main() {
	scheduler := sundial.New(sundial.DefaultConfig())

	for i := 0; i < 3; i++ {
		_, _ = scheduler.PushTask("0/1 * * * * ?", orderPrintlnSecondTime, sundial.Forever())
		_, _ = scheduler.PushDisorderTask("0/1 * * * * ?", disorderPrintlnSecondTime, sundial.Forever())
	}
	for i := 0; i < 3; i++ {
		_, _ = scheduler.PushTask("0 0/1 * * * ?", orderPrintlnMinuteTime, sundial.Forever())
		_, _ = scheduler.PushDisorderTask("0 0/1 * * * ?", disorderPrintlnMinuteTime, sundial.Forever())
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	scheduler.WaitAll(ctx)
}

func orderPrintlnSecondTime(context.Context) {
	fmt.Printf("order task - second -> %s\n", time.Now())
}

func disorderPrintlnSecondTime(context.Context) {
	fmt.Printf("disorder task - second -> %s\n", time.Now())
}

func orderPrintlnMinuteTime(context.Context) {
	fmt.Printf("order task - minute -> %s\n", time.Now())
}

func disorderPrintlnMinuteTime(context.Context) {
	fmt.Printf("disorder task - minute -> %s\n", time.Now())
}
