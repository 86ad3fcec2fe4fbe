// wxcipher serves weather records over authenticated, ciphered sessions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wxcipher/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// fang has already printed the error.
	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		cancel()
		os.Exit(1)
	}
}
