package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomz197/spacewars/internal/config"
	"github.com/tomz197/spacewars/internal/logging"
	gameconfig "github.com/tomz197/spacewars/internal/loop/config"
	"github.com/tomz197/spacewars/internal/loop/client"
	"github.com/tomz197/spacewars/internal/network"
	"golang.org/x/term"
)

func main() {
	defaultName := config.GetEnv("USER", "pilot")
	address := flag.String("server", config.GetEnv("SPACEWARS_SERVER", "localhost"), "server host[:port]")
	name := flag.String("name", defaultName, "player name")
	logFile := flag.String("log", config.GetEnv("SPACEWARS_CLIENT_LOG", "spacewars-client.log"), "log file")
	flag.Parse()

	// The terminal belongs to the HUD, so logs only go to the file.
	log := logging.New(logging.Options{File: *logFile})
	defer logging.Sync(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session := client.NewSession(log, network.WithDialTimeout(gameconfig.ClientConnectTimeout))
	session.Start(ctx, *address, *name)

	select {
	case <-session.Ready():
	case <-session.Done():
		fmt.Fprintf(os.Stderr, "cannot join %s: %v\n", *address, session.Err())
		os.Exit(1)
	case <-time.After(gameconfig.ClientConnectTimeout):
		fmt.Fprintf(os.Stderr, "cannot join %s: no reply from server\n", *address)
		os.Exit(1)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable raw mode: %v\n", err)
		os.Exit(1)
	}

	c := client.NewClient(session, bufio.NewReader(os.Stdin), os.Stdout, client.ClientOptions{})
	runErr := c.Run(ctx)
	_ = term.Restore(fd, oldState)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "disconnected: %v\n", runErr)
		os.Exit(1)
	}
}
