package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/chapterhub/internal/client/cli"
	"github.com/dmitrijs2005/chapterhub/internal/client/config"
	"github.com/dmitrijs2005/chapterhub/internal/flagx"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	args := flagx.Rest(os.Args[1:], []string{"-c", "-config", "-u", "-g", "-t", "-i"})
	if err := app.Run(ctx, args); err != nil {
		stop()
		log.Fatalf("%v", err)
	}

}
