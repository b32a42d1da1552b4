package feed

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Polls AVL feeds and publishes reports for the tracker",
		Subcommands: []*cli.Command{
			{
				Name:  "publish",
				Usage: "poll feeds and publish reports onto the Redis queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "feeds",
						Value: "data/feeds",
						Usage: "directory of feed definitions",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
					if err != nil {
						return err
					}

					definitions, err := LoadRegistry(c.String("feeds"))
					if err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()

					manager := Manager{
						Definitions: definitions,
						Submitter:   &QueuePublisher{Queue: queue},
					}
					manager.Run(ctx)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal

					return nil
				},
			},
			{
				Name:  "list",
				Usage: "print the parsed feed definitions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "feeds",
						Value: "data/feeds",
						Usage: "directory of feed definitions",
					},
				},
				Action: func(c *cli.Context) error {
					definitions, err := LoadRegistry(c.String("feeds"))
					if err != nil {
						return err
					}

					pretty.Println(definitions)

					return nil
				},
			},
		},
	}
}
