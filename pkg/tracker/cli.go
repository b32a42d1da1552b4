package tracker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/api"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/elastic_client"
	"github.com/transitflow/transitflow/pkg/feed"
	"github.com/transitflow/transitflow/pkg/ingest"
	"github.com/transitflow/transitflow/pkg/matcher"
	"github.com/transitflow/transitflow/pkg/predictions"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/sink"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Realtime engine ingests vehicle reports and tracks block assignments",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the realtime engine",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "schedule",
						Value: "data/schedule.json",
						Usage: "path to the schedule snapshot",
					},
					&cli.StringFlag{
						Name:  "feeds",
						Value: "data/feeds",
						Usage: "directory of feed definitions to poll directly",
					},
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the status API",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					coreConfig := config.GetCoreConfig()

					index, err := schedule.LoadSnapshot(c.String("schedule"))
					if err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()

					writer := sink.NewWriter(sink.NewMongoBatchWriter(), coreConfig)
					go writer.Run(ctx)

					pipeline := ingest.NewPipeline(
						index,
						predictions.NewRedisCache(redis_client.Client),
						ingest.NewRedisLocationCache(redis_client.Client),
						writer,
						coreConfig,
					)
					pipeline.Start(ctx)

					supervisor := vehiclestate.NewSupervisor(pipeline.Store, pipeline.Cache, writer, coreConfig)
					go supervisor.Run(ctx)

					if err := feed.StartConsumers(pipeline); err != nil {
						return err
					}

					definitions, err := feed.LoadRegistry(c.String("feeds"))
					if err == nil {
						manager := feed.Manager{
							Definitions: definitions,
							Submitter:   &feed.PipelineSubmitter{Pipeline: pipeline},
						}
						manager.Run(ctx)
					} else {
						log.Warn().Err(err).Msg("No feed definitions loaded, consuming queue only")
					}

					server := api.Server{
						Store:    pipeline.Store,
						Pipeline: pipeline,
					}
					go func() {
						if err := server.SetupServer(c.String("listen")); err != nil {
							log.Fatal().Err(err).Msg("Status API server failed")
						}
					}()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					cancel()
					pipeline.Wait()

					return nil
				},
			},
			{
				Name:  "testmatch",
				Usage: "match a single synthetic report against the schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "schedule",
						Value:    "data/schedule.json",
						Usage:    "path to the schedule snapshot",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "vehicle",
						Value:    "test-vehicle",
						Required: false,
					},
					&cli.Float64Flag{
						Name:     "lat",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "lon",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "trip",
						Usage: "optional trip assignment hint",
					},
					&cli.Int64Flag{
						Name:  "time",
						Usage: "report time as epoch milliseconds, defaults to now",
					},
				},
				Action: func(c *cli.Context) error {
					coreConfig := config.GetCoreConfig()

					index, err := schedule.LoadSnapshot(c.String("schedule"))
					if err != nil {
						return err
					}

					report := &transit.AvlReport{
						VehicleID: c.String("vehicle"),
						Time:      c.Int64("time"),
						Location:  transit.NewPoint(c.Float64("lon"), c.Float64("lat")),
						Source:    "testmatch",
					}
					if report.Time == 0 {
						report.Time = time.Now().UnixMilli()
					}
					if c.String("trip") != "" {
						report.SetAssignment(c.String("trip"), transit.AssignmentTypeTrip)
					}

					engine := matcher.NewEngine(index, coreConfig)
					status := vehiclestate.NewStore().GetOrCreate(report.VehicleID)

					outcome := engine.MatchReport(status, report)
					pretty.Println(outcome)

					return nil
				},
			},
		},
	}
}
