package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/transitflow/transitflow/pkg/ingest"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

const apiVersion = "1.0"

// Server exposes the tracker's vehicle state over a small HTTP API
type Server struct {
	Store    *vehiclestate.Store
	Pipeline *ingest.Pipeline
}

func (s *Server) App() *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", s.getVersion)
	group.Get("stats", s.getStats)
	group.Get("vehicles", s.listVehicles)
	group.Get("vehicles/:identifier", s.getVehicle)

	return webApp
}

func (s *Server) SetupServer(listen string) error {
	return s.App().Listen(listen)
}

func (s *Server) getVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": apiVersion,
	})
}

func (s *Server) getStats(c *fiber.Ctx) error {
	stats := s.Store.Stats()

	return c.JSON(fiber.Map{
		"vehicles":    stats.Vehicles,
		"predictable": stats.Predictable,
		"newest_avl":  stats.NewestAvl,
		"queued":      s.Pipeline.Queue.Len(),
	})
}

func (s *Server) listVehicles(c *fiber.Ctx) error {
	snapshots := s.Store.Snapshots()

	snapshotsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, snapshots)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce vehicle snapshots",
		})
	}

	return c.JSON(snapshotsReduced)
}

func (s *Server) getVehicle(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	status, found := s.Store.Get(identifier)
	if !found {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find a vehicle with the given identifier",
		})
	}

	return c.JSON(status.Snapshot())
}
