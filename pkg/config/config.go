package config

import (
	"os"
	"strconv"
	"time"
)

// CoreConfig holds every tunable of the AVL ingestion & matching core. Values
// are read once at startup; hot reload is handled elsewhere if at all
type CoreConfig struct {
	// Ingestion queue
	QueueCapacity int
	// Number of partition workers consuming the queue. Reports for one
	// vehicle always land on the same partition
	Workers    int
	MaxWorkers int

	// Minimum interval between fully processed reports for one vehicle.
	// Reports arriving faster only refresh the lightweight location cache
	MinReportInterval time.Duration

	// Matching
	MaxMatchDistanceMetres float64
	AtStopRadiusMetres     float64
	// A vehicle silent for longer than this may match to an earlier
	// stop path again
	MonotonicResetGap time.Duration
	AutoAssign        bool

	// Dispatch
	MaxPredictionHorizon   time.Duration
	OnlyArrivalsDepartures bool

	// Timeout supervisor
	SupervisorPeriod time.Duration
	VehicleTimeout   time.Duration
	LayoverTimeout   time.Duration
	RemoveOnTimeout  bool

	// Write-behind sink
	SinkCapacity  int
	SinkBatchSize int
	SinkFlush     time.Duration
}

var defaultCoreConfig = CoreConfig{
	QueueCapacity: 50000,
	Workers:       5,
	MaxWorkers:    25,

	MinReportInterval: 5 * time.Second,

	MaxMatchDistanceMetres: 100.0,
	AtStopRadiusMetres:     25.0,
	MonotonicResetGap:      20 * time.Minute,
	AutoAssign:             true,

	MaxPredictionHorizon:   45 * time.Minute,
	OnlyArrivalsDepartures: false,

	SupervisorPeriod: 30 * time.Second,
	VehicleTimeout:   6 * time.Minute,
	LayoverTimeout:   3 * time.Minute,
	RemoveOnTimeout:  false,

	SinkCapacity:  20000,
	SinkBatchSize: 200,
	SinkFlush:     2 * time.Second,
}

// GetCoreConfig returns the core configuration from environment variables or
// defaults
func GetCoreConfig() CoreConfig {
	config := defaultCoreConfig

	if val := os.Getenv("TRANSITFLOW_QUEUE_CAPACITY"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.QueueCapacity = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_WORKERS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Workers = parsed
		}
	}

	if config.Workers > config.MaxWorkers {
		config.Workers = config.MaxWorkers
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	if val := os.Getenv("TRANSITFLOW_MIN_REPORT_INTERVAL"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.MinReportInterval = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_MAX_MATCH_DISTANCE_METERS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.MaxMatchDistanceMetres = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_AT_STOP_RADIUS_METERS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.AtStopRadiusMetres = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_MONOTONIC_RESET_GAP"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.MonotonicResetGap = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_AUTO_ASSIGN"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.AutoAssign = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_MAX_PREDICTION_HORIZON"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.MaxPredictionHorizon = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_ONLY_ARRIVALS_DEPARTURES"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.OnlyArrivalsDepartures = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_SUPERVISOR_PERIOD"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.SupervisorPeriod = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_VEHICLE_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.VehicleTimeout = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_LAYOVER_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.LayoverTimeout = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_REMOVE_ON_TIMEOUT"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.RemoveOnTimeout = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_SINK_CAPACITY"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.SinkCapacity = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_SINK_BATCH_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.SinkBatchSize = parsed
		}
	}

	if val := os.Getenv("TRANSITFLOW_SINK_FLUSH"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.SinkFlush = parsed
		}
	}

	return config
}
