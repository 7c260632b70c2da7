// Package sensor samples the door sensors on a fixed period and records the
// readings as door-closed telemetry on the registry.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/clock"
	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

const DefaultInterval = 300 * time.Millisecond

// Registry is where samples go. SetDoorClosed must not touch anything but
// the door-closed flag.
type Registry interface {
	List() []models.LockerView
	SetDoorClosed(id int, closed bool) error
}

type Options struct {
	Interval time.Duration
	Clock    clock.Clock
	Logger   logging.Logger
	Metrics  *metrics.Metrics
}

type Monitor struct {
	sensors  hardware.Sensors
	registry Registry
	interval time.Duration
	clock    clock.Clock
	log      logging.Logger
	metrics  *metrics.Metrics
}

func New(sensors hardware.Sensors, registry Registry, opts Options) *Monitor {
	m := &Monitor{
		sensors:  sensors,
		registry: registry,
		interval: opts.Interval,
		clock:    opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.clock == nil {
		m.clock = clock.Real{}
	}
	if m.log == nil {
		m.log = logging.Nop{}
	}
	return m
}

// Tick samples every locker once. A failed read skips that locker only; the
// failures are returned joined.
func (m *Monitor) Tick(ctx context.Context) error {
	var errs []error
	for _, v := range m.registry.List() {
		closed, err := m.sensors.ReadSensor(v.SensorChannel)
		if err != nil {
			m.metrics.SensorError(v.ID)
			errs = append(errs, fmt.Errorf("%w: locker %d sensor %d: %w", common.ErrHardwareFault, v.ID, v.SensorChannel, err))
			continue
		}
		if closed != v.DoorClosed {
			m.log.Debug(ctx, "door changed", "locker", v.ID, "closed", closed)
		}
		if err := m.registry.SetDoorClosed(v.ID, closed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run ticks until ctx is cancelled. Faults are logged per iteration and never
// stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info(ctx, "sensor monitor started", "interval", m.interval.String())
	defer m.log.Info(ctx, "sensor monitor stopped")

	for {
		if err := m.Tick(ctx); err != nil {
			m.log.Warn(ctx, "sensor sample failed", "error", err)
		}
		if err := clock.Wait(ctx, m.clock, m.interval); err != nil {
			return nil
		}
	}
}
