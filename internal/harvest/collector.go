package harvest

import (
	"context"

	"github.com/metal-toolbox/netsync/internal/metrics"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Collector runs a family's commands over a device session and extracts the inventory.
type Collector struct {
	session    transport.Session
	family     Family
	classifier Classifier
	logger     *logrus.Entry
}

// NewCollector returns a Collector harvesting the device behind session.
func NewCollector(session transport.Session, family Family, classifier Classifier, logger *logrus.Logger) *Collector {
	return &Collector{
		session:    session,
		family:     family,
		classifier: classifier,
		logger:     logger.WithField("family", family.Name()),
	}
}

// Harvest opens the session, collects the raw output and returns the normalized inventory.
//
// The session is closed before returning, errors closing it are logged and dropped.
func (c *Collector) Harvest(ctx context.Context) (inv *model.Inventory, err error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Collector.Harvest")
	span.SetAttributes(attribute.String("family", c.family.Name()))

	defer func() {
		state := "succeeded"
		if err != nil {
			state = "failed"

			span.SetStatus(codes.Error, err.Error())
		}

		metrics.HarvestCounter.WithLabelValues(c.family.Name(), state).Inc()
		span.End()
	}()

	defer c.disconnect()

	if err = c.session.Open(ctx); err != nil {
		return nil, wrapCollection(err)
	}

	blocks := Blocks{}

	for _, command := range c.family.Commands() {
		out, errRun := c.session.Run(ctx, command)
		if errRun != nil {
			return nil, wrapCollection(errRun)
		}

		c.logger.WithField("command", command).Debug("command output collected")

		blocks[command] = out
	}

	inv, err = c.family.Extract(blocks, c.classifier, c.logger)
	if err != nil {
		return nil, err
	}

	if err = inv.Validate(); err != nil {
		return nil, errors.Wrap(model.ErrCollection, err.Error())
	}

	c.logger.WithFields(logrus.Fields{
		"device":     inv.Device.Name,
		"bays":       len(inv.ModuleBays),
		"modules":    len(inv.Modules),
		"interfaces": len(inv.Interfaces),
		"lags":       len(inv.Lags),
	}).Info("device harvested")

	return inv, nil
}

func (c *Collector) disconnect() {
	if err := c.session.Close(); err != nil {
		c.logger.WithError(err).Debug("device disconnect error ignored")
	}
}

func wrapCollection(err error) error {
	if errors.Is(err, model.ErrCollection) {
		return err
	}

	return errors.Wrap(model.ErrCollection, err.Error())
}
