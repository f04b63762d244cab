package handler

import (
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the domain-level counters the handlers report. Request-level
// latency and status metrics come from the otelhttp wrapper in app.Run.
type metrics struct {
	ordersCreated   metric.Int64Counter
	pricesFinalized metric.Int64Counter
	billsCreated    metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	ordersCreated, err := meter.Int64Counter("supply.orders.created",
		metric.WithDescription("Orders placed through the admin API"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	pricesFinalized, err := meter.Int64Counter("supply.orders.prices_finalized",
		metric.WithDescription("Orders whose market prices were finalized"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "prices counter")
	}
	billsCreated, err := meter.Int64Counter("supply.bills.created",
		metric.WithDescription("Bills issued for priced orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "bills counter")
	}

	return &metrics{
		ordersCreated:   ordersCreated,
		pricesFinalized: pricesFinalized,
		billsCreated:    billsCreated,
	}, nil
}
