// Package sales implements the customer, order and sales summary operations
// served by salesd.
//
// Every operation returns a lazy stream; nothing touches the store until the
// result is subscribed:
//
//	svc := sales.NewService(customers, orders)
//	summary, _, err := svc.Summary().Block(ctx)
//
// Summary streams all customers, computes each customer's order total with
// a filtered query reduced to a sum, pairs it with the customer's name and
// collects the pairs into a map. The per-customer queries run concurrently.
//
// Reporter wraps Summary as a scheduled job that publishes the result as
// Prometheus gauges.
package sales
