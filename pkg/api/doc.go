// Package api serves the sales operations over HTTP.
//
//	POST /customer/create        body: Customer  -> Customer
//	GET  /customer/find-by-id?id -> Customer, or 200 with an empty body
//	POST /order/create           body: Order     -> Order
//	GET  /sales/summary          -> {"<name>": <total>, ...}
//	GET  /health                 -> {"status": "ok"}
//	GET  /metrics                -> Prometheus exposition
//
// Failures are answered with {"error": "..."}: 400 for invalid input, 503
// when the store is unavailable, 504 when the request timed out and 500
// otherwise.
package api
