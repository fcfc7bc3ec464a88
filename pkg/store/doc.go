// Package store defines the document-store surface used by reactflow
// services.
//
// A Collection stores documents of one type and exposes lazy streams for
// saving and querying them. Field filters compare JSON encodings, so field
// names are the JSON names of the document (for example "customerId").
//
// Backends:
//   - memstore: in-memory, for tests and single-process deployments
//   - redisstore: Redis-backed, with per-field secondary indexes
//
// Backend failures surface as persistence failures (see errors.Persistence).
// A lookup that matches nothing is an empty stream, never an error.
package store
