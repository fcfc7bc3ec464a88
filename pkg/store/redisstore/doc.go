// Package redisstore implements store.Collection on Redis.
//
// Key layout for a collection "orders" with the default prefix:
//
//	reactflow:{orders}:doc:<id>              JSON document
//	reactflow:{orders}:ids                   sorted set of ids by insertion sequence
//	reactflow:{orders}:seq                   insertion sequence counter
//	reactflow:{orders}:idx:<field>:<value>   set of ids per indexed field value
//	reactflow:{orders}:refs:<id>             index keys currently holding <id>
//
// The collection name is a hash tag, so on Redis Cluster every key of a
// collection lives in one slot and MGET batches and the save script work
// unchanged.
//
// Saves run as a single Lua script so documents and indexes never disagree.
// Queries run on their own goroutine and fetch documents in MGET batches.
//
// Basic usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s, err := redisstore.New(redisstore.Config{Redis: client})
//	orders := redisstore.NewCollection[Order](s, "orders", "customerId")
package redisstore
