package redisstore

import (
	"bytes"
	"encoding/json"
)

// luaSave stores a document, records its insertion position once and moves
// its id between index sets. Every key shares the collection hash tag, so the
// previous index keys read from refs live in the same cluster slot.
//
// KEYS: doc, ids, seq, refs, new index keys... ARGV: id, document.
const luaSave = `
local doc_key = KEYS[1]
local ids_key = KEYS[2]
local seq_key = KEYS[3]
local refs_key = KEYS[4]
local id = ARGV[1]

if redis.call('EXISTS', doc_key) == 0 then
	local seq = redis.call('INCR', seq_key)
	redis.call('ZADD', ids_key, 'NX', seq, id)
end

local old = redis.call('SMEMBERS', refs_key)
for _, key in ipairs(old) do
	redis.call('SREM', key, id)
end
redis.call('DEL', refs_key)

for i = 5, #KEYS do
	redis.call('SADD', KEYS[i], id)
	redis.call('SADD', refs_key, KEYS[i])
end

redis.call('SET', doc_key, ARGV[2])
return 1
`

// collectionKeys generates the fixed Redis keys of a collection. The name is
// a hash tag so all keys of one collection map to one cluster slot.
func collectionKeys(prefix, name string) map[string]string {
	base := prefix + ":{" + name + "}"
	return map[string]string{
		"base": base,
		"ids":  base + ":ids",
		"seq":  base + ":seq",
	}
}

func (c *Collection[T]) docKey(id string) string {
	return c.keys["base"] + ":doc:" + id
}

// refsKey holds the index keys a document is currently listed under.
func (c *Collection[T]) refsKey(id string) string {
	return c.keys["base"] + ":refs:" + id
}

func (c *Collection[T]) indexKey(field string, encodedValue []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, encodedValue); err != nil {
		buf.Reset()
		buf.Write(encodedValue)
	}
	return c.keys["base"] + ":idx:" + field + ":" + buf.String()
}
