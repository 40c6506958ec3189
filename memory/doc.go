// Package memory stores what each hat has seen and said, and looks it up again
// by lexical relevance. InMemoryStore serves single-process use; RedisStore
// shares memory between server replicas.
package memory
