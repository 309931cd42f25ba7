// Package postgres provides the PostgreSQL and redis connection layer:
// primary/replica pooling, schema migrations, and the redis client used by
// the shared decision cache.
package postgres
