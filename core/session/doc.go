// Package session provides generic per-visitor session state with
// pluggable TTL-based stores.
//
// A Session carries an unguessable identifier plus an application-defined
// Data payload. The Store interface abstracts persistence: MemoryStore
// keeps sessions in-process with a background reaper, RedisStore and
// PostgresStore share them across instances. All three enforce the TTL at
// read time, so an expired session is "not found" even before any cleanup
// sweep runs.
//
// # Basic Usage
//
//	type Cart struct {
//		Items []string `json:"items"`
//	}
//
//	store := session.NewMemoryStore[Cart](
//		session.WithMaxAge(30*time.Minute),
//		session.WithReapInterval(time.Minute),
//	)
//	go store.Start(ctx) // background reaper
//	defer store.Stop()
//
//	sess, err := session.New[Cart]()
//	if err != nil {
//		return err
//	}
//	sess.Data.Items = append(sess.Data.Items, "sku-123")
//	if err := store.Set(ctx, sess.ID, sess); err != nil {
//		return err
//	}
//
// # Networked Stores
//
// RedisStore and PostgresStore implement the same Store interface, so the
// session middleware works unchanged against a shared backend:
//
//	store := session.NewRedisStore[Cart](client,
//		session.WithRedisMaxAge(30*time.Minute),
//	)
//
// For PostgreSQL, call Migrate once at startup and run DeleteExpired
// periodically to keep the table compact.
package session
