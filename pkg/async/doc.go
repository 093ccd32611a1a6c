// Package async provides goroutine helpers with panic recovery.
//
// SafeGo runs background work such as archive watching and cache pruning:
//
//	async.SafeGo(ctx, logger, time.Minute, "cache prune", func(ctx context.Context) error {
//		_, err := cache.PruneOldEntries(maxAge)
//		return err
//	})
//
// Map runs a function over a slice with bounded concurrency and returns the
// results in input order, which keeps resolution output deterministic:
//
//	results := async.Map(ctx, coords, 4, func(ctx context.Context, c string) ([]string, error) {
//		return resolver.ResolveCoordinate(ctx, c, dir)
//	})
package async
