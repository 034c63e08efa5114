// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery, timeout
// enforcement, context cancellation, and error collection.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with safety features
//
//	async.SafeGo(ctx, 30*time.Second, "template reload", func(ctx context.Context) error {
//		return store.Reload()
//	})
//
// WorkerPool: Managed pool of concurrent workers with a bounded buffer
//
//	pool := async.NewWorkerPool(ctx, async.PoolConfig{Workers: 2, QueueSize: 100, TaskName: "email"})
//	defer pool.Shutdown(5 * time.Second)
//
//	if err := pool.TrySubmit(func(ctx context.Context) error {
//		return sender.Send(ctx, msg)
//	}); errors.Is(err, async.ErrPoolFull) {
//		// drop and count
//	}
//
// Panics are recovered and logged with a stack trace; task errors are
// delivered on Errors() and dropped with a warning when nobody drains them.
//
// # Related Packages
//
//   - pkg/email: Queue runs outbound mail on a WorkerPool
package async
