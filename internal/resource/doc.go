// Package resource bounds what a scan may consume.
//
// A Controller governs three budgets:
//
//   - Memory: chunk buffers are reserved against a hard limit before they
//     are allocated. Reservation never blocks; an over-budget request fails
//     with ErrMemoryLimitExceeded and the scan refuses to start.
//   - Workers: the number of concurrent uploads when a finished run
//     directory is exported.
//   - IO: a token bucket on upstream haystack reads, so a scan can run on a
//     busy host without saturating its disk or network link.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    IOLimitBytesPerSec: 200 << 20,
//	})
//	r := resource.NewRateLimitedReader(ctx, upstream, rc)
//
// All methods are safe for concurrent use and treat a nil *Controller as
// unlimited.
package resource
