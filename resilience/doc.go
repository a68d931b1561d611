// Package resilience provides retry with exponential backoff and a bulkhead
// that caps concurrent work.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "spawn", MaxConcurrent: 8})
//	res, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*process.Result, error) {
//	    return resilience.ExecuteWithResult(bh, ctx, func() (*process.Result, error) {
//	        return process.Run(ctx, req)
//	    })
//	})
//
// DefaultRetryIf honors the Retryable flag of errors.AppError, so only
// failures marked transient are retried.
package resilience
