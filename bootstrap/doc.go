// Package bootstrap runs a command-line task with a uniform lifecycle.
//
// NewApp applies config defaults, validates, and initializes the global
// logger. RunTask then runs start hooks, the task itself under a context
// canceled by SIGINT/SIGTERM, and finally stop hooks in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.OnStart(initTelemetry)
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    return run(ctx)
//	})
package bootstrap
