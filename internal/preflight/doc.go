// Package preflight runs the diagnostics behind `gitlab-search doctor`.
//
// The checker validates:
//   - the config file exists and is readable by its owner only
//   - the log directory is writable
//   - every configured instance answers GET /version
//   - every instance token is accepted by GET /user
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithProber(factory))
//	results := checker.RunAll(ctx, cfgPath, cfg.Instances)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
