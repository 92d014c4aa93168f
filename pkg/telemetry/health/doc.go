// Package health provides liveness and readiness endpoints for long-running
// calcul processes.
//
// A Checker holds named checks. Readiness runs them concurrently, each with a
// timeout, and reports "degraded" when one fails:
//
//	checker := health.New(time.Second)
//	checker.RegisterCheck("rules", func(ctx context.Context) error {
//	    _, err := manager.LastLoad()
//	    return err
//	})
//	health.Register(mux, checker, version, commit, buildDate)
package health
