// Package workflow implements Temporal workflow definitions for trialforge.
//
// This package contains the workflow orchestration logic that runs trial
// stages as durable executions. A workflow defines the control flow for a
// single task attempt: execute the stage activity, then report the terminal
// outcome so the ledger and the trial's stage slot reflect it.
//
// All workflows in this package follow Temporal best practices:
//
//   - Deterministic execution
//   - Proper error handling
//   - Versioning support
//   - Observability integration
//
// Workflows should not contain any non-deterministic operations
// such as random number generation, system time access, or external I/O.
// Such operations should be delegated to activities.
package workflow
