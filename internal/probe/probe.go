// Package probe implements the connection-status checks: RPC health and
// recent treasury transaction activity. Checks never surface errors to
// callers; every failure collapses into the snapshot's defined failure
// value and self-heals on the next poll tick.
package probe

import (
	"context"
	"time"
)

// HealthSnapshot is the fully-replaced result of one health probe.
type HealthSnapshot struct {
	Healthy    bool   `json:"isHealthy"`
	PingMillis *int64 `json:"pingMillis"`
}

// TxStatus is the displayed transaction-security state.
type TxStatus string

const (
	// TxLoading is the initial state before any check completes.
	TxLoading TxStatus = "Loading"
	// TxSecured means at least one transaction was found for the address.
	TxSecured TxStatus = "Secured"
	// TxUnsecured covers both the successful negative (no transactions)
	// and the fetch-failure path.
	TxUnsecured TxStatus = "Unsecured"
)

// TxSnapshot is the fully-replaced result of one transaction probe.
type TxSnapshot struct {
	Status          TxStatus   `json:"status"`
	LastTransaction *time.Time `json:"lastTransactionTime"`
}

// HealthChecker probes the RPC endpoint.
type HealthChecker interface {
	CheckHealth(ctx context.Context) HealthSnapshot
}

// TransactionChecker probes recent transaction activity. ok is false when
// the check short-circuited (missing configuration) and prior state should
// be left untouched.
type TransactionChecker interface {
	CheckTransactions(ctx context.Context) (snap TxSnapshot, ok bool)
}
