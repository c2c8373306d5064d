// SPDX-License-Identifier: Apache-2.0

// Package session persists onboarding cases. Stores are atomic per case:
// Save writes the whole case or nothing.
package session

import (
	"context"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/workflow"
)

// ErrNotFound is returned by Load when the case does not exist. It is the
// sentinel the graph runner matches on.
var ErrNotFound = workflow.ErrCaseNotFound

// Store is the persistence contract for cases.
type Store interface {
	// Load returns the case with the given id, or ErrNotFound.
	Load(ctx context.Context, caseID string) (*workflow.Case, error)

	// Save persists the whole case, creating or replacing it.
	Save(ctx context.Context, c *workflow.Case) error

	// List returns the ids of all stored cases.
	List(ctx context.Context) ([]string, error)

	// Delete removes a case. Deleting an absent case is not an error.
	Delete(ctx context.Context, caseID string) error

	// Close releases store resources.
	Close() error
}
