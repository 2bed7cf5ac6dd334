// Package history journals the outcome of every processed completion event
// so operators can audit what moved where and what failed.
package history
