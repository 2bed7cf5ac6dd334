// Package titlelock provides per-title mutual exclusion so completion events
// for the same release never mutate filesystem state concurrently.
package titlelock
