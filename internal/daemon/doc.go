// Package daemon ties the download-manager connection and the completion
// processor into a single lifecycle with flock-based locking to prevent
// multiple concurrent instances.
package daemon
