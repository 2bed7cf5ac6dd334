// Package notify issues scan commands to the downstream library managers
// once content has been organized. Unconfigured endpoints disable the
// corresponding integration without error.
package notify
