// Command sweeperd runs the download post-processing daemon and bundles the
// operator utilities: config management, journal inspection, and a dry-run
// classifier.
package main
