// Package processor orchestrates the completion pipeline: classify, gate
// multi-part archives, extract, move into the categorized destination tree,
// clean up source artifacts, and trigger downstream scans.
package processor
