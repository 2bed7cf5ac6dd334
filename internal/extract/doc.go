// Package extract wraps the external archive tools. A full multi-part set
// is always handed over as one invocation; the tool reassembles volumes from
// sibling files on disk.
package extract
