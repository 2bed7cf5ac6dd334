// Package media classifies download filenames into kinds (episode, movie,
// marker, archive part, other) and recognizes multi-part archive naming so
// the processor can gate extraction on a complete part set.
package media
