package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the classification outcome for a single filename.
type Kind string

const (
	KindEpisode     Kind = "episode"
	KindMovie       Kind = "movie"
	KindMarker      Kind = "marker"
	KindArchivePart Kind = "archive-part"
	KindOther       Kind = "other"
)

// Match is the result of classifying one filename.
type Match struct {
	Kind       Kind
	SeriesHint string
}

var mediaExtensions = map[string]struct{}{
	".mkv":  {},
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".webm": {},
}

var archiveExtensions = map[string]struct{}{
	".rar": {},
	".zip": {},
	".7z":  {},
}

var markerExtensions = map[string]struct{}{
	".nfo": {},
}

// Episode numbering patterns, matched case-insensitively. Order matters only
// for equally positioned matches; otherwise the leftmost match in the
// filename wins.
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)s\d{1,2}e\d{1,3}`),
	regexp.MustCompile(`(?i)(?:^|[^0-9])(\d{1,2}x\d{2,3})(?:[^0-9]|$)`),
}

// splitVolumeExt recognizes numbered rar volumes of the form name.r00,
// name.r01 and so on.
var rarVolumeExt = regexp.MustCompile(`(?i)^\.r\d{2,3}$`)

// Classify maps a filename to its media kind. It is pure: no filesystem
// access, deterministic for a given input.
func Classify(filename string) Match {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))

	if _, ok := markerExtensions[ext]; ok {
		return Match{Kind: KindMarker}
	}
	if isArchiveExt(ext) {
		return Match{Kind: KindArchivePart}
	}
	if _, ok := mediaExtensions[ext]; ok {
		if hint := episodeHint(base); hint != "" {
			return Match{Kind: KindEpisode, SeriesHint: hint}
		}
		return Match{Kind: KindMovie}
	}
	return Match{Kind: KindOther}
}

func isArchiveExt(ext string) bool {
	if _, ok := archiveExtensions[ext]; ok {
		return true
	}
	return rarVolumeExt.MatchString(ext)
}

// episodeHint returns the leftmost episode token in name, or "" when none
// matches.
func episodeHint(name string) string {
	best := ""
	bestIdx := -1
	for _, pattern := range episodePatterns {
		loc := pattern.FindStringSubmatchIndex(name)
		if loc == nil {
			continue
		}
		// Prefer the capture group when the pattern uses one to trim
		// boundary characters.
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		if bestIdx == -1 || start < bestIdx {
			best = name[start:end]
			bestIdx = start
		}
	}
	return best
}
