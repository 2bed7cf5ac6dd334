package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

// partSuffix matches the name.partNN.rar convention.
var partSuffix = regexp.MustCompile(`(?i)\.part\d{1,3}$`)

// Stem returns the logical archive name a file belongs to: the base name
// with the extension removed and any multi-part volume suffix stripped.
// release.part2.rar and release.r01 both yield "release".
func Stem(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if rarVolumeExt.MatchString(strings.ToLower(ext)) {
		return name
	}
	return partSuffix.ReplaceAllString(name, "")
}

// IsMultiPart reports whether a filename carries a multi-part volume marker
// (partNN or a numbered rar volume extension).
func IsMultiPart(filename string) bool {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	if rarVolumeExt.MatchString(ext) {
		return true
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return partSuffix.MatchString(name)
}

// Title returns the logical grouping name for a download. Multi-part
// volumes share their archive stem so every part of one release maps to the
// same title; everything else keeps its own base name.
func Title(filename string) string {
	if IsMultiPart(filename) {
		return Stem(filename)
	}
	return filepath.Base(filename)
}

// SameSet reports whether two filenames belong to the same logical archive.
func SameSet(a, b string) bool {
	return strings.EqualFold(Stem(a), Stem(b))
}
