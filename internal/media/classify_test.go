package media_test

import (
	"testing"

	"sweeper/internal/media"
)

func TestClassifyEpisodes(t *testing.T) {
	cases := []struct {
		name string
		hint string
	}{
		{"show.S01E02.mkv", "S01E02"},
		{"show.s1e2.mp4", "s1e2"},
		{"Show Name 3x07 1080p.avi", "3x07"},
		{"weird.S01E02.and.3x07.mkv", "S01E02"},
		{"/downloads/dir/show.S10E100.webm", "S10E100"},
	}
	for _, tc := range cases {
		match := media.Classify(tc.name)
		if match.Kind != media.KindEpisode {
			t.Errorf("%s: kind = %s, want episode", tc.name, match.Kind)
			continue
		}
		if match.SeriesHint != tc.hint {
			t.Errorf("%s: hint = %q, want %q", tc.name, match.SeriesHint, tc.hint)
		}
	}
}

func TestClassifyMovies(t *testing.T) {
	for _, name := range []string{
		"movie.2024.mkv",
		"Some.Film.1080p.mp4",
		"clip.mov",
		"x264.sample.webm",
	} {
		match := media.Classify(name)
		if match.Kind != media.KindMovie {
			t.Errorf("%s: kind = %s, want movie", name, match.Kind)
		}
		if match.SeriesHint != "" {
			t.Errorf("%s: unexpected hint %q", name, match.SeriesHint)
		}
	}
}

func TestClassifyArchivesAndMarkers(t *testing.T) {
	cases := map[string]media.Kind{
		"release.part1.rar": media.KindArchivePart,
		"release.rar":       media.KindArchivePart,
		"release.r00":       media.KindArchivePart,
		"release.R01":       media.KindArchivePart,
		"bundle.zip":        media.KindArchivePart,
		"bundle.7z":         media.KindArchivePart,
		"info.nfo":          media.KindMarker,
		"readme.txt":        media.KindOther,
		"show.S01E02.srt":   media.KindOther,
	}
	for name, want := range cases {
		if got := media.Classify(name).Kind; got != want {
			t.Errorf("%s: kind = %s, want %s", name, got, want)
		}
	}
}

func TestClassifyExtensionGovernsOverPattern(t *testing.T) {
	// An episode token without a media extension stays other.
	if got := media.Classify("show.S01E02.txt").Kind; got != media.KindOther {
		t.Fatalf("kind = %s, want other", got)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	name := "show.S02E05.mkv"
	first := media.Classify(name)
	second := media.Classify(name)
	if first != second {
		t.Fatalf("classification not stable: %v vs %v", first, second)
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"release.part1.rar":            "release",
		"release.part12.rar":           "release",
		"release.r00":                  "release",
		"release.rar":                  "release",
		"/downloads/release.part2.rar": "release",
		"show.S01E02.mkv":              "show.S01E02",
	}
	for name, want := range cases {
		if got := media.Stem(name); got != want {
			t.Errorf("Stem(%s) = %q, want %q", name, got, want)
		}
	}
}

func TestIsMultiPart(t *testing.T) {
	cases := map[string]bool{
		"release.part1.rar": true,
		"release.r01":       true,
		"release.rar":       false,
		"bundle.zip":        false,
		"movie.mkv":         false,
	}
	for name, want := range cases {
		if got := media.IsMultiPart(name); got != want {
			t.Errorf("IsMultiPart(%s) = %v, want %v", name, got, want)
		}
	}
}

func TestTitleGroupsPartsOfOneRelease(t *testing.T) {
	if got := media.Title("release.part1.rar"); got != "release" {
		t.Fatalf("Title = %q, want release", got)
	}
	if got := media.Title("release.part2.rar"); got != "release" {
		t.Fatalf("Title = %q, want release", got)
	}
	if got := media.Title("show.S01E02.mkv"); got != "show.S01E02.mkv" {
		t.Fatalf("Title = %q, want full base name", got)
	}
}

func TestSameSet(t *testing.T) {
	if !media.SameSet("Release.part1.rar", "release.part2.rar") {
		t.Fatal("expected case-insensitive stem match")
	}
	if media.SameSet("alpha.part1.rar", "beta.part1.rar") {
		t.Fatal("different stems must not match")
	}
}
