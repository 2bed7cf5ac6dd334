package processor

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"sweeper/internal/aria2"
	"sweeper/internal/fileutil"
	"sweeper/internal/history"
	"sweeper/internal/logging"
	"sweeper/internal/media"
	"sweeper/internal/services"
)

// Destination categories under the ended directory.
const (
	CategorySeries = "series"
	CategoryMovies = "movies"
	CategoryOthers = "others"
)

type taskOutcome struct {
	status    history.Status
	category  string
	finalPath string
	err       error
}

func failed(err error) taskOutcome {
	return taskOutcome{status: history.StatusFailed, err: err}
}

// process walks one download through classify, extract, move, clean, and
// notify. Fatal errors leave the download tracked by the source; deferred
// part sets leave everything untouched for a later event.
func (p *Processor) process(ctx context.Context, logger *slog.Logger, download aria2.Download) taskOutcome {
	if len(download.Files) == 0 {
		logger.Warn("download reports no files, forgetting")
		p.forget(ctx, logger, download.GID)
		return taskOutcome{status: history.StatusSkipped}
	}

	primary := download.Files[0]
	match := media.Classify(primary)

	switch match.Kind {
	case media.KindMarker:
		return p.processMarker(ctx, logger, download)
	case media.KindArchivePart:
		return p.processArchive(ctx, logger, download)
	default:
		return p.processPlain(ctx, logger, download)
	}
}

// processMarker drops metadata sidecars: no extraction, no move.
func (p *Processor) processMarker(ctx context.Context, logger *slog.Logger, download aria2.Download) taskOutcome {
	ctx = services.WithStage(ctx, "cleaning")
	for _, file := range download.Files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			logger.Warn("marker delete failed", logging.Error(err),
				logging.String("path", file))
		}
	}
	p.forget(ctx, logger, download.GID)
	return taskOutcome{status: history.StatusSkipped}
}

// processPlain moves non-archive downloads straight to the destination
// tree.
func (p *Processor) processPlain(ctx context.Context, logger *slog.Logger, download aria2.Download) taskOutcome {
	category, notifyFile := categorize(download.Files)

	var finalPath string
	for _, file := range download.Files {
		target := filepath.Join(p.cfg.Paths.EndedDir, category, filepath.Base(file))
		if err := fileutil.MoveEntry(file, target); err != nil {
			return failed(services.Wrap(nil, "moving", "move file", filepath.Base(file), err))
		}
		finalPath = target
	}

	p.forget(ctx, logger, download.GID)
	p.dispatchScan(ctx, logger, category, notifyFile)
	return taskOutcome{status: history.StatusCompleted, category: category, finalPath: finalPath}
}

// processArchive gates on the full part set, extracts once, classifies the
// extracted tree, and moves the extraction root as a unit.
func (p *Processor) processArchive(ctx context.Context, logger *slog.Logger, download aria2.Download) taskOutcome {
	stem := media.Stem(download.Name)

	parts, partGIDs, ready, err := p.collectParts(ctx, download)
	if err != nil {
		return failed(err)
	}
	if !ready {
		return taskOutcome{status: history.StatusDeferred}
	}

	extractCtx := services.WithStage(ctx, "extracting")
	destDir := filepath.Join(p.cfg.Paths.ExtractDir, stem)
	root, err := p.extractor.Extract(extractCtx, parts, destDir)
	if err != nil {
		return failed(err)
	}

	category, notifyFile, err := categorizeTree(root)
	if err != nil {
		_ = os.RemoveAll(root)
		return failed(services.Wrap(nil, "classifying", "scan extracted tree", root, err))
	}

	finalPath := filepath.Join(p.cfg.Paths.EndedDir, category, filepath.Base(root))
	if err := fileutil.MoveEntry(root, finalPath); err != nil {
		return failed(services.Wrap(nil, "moving", "move extracted root", filepath.Base(root), err))
	}

	cleanCtx := services.WithStage(ctx, "cleaning")
	for _, part := range parts {
		if err := os.Remove(part); err != nil && !os.IsNotExist(err) {
			logger.Warn("source part delete failed", logging.Error(err),
				logging.String("path", part))
		}
	}
	for _, gid := range partGIDs {
		p.forget(cleanCtx, logger, gid)
	}

	p.dispatchScan(ctx, logger, category, notifyFile)
	return taskOutcome{status: history.StatusCompleted, category: category, finalPath: finalPath}
}

// collectParts gathers every tracked download belonging to the same archive
// set. ready is false while any sibling part is still in flight.
func (p *Processor) collectParts(ctx context.Context, download aria2.Download) (parts []string, gids []string, ready bool, err error) {
	if !media.IsMultiPart(download.Name) {
		return download.Files, []string{download.GID}, true, nil
	}

	all, err := p.source.Downloads(ctx)
	if err != nil {
		return nil, nil, false, services.Wrap(nil, "classifying", "list downloads", "part set check", err)
	}

	for _, candidate := range all {
		if !media.SameSet(candidate.Name, download.Name) {
			continue
		}
		// Same-stem sidecars (release.nfo next to release.partN.rar) are
		// not part of the archive and must not reach the extractor.
		if media.Classify(candidate.Name).Kind != media.KindArchivePart {
			continue
		}
		if !candidate.Complete() {
			return nil, nil, false, nil
		}
		parts = append(parts, candidate.Files...)
		gids = append(gids, candidate.GID)
	}
	return parts, gids, true, nil
}

// categorize picks the destination bucket for a flat file list. Episode
// content dominates movie content.
func categorize(files []string) (category, notifyFile string) {
	category = CategoryOthers
	for _, file := range files {
		switch media.Classify(file).Kind {
		case media.KindEpisode:
			return CategorySeries, file
		case media.KindMovie:
			if category != CategorySeries {
				category = CategoryMovies
				notifyFile = file
			}
		}
	}
	return category, notifyFile
}

// categorizeTree classifies every file under root.
func categorizeTree(root string) (category, notifyFile string, err error) {
	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("walk %s: %w", root, err)
	}
	category, notifyFile = categorize(files)
	return category, notifyFile, nil
}

// dispatchScan fires the downstream scan for media categories. Failures are
// logged; the move already succeeded and stands.
func (p *Processor) dispatchScan(ctx context.Context, logger *slog.Logger, category, notifyFile string) {
	if notifyFile == "" {
		return
	}
	ctx = services.WithStage(ctx, "notifying")

	var err error
	switch category {
	case CategorySeries:
		err = p.notifier.ScanSeries(ctx, filepath.Join(p.cfg.Paths.EndedDir, CategorySeries))
	case CategoryMovies:
		err = p.notifier.ScanMovies(ctx, filepath.Join(p.cfg.Paths.EndedDir, CategoryMovies))
	default:
		return
	}
	if err != nil {
		logger.Warn("scan notification failed", logging.Error(err),
			logging.String("category", category))
	}
}

// forget drops the download from the source's tracked set; failure is
// non-fatal since the content has already been handled.
func (p *Processor) forget(ctx context.Context, logger *slog.Logger, gid string) {
	if err := p.source.Forget(ctx, gid); err != nil && !services.IsNotFound(err) {
		logger.Warn("forget download failed", logging.Error(err),
			logging.String(logging.FieldGID, gid))
	}
}
