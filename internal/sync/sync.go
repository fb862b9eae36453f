// Package sync imports markdown decks from local directories and git
// repositories into boxes.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/memobox/internal/domain"
	"github.com/conorfennell/memobox/internal/gitsource"
	"github.com/conorfennell/memobox/internal/knol"
	"github.com/conorfennell/memobox/internal/parser"
	"github.com/conorfennell/memobox/internal/review"
	"github.com/conorfennell/memobox/internal/storage"
)

// ErrIncompleteScan is reported when some deck files of a source could not
// be parsed. Cards are then only added, never removed, until a clean scan.
var ErrIncompleteScan = errors.New("sync: scan incomplete, kept cards missing from the scan")

// Report summarizes one source's reconciliation.
type Report struct {
	SourceID int64
	BoxID    int64
	Parsed   int
	Inserted int
	Deleted  int
	Errors   []error
}

// Syncer reconciles sources with their boxes.
type Syncer struct {
	db       *storage.DB
	logger   *slog.Logger
	clock    review.Clock
	reposDir string
}

// New returns a Syncer that checks git sources out under reposDir.
func New(db *storage.DB, logger *slog.Logger, clock review.Clock, reposDir string) *Syncer {
	return &Syncer{db: db, logger: logger, clock: clock, reposDir: reposDir}
}

// SourceType guesses whether path names a git repository or a local directory.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// AddSource registers path as a source.
func (s *Syncer) AddSource(ctx context.Context, path string) (int64, error) {
	typ := SourceType(path)
	if typ == storage.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return 0, fmt.Errorf("resolve source path %s: %w", path, err)
		}
		path = abs
	}
	return s.db.InsertSource(ctx, path, typ)
}

// RunSync iterates over all sources and reconciles them. A failing source is
// logged and skipped; the returned reports cover the sources that were reached.
func (s *Syncer) RunSync(ctx context.Context) ([]Report, error) {
	s.logger.Info("starting sync of all sources")
	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}
	if len(sources) == 0 {
		s.logger.Info("no sources configured")
		return nil, nil
	}

	var reports []Report
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		s.logger.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir := source.Path
		if source.Type == storage.SourceGit {
			dir, err = gitURLToLocalPath(s.reposDir, source.Path)
			if err != nil {
				s.logger.Error("cannot map git url to a local path", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, s.logger, source.Path, dir, nil); err != nil {
				s.logger.Error("git sync failed", "url", source.Path, "error", err)
				continue
			}
		}

		rep, err := s.reconcile(ctx, source, dir)
		if err != nil {
			s.logger.Error("reconcile failed", "source_id", source.ID, "error", err)
			continue
		}
		reports = append(reports, rep)
	}
	s.logger.Info("sync complete", "sources", len(sources), "reconciled", len(reports))
	return reports, nil
}

func (s *Syncer) boxFor(ctx context.Context, source storage.Source) (int64, error) {
	if source.BoxID.Valid {
		return source.BoxID.Int64, nil
	}
	name := strings.TrimSuffix(filepath.Base(source.Path), ".git")
	box := &domain.Box{Name: name, Description: "Imported from " + source.Path}
	if err := s.db.InsertBox(ctx, box, s.clock.Now()); err != nil {
		return 0, err
	}
	if err := s.db.AttachSourceBox(ctx, source.ID, box.ID); err != nil {
		return 0, err
	}
	return box.ID, nil
}

func (s *Syncer) reconcile(ctx context.Context, source storage.Source, dir string) (Report, error) {
	rep := Report{SourceID: source.ID}
	boxID, err := s.boxFor(ctx, source)
	if err != nil {
		return rep, fmt.Errorf("box for source %d: %w", source.ID, err)
	}
	rep.BoxID = boxID

	found := make(map[string]bool)
	var unreadable []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			rep.Errors = append(rep.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			unreadable = append(unreadable, path)
			return nil
		}
		for _, e := range entries {
			hash := knol.Hash(e.SourceText, e.TargetText)
			rep.Parsed++
			if found[hash] {
				continue
			}
			found[hash] = true

			_, findErr := s.db.FindCardByHash(ctx, boxID, hash)
			if findErr == nil {
				continue
			}
			if !errors.Is(findErr, storage.ErrNotFound) {
				rep.Errors = append(rep.Errors, fmt.Errorf("db check for %s: %w", hash, findErr))
				continue
			}
			card := &domain.Card{BoxID: boxID, SourceText: e.SourceText, TargetText: e.TargetText, Hash: hash}
			if err := s.db.InsertCard(ctx, card, s.clock.Now()); err != nil {
				rep.Errors = append(rep.Errors, fmt.Errorf("db insert for %s: %w", hash, err))
				continue
			}
			s.logger.Debug("new card", "hash", hash, "file", path, "line", e.Line)
			rep.Inserted++
		}
		return nil
	})
	if walkErr != nil {
		return rep, fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	if len(unreadable) > 0 {
		// Cards of an unreadable file look orphaned but still exist.
		s.logger.Warn("skipping orphan removal", "source_id", source.ID, "unreadable_files", unreadable)
		rep.Errors = append(rep.Errors, fmt.Errorf("%w: %d file(s) failed to parse", ErrIncompleteScan, len(unreadable)))
		s.finish(ctx, source, dir, rep)
		return rep, nil
	}

	existing, err := s.db.GetCardsBySourceID(ctx, source.ID)
	if err != nil {
		return rep, fmt.Errorf("cards for source %d: %w", source.ID, err)
	}
	for _, c := range existing {
		if found[c.Hash] {
			continue
		}
		s.logger.Info("orphaned card, deleting", "hash", c.Hash, "card_id", c.ID)
		if err := s.db.DeleteCardByHash(ctx, boxID, c.Hash); err != nil {
			s.logger.Warn("failed to delete orphaned card", "hash", c.Hash, "error", err)
			continue
		}
		rep.Deleted++
	}

	s.finish(ctx, source, dir, rep)
	return rep, nil
}

func (s *Syncer) finish(ctx context.Context, source storage.Source, dir string, rep Report) {
	if err := s.db.UpdateSourceLastScanned(ctx, source.ID, s.clock.Now()); err != nil {
		s.logger.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	s.logger.Info("reconciliation complete",
		"path", dir,
		"box_id", rep.BoxID,
		"parsed_cards", rep.Parsed,
		"inserted", rep.Inserted,
		"orphaned_deleted", rep.Deleted,
		"errors", len(rep.Errors),
	)
}

// gitURLToLocalPath maps a repository URL to its checkout directory under
// baseDir. URLs whose path would leave baseDir are rejected.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	local, err := checkoutPath(baseDir, repoURL)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(baseDir, local)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL %s resolves outside %s", repoURL, baseDir)
	}
	return local, nil
}

func checkoutPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	// scp-like syntax: git@host:owner/repo.git
	if at := strings.Index(repoURL, "@"); at >= 0 {
		host, repoPath, ok := strings.Cut(repoURL[at+1:], ":")
		if ok && host != "" && repoPath != "" {
			return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
		}
	}

	// Plain paths ending in .git are cloned like any remote.
	if strings.HasSuffix(repoURL, ".git") {
		if _, err := os.Stat(repoURL); err == nil {
			return filepath.Join(baseDir, "local", strings.TrimSuffix(filepath.Base(repoURL), ".git")), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
