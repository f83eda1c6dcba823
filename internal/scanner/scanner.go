package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/logging"
	"mediacat/internal/services"
)

// File is a single music file discovered during a walk.
type File struct {
	Path    string
	RelPath string
	Size    int64
	ModTime time.Time
	Artist  string
	Album   string
	Title   string
	TrackNo int
}

// Counts summarizes a reconcile pass.
type Counts struct {
	Seen    int64
	Added   int64
	Updated int64
	Missing int64
}

// Scanner walks the music directory and reconciles what it finds against the
// track inventory.
type Scanner struct {
	store      *catalog.Store
	extensions map[string]struct{}
	excludes   map[string]struct{}
	logger     *slog.Logger
}

// New creates a Scanner using the configured extension and exclusion lists.
func New(store *catalog.Store, cfg *config.Config, logger *slog.Logger) (*Scanner, error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	extensions := make(map[string]struct{}, len(cfg.Scanner.Extensions))
	for _, ext := range cfg.Scanner.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}
	excludes := make(map[string]struct{}, len(cfg.Scanner.ExcludeDirs))
	for _, dir := range cfg.Scanner.ExcludeDirs {
		excludes[dir] = struct{}{}
	}
	return &Scanner{
		store:      store,
		extensions: extensions,
		excludes:   excludes,
		logger:     logging.NewComponentLogger(logger, "scanner"),
	}, nil
}

// Walk collects music files under root, honoring the configured extension
// and directory exclusion lists. Tag metadata is inferred from the
// Artist/Album/NN Title layout convention when the path follows it.
func (s *Scanner) Walk(ctx context.Context, root string) ([]File, error) {
	root = filepath.Clean(root)
	var files []File
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			if _, excluded := s.excludes[entry.Name()]; excluded && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := s.extensions[ext]; !ok {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		file := File{
			Path:    path,
			RelPath: rel,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		}
		file.Artist, file.Album, file.TrackNo, file.Title = parseLayout(rel)
		files = append(files, file)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrTransient, "scanner", "walk", root, err)
	}
	s.logger.Info("walk complete",
		logging.String("root", root),
		logging.Int("file_count", len(files)))
	return files, nil
}

// Reconcile applies walked files to the track inventory: new paths are
// inserted, changed files are updated, unchanged files get their last seen
// time bumped, and present tracks under root that the walk did not visit are
// marked missing. Rows are never deleted. The progress callback, when set,
// is invoked periodically so long reconciles can report liveness.
func (s *Scanner) Reconcile(ctx context.Context, root string, files []File, progress func()) (Counts, error) {
	scanStart := time.Now().UTC()
	var counts Counts
	for idx, file := range files {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		counts.Seen++

		fingerprint := Fingerprint(file)
		existing, err := s.store.GetTrackByPath(ctx, file.Path)
		if err != nil {
			return counts, err
		}
		switch {
		case existing == nil:
			track := &catalog.Track{
				Path:        file.Path,
				Artist:      file.Artist,
				Album:       file.Album,
				Title:       file.Title,
				TrackNo:     file.TrackNo,
				Fingerprint: fingerprint,
				SizeBytes:   file.Size,
				ModTime:     file.ModTime,
			}
			if _, err := s.store.InsertTrack(ctx, track); err != nil {
				return counts, err
			}
			counts.Added++
		case existing.Fingerprint != fingerprint:
			existing.Artist = file.Artist
			existing.Album = file.Album
			existing.Title = file.Title
			existing.TrackNo = file.TrackNo
			existing.Fingerprint = fingerprint
			existing.SizeBytes = file.Size
			existing.ModTime = file.ModTime
			if err := s.store.UpdateTrack(ctx, existing); err != nil {
				return counts, err
			}
			counts.Updated++
		default:
			if err := s.store.TouchTrack(ctx, existing.ID); err != nil {
				return counts, err
			}
		}

		if progress != nil && (idx+1)%100 == 0 {
			progress()
		}
	}

	missing, err := s.store.MarkTracksMissing(ctx, filepath.Clean(root)+string(filepath.Separator), scanStart)
	if err != nil {
		return counts, err
	}
	counts.Missing = missing

	s.logger.Info("reconcile complete",
		logging.String("root", root),
		logging.Int64("seen", counts.Seen),
		logging.Int64("added", counts.Added),
		logging.Int64("updated", counts.Updated),
		logging.Int64("missing", counts.Missing))
	return counts, nil
}

// Fingerprint derives a stable content identity from the file's relative
// path, size, and modification time. Reading file contents is deliberately
// avoided so scans stay cheap on large libraries.
func Fingerprint(file File) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", file.RelPath, file.Size, file.ModTime.UnixNano())
	return hex.EncodeToString(h.Sum(nil))
}

// parseLayout extracts artist, album, track number, and title from paths
// shaped like "Artist/Album/01 Title.flac". Paths that do not follow the
// convention fall back to the bare file name as the title.
func parseLayout(rel string) (artist, album string, trackNo int, title string) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	name := parts[len(parts)-1]
	name = strings.TrimSuffix(name, filepath.Ext(name))

	if len(parts) >= 3 {
		artist = parts[0]
		album = parts[1]
	} else if len(parts) == 2 {
		artist = parts[0]
	}

	trackNo, title = parseTrackName(name)
	return artist, album, trackNo, title
}

func parseTrackName(name string) (int, string) {
	trimmed := strings.TrimSpace(name)
	idx := 0
	for idx < len(trimmed) && trimmed[idx] >= '0' && trimmed[idx] <= '9' {
		idx++
	}
	if idx == 0 || idx > 3 {
		return 0, trimmed
	}
	rest := trimmed[idx:]
	cut := strings.TrimLeft(rest, " -._")
	if cut == "" || cut == rest {
		return 0, trimmed
	}
	number := 0
	for _, r := range trimmed[:idx] {
		number = number*10 + int(r-'0')
	}
	return number, cut
}
