package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const trackColumns = "id, path, artist, album, title, track_no, fingerprint, size_bytes, mod_time, state, first_seen, last_seen"

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*Track, error) {
	var (
		id          int64
		path        string
		artist      sql.NullString
		album       sql.NullString
		title       sql.NullString
		trackNo     sql.NullInt64
		fingerprint string
		sizeBytes   int64
		modRaw      sql.NullString
		state       string
		firstRaw    sql.NullString
		lastRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&path,
		&artist,
		&album,
		&title,
		&trackNo,
		&fingerprint,
		&sizeBytes,
		&modRaw,
		&state,
		&firstRaw,
		&lastRaw,
	); err != nil {
		return nil, err
	}

	track := &Track{
		ID:          id,
		Path:        path,
		Artist:      artist.String,
		Album:       album.String,
		Title:       title.String,
		TrackNo:     int(trackNo.Int64),
		Fingerprint: fingerprint,
		SizeBytes:   sizeBytes,
		State:       TrackState(state),
	}
	if t, err := parseTimeString(modRaw.String); err == nil {
		track.ModTime = t
	}
	if t, err := parseTimeString(firstRaw.String); err == nil {
		track.FirstSeen = t
	}
	if t, err := parseTimeString(lastRaw.String); err == nil {
		track.LastSeen = t
	}
	return track, nil
}

// GetTrackByPath fetches a track by its catalog path.
func (s *Store) GetTrackByPath(ctx context.Context, path string) (*Track, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+trackColumns+` FROM tracks WHERE path = ?`, path)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// InsertTrack adds a newly discovered track in the present state.
func (s *Store) InsertTrack(ctx context.Context, track *Track) (*Track, error) {
	if track == nil {
		return nil, errors.New("track is nil")
	}
	timestamp := timestampNow()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO tracks (
            path, artist, album, title, track_no, fingerprint, size_bytes,
            mod_time, state, first_seen, last_seen
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.Path,
		nullableString(track.Artist),
		nullableString(track.Album),
		nullableString(track.Title),
		nullableInt(track.TrackNo),
		track.Fingerprint,
		track.SizeBytes,
		track.ModTime.UTC().Format(time.RFC3339Nano),
		TrackPresent,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert track: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	track.ID = id
	track.State = TrackPresent
	return track, nil
}

// UpdateTrack refreshes metadata and fingerprint for an existing track and
// marks it present again.
func (s *Store) UpdateTrack(ctx context.Context, track *Track) error {
	if track == nil {
		return errors.New("track is nil")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tracks
         SET artist = ?, album = ?, title = ?, track_no = ?, fingerprint = ?,
             size_bytes = ?, mod_time = ?, state = ?, last_seen = ?
         WHERE id = ?`,
		nullableString(track.Artist),
		nullableString(track.Album),
		nullableString(track.Title),
		nullableInt(track.TrackNo),
		track.Fingerprint,
		track.SizeBytes,
		track.ModTime.UTC().Format(time.RFC3339Nano),
		TrackPresent,
		timestampNow(),
		track.ID,
	); err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	track.State = TrackPresent
	return nil
}

// TouchTrack bumps last_seen and restores the present state without
// rewriting metadata.
func (s *Store) TouchTrack(ctx context.Context, id int64) error {
	return s.execWithoutResultRetry(
		ctx,
		`UPDATE tracks SET state = ?, last_seen = ? WHERE id = ?`,
		TrackPresent, timestampNow(), id,
	)
}

// MarkTracksMissing flags present tracks under root whose last_seen predates
// the given scan start. Returns the number of tracks flagged.
func (s *Store) MarkTracksMissing(ctx context.Context, root string, scanStart time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tracks
         SET state = ?
         WHERE state = ? AND path LIKE ? ESCAPE '\' AND last_seen < ?`,
		TrackMissing,
		TrackPresent,
		escapeLike(root)+"%",
		scanStart.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("mark tracks missing: %w", err)
	}
	return res.RowsAffected()
}

// ListTracks returns tracks, optionally filtered by state, ordered by path.
func (s *Store) ListTracks(ctx context.Context, state TrackState) ([]*Track, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)
	if state == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY path`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+trackColumns+` FROM tracks WHERE state = ? ORDER BY path`, state)
	}
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}
