package store

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"bot-arena/internal/match"
)

// SQLiteMatchStore persists match history in a SQLite database. Replays
// are stored as a JSON blob next to the queryable result columns.
type SQLiteMatchStore struct {
	db *sql.DB
}

const matchSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id        TEXT PRIMARY KEY,
	p1_id     TEXT NOT NULL,
	p1_name   TEXT NOT NULL,
	p2_id     TEXT NOT NULL,
	p2_name   TEXT NOT NULL,
	winner_id TEXT NOT NULL DEFAULT '',
	p1_rounds INTEGER NOT NULL,
	p2_rounds INTEGER NOT NULL,
	ended_at  INTEGER NOT NULL,
	replay    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_matches_ended ON matches(ended_at DESC);
CREATE INDEX IF NOT EXISTS idx_matches_p1 ON matches(p1_id);
CREATE INDEX IF NOT EXISTS idx_matches_p2 ON matches(p2_id);
`

// OpenSQLiteMatchStore opens (creating if needed) the match database at
// the given path.
func OpenSQLiteMatchStore(path string) (*SQLiteMatchStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open match db")
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(matchSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create match schema")
	}
	return &SQLiteMatchStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteMatchStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteMatchStore) SaveMatch(replay *match.Replay, p1Name, p2Name string) error {
	blob, err := json.Marshal(replay)
	if err != nil {
		return errors.Wrap(err, "encode replay")
	}

	_, err = s.db.Exec(`
		INSERT INTO matches (id, p1_id, p1_name, p2_id, p2_name, winner_id, p1_rounds, p2_rounds, ended_at, replay)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			winner_id = excluded.winner_id,
			p1_rounds = excluded.p1_rounds,
			p2_rounds = excluded.p2_rounds,
			ended_at  = excluded.ended_at,
			replay    = excluded.replay`,
		replay.MatchID, replay.P1ID, p1Name, replay.P2ID, p2Name,
		replay.WinnerID, replay.FinalScore.P1Rounds, replay.FinalScore.P2Rounds,
		replay.EndedAt, blob)
	return errors.Wrap(err, "save match")
}

func (s *SQLiteMatchStore) GetMatch(matchID string) (*MatchRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, p1_id, p1_name, p2_id, p2_name, winner_id, p1_rounds, p2_rounds, ended_at, replay
		FROM matches WHERE id = ?`, matchID)

	var rec MatchRecord
	var blob []byte
	err := row.Scan(&rec.MatchID, &rec.P1ID, &rec.P1Name, &rec.P2ID, &rec.P2Name,
		&rec.WinnerID, &rec.Score.P1Rounds, &rec.Score.P2Rounds, &rec.EndedAt, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load match")
	}

	rec.Replay = &match.Replay{}
	if err := json.Unmarshal(blob, rec.Replay); err != nil {
		return nil, errors.Wrap(err, "decode replay")
	}
	return &rec, nil
}

func (s *SQLiteMatchStore) GetRecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, p1_id, p1_name, p2_id, p2_name, winner_id, p1_rounds, p2_rounds, ended_at
		FROM matches ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list matches")
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *SQLiteMatchStore) GetBotMatches(botID string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, p1_id, p1_name, p2_id, p2_name, winner_id, p1_rounds, p2_rounds, ended_at
		FROM matches WHERE p1_id = ? OR p2_id = ?
		ORDER BY ended_at DESC LIMIT ?`, botID, botID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list bot matches")
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]MatchRecord, error) {
	out := []MatchRecord{}
	for rows.Next() {
		var rec MatchRecord
		if err := rows.Scan(&rec.MatchID, &rec.P1ID, &rec.P1Name, &rec.P2ID, &rec.P2Name,
			&rec.WinnerID, &rec.Score.P1Rounds, &rec.Score.P2Rounds, &rec.EndedAt); err != nil {
			return nil, errors.Wrap(err, "scan match row")
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate match rows")
}
