package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/metrics"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is a Store over database/sql. Statements use $n placeholders,
// which both pgx and modernc sqlite accept.
type SQLStore struct {
	db     *sql.DB
	now    func() time.Time
	logger logger.Logger
}

// Open opens the database, pings it and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	var drvName, schema string
	switch driver {
	case DriverSQLite:
		drvName, schema = "sqlite", schemaSQLite
		if dsn == "" {
			dsn = "file:ace.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName, schema = "pgx", schemaPostgres
		if dsn == "" {
			dsn = "postgres://localhost:5432/ace?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; this also keeps in-memory databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	s := &SQLStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}
	return s, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

const eventColumns = `event_key, team, year, event_start, auto, teleop, endgame, overall,
  confidence, actual_epa, match_count, wins, losses, ties,
  consistency, dominance, record_alignment, veteran_boost, event_boost, raw_confidence`

const seasonColumns = `team, year, auto, teleop, endgame, overall,
  confidence, actual_epa, wins, losses, ties,
  consistency, dominance, record_alignment, veteran_boost, event_boost, raw_confidence, total_events`

const upsertEventSQL = `
INSERT INTO team_event_ratings (` + eventColumns + `, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (event_key, team) DO UPDATE SET
  year=EXCLUDED.year,
  event_start=EXCLUDED.event_start,
  auto=EXCLUDED.auto,
  teleop=EXCLUDED.teleop,
  endgame=EXCLUDED.endgame,
  overall=EXCLUDED.overall,
  confidence=EXCLUDED.confidence,
  actual_epa=EXCLUDED.actual_epa,
  match_count=EXCLUDED.match_count,
  wins=EXCLUDED.wins,
  losses=EXCLUDED.losses,
  ties=EXCLUDED.ties,
  consistency=EXCLUDED.consistency,
  dominance=EXCLUDED.dominance,
  record_alignment=EXCLUDED.record_alignment,
  veteran_boost=EXCLUDED.veteran_boost,
  event_boost=EXCLUDED.event_boost,
  raw_confidence=EXCLUDED.raw_confidence,
  updated_at=EXCLUDED.updated_at`

const upsertSeasonSQL = `
INSERT INTO team_season_ratings (` + seasonColumns + `, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (team, year) DO UPDATE SET
  auto=EXCLUDED.auto,
  teleop=EXCLUDED.teleop,
  endgame=EXCLUDED.endgame,
  overall=EXCLUDED.overall,
  confidence=EXCLUDED.confidence,
  actual_epa=EXCLUDED.actual_epa,
  wins=EXCLUDED.wins,
  losses=EXCLUDED.losses,
  ties=EXCLUDED.ties,
  consistency=EXCLUDED.consistency,
  dominance=EXCLUDED.dominance,
  record_alignment=EXCLUDED.record_alignment,
  veteran_boost=EXCLUDED.veteran_boost,
  event_boost=EXCLUDED.event_boost,
  raw_confidence=EXCLUDED.raw_confidence,
  total_events=EXCLUDED.total_events,
  updated_at=EXCLUDED.updated_at`

// DeleteTeamSeason implements Writer.
func (s *SQLStore) DeleteTeamSeason(ctx context.Context, team, year int) error {
	return s.WithTx(ctx, func(w Writer) error {
		return w.DeleteTeamSeason(ctx, team, year)
	})
}

func (s *SQLStore) deleteSeason(ctx context.Context, q querier, team, year int) (err error) {
	defer s.observe("delete_season", time.Now(), &err)
	if _, err = q.ExecContext(ctx, `DELETE FROM team_event_ratings WHERE team=$1 AND year=$2`, team, year); err != nil {
		return fmt.Errorf("delete event ratings %d/%d: %w", team, year, err)
	}
	if _, err = q.ExecContext(ctx, `DELETE FROM team_season_ratings WHERE team=$1 AND year=$2`, team, year); err != nil {
		return fmt.Errorf("delete season rating %d/%d: %w", team, year, err)
	}
	return nil
}

// UpsertTeamEventRating implements Writer.
func (s *SQLStore) UpsertTeamEventRating(ctx context.Context, r model.TeamEventRating) error {
	return s.upsertEvent(ctx, s.db, r)
}

// UpsertTeamSeasonRating implements Writer.
func (s *SQLStore) UpsertTeamSeasonRating(ctx context.Context, r model.TeamSeasonRating) error {
	return s.upsertSeason(ctx, s.db, r)
}

func (s *SQLStore) upsertEvent(ctx context.Context, q querier, r model.TeamEventRating) (err error) {
	defer s.observe("upsert_event", time.Now(), &err)
	_, err = q.ExecContext(ctx, upsertEventSQL,
		r.EventKey, r.TeamNumber, r.Year, unixOrZero(r.EventStart),
		r.Auto, r.Teleop, r.Endgame, r.Overall,
		r.Confidence, r.ActualEPA, r.MatchCount, r.Record.Wins, r.Record.Losses, r.Record.Ties,
		r.Breakdown.Consistency, r.Breakdown.Dominance, r.Breakdown.RecordAlignment,
		r.Breakdown.VeteranBoost, r.Breakdown.EventBoost, r.Breakdown.Raw,
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert event rating %s/%d: %w", r.EventKey, r.TeamNumber, err)
	}
	return nil
}

func (s *SQLStore) upsertSeason(ctx context.Context, q querier, r model.TeamSeasonRating) (err error) {
	defer s.observe("upsert_season", time.Now(), &err)
	_, err = q.ExecContext(ctx, upsertSeasonSQL,
		r.TeamNumber, r.Year, r.Auto, r.Teleop, r.Endgame, r.Overall,
		r.Confidence, r.ActualEPA, r.Record.Wins, r.Record.Losses, r.Record.Ties,
		r.Breakdown.Consistency, r.Breakdown.Dominance, r.Breakdown.RecordAlignment,
		r.Breakdown.VeteranBoost, r.Breakdown.EventBoost, r.Breakdown.Raw, r.TotalEvents,
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert season rating %d/%d: %w", r.TeamNumber, r.Year, err)
	}
	return nil
}

// TeamEventRatings implements Store.
func (s *SQLStore) TeamEventRatings(ctx context.Context, team, year int) (out []model.TeamEventRating, err error) {
	defer s.observe("event_ratings", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+`
		FROM team_event_ratings
		WHERE team=$1 AND year=$2
		ORDER BY event_start, event_key`, team, year)
	if err != nil {
		return nil, fmt.Errorf("query event ratings %d/%d: %w", team, year, err)
	}
	defer func() { _ = rows.Close() }()

	out = []model.TeamEventRating{}
	for rows.Next() {
		var r model.TeamEventRating
		var start int64
		if err := rows.Scan(&r.EventKey, &r.TeamNumber, &r.Year, &start,
			&r.Auto, &r.Teleop, &r.Endgame, &r.Overall,
			&r.Confidence, &r.ActualEPA, &r.MatchCount, &r.Record.Wins, &r.Record.Losses, &r.Record.Ties,
			&r.Breakdown.Consistency, &r.Breakdown.Dominance, &r.Breakdown.RecordAlignment,
			&r.Breakdown.VeteranBoost, &r.Breakdown.EventBoost, &r.Breakdown.Raw,
		); err != nil {
			return nil, fmt.Errorf("scan event rating: %w", err)
		}
		r.EventStart = timeOrZero(start)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event ratings: %w", err)
	}
	return out, nil
}

// TeamExperience implements Store.
func (s *SQLStore) TeamExperience(ctx context.Context, team, upToYear int) (n int, err error) {
	defer s.observe("experience", time.Now(), &err)
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT year) FROM team_event_ratings
		WHERE team=$1 AND year<=$2 AND match_count>0`, team, upToYear).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("team %d experience: %w", team, err)
	}
	return n, nil
}

// TeamSeasonRating implements Store.
func (s *SQLStore) TeamSeasonRating(ctx context.Context, team, year int) (model.TeamSeasonRating, error) {
	r, err := s.season(ctx, team, year)
	if err != nil {
		return model.TeamSeasonRating{}, err
	}
	r.Events, err = s.TeamEventRatings(ctx, team, year)
	if err != nil {
		return model.TeamSeasonRating{}, err
	}
	return r, nil
}

func (s *SQLStore) season(ctx context.Context, team, year int) (r model.TeamSeasonRating, err error) {
	defer s.observe("season_rating", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+seasonColumns+`
		FROM team_season_ratings WHERE team=$1 AND year=$2`, team, year)
	r, err = scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: team %d season %d", ErrNotFound, team, year)
	}
	if err != nil {
		return r, fmt.Errorf("season rating %d/%d: %w", team, year, err)
	}
	return r, nil
}

// TopSeason implements Store. Ties share a rank.
func (s *SQLStore) TopSeason(ctx context.Context, year, n int) (out []Entry, err error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	defer s.observe("top_season", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT `+seasonColumns+`
		FROM team_season_ratings
		WHERE year=$1
		ORDER BY actual_epa DESC, team ASC
		LIMIT $2`, year, n)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard %d: %w", year, err)
	}
	defer func() { _ = rows.Close() }()

	out = make([]Entry, 0, n)
	for rows.Next() {
		r, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, Entry{TeamSeasonRating: r})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, year int) (n int, err error) {
	defer s.observe("count", time.Now(), &err)
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_season_ratings WHERE year=$1`, year).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count seasons %d: %w", year, err)
	}
	return n, nil
}

// WithTx implements Store.
func (s *SQLStore) WithTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&sqlTx{store: s, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error(ctx, "rollback failed", logger.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// sqlTx routes upserts through an open transaction.
type sqlTx struct {
	store *SQLStore
	tx    *sql.Tx
}

func (t *sqlTx) DeleteTeamSeason(ctx context.Context, team, year int) error {
	return t.store.deleteSeason(ctx, t.tx, team, year)
}

func (t *sqlTx) UpsertTeamEventRating(ctx context.Context, r model.TeamEventRating) error {
	return t.store.upsertEvent(ctx, t.tx, r)
}

func (t *sqlTx) UpsertTeamSeasonRating(ctx context.Context, r model.TeamSeasonRating) error {
	return t.store.upsertSeason(ctx, t.tx, r)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSeason(sc scanner) (model.TeamSeasonRating, error) {
	var r model.TeamSeasonRating
	err := sc.Scan(&r.TeamNumber, &r.Year, &r.Auto, &r.Teleop, &r.Endgame, &r.Overall,
		&r.Confidence, &r.ActualEPA, &r.Record.Wins, &r.Record.Losses, &r.Record.Ties,
		&r.Breakdown.Consistency, &r.Breakdown.Dominance, &r.Breakdown.RecordAlignment,
		&r.Breakdown.VeteranBoost, &r.Breakdown.EventBoost, &r.Breakdown.Raw, &r.TotalEvents,
	)
	return r, err
}

func (s *SQLStore) observe(op string, start time.Time, err *error) {
	metrics.RecordStoreOperation(op, *err, float64(time.Since(start).Microseconds())/1000)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
