package repository

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS team_event_ratings (
  event_key TEXT NOT NULL,
  team INTEGER NOT NULL,
  year INTEGER NOT NULL,
  event_start INTEGER NOT NULL DEFAULT 0,
  auto REAL NOT NULL DEFAULT 0,
  teleop REAL NOT NULL DEFAULT 0,
  endgame REAL NOT NULL DEFAULT 0,
  overall REAL NOT NULL DEFAULT 0,
  confidence REAL NOT NULL DEFAULT 0,
  actual_epa REAL NOT NULL DEFAULT 0,
  match_count INTEGER NOT NULL DEFAULT 0,
  wins INTEGER NOT NULL DEFAULT 0,
  losses INTEGER NOT NULL DEFAULT 0,
  ties INTEGER NOT NULL DEFAULT 0,
  consistency REAL NOT NULL DEFAULT 0,
  dominance REAL NOT NULL DEFAULT 0,
  record_alignment REAL NOT NULL DEFAULT 0,
  veteran_boost REAL NOT NULL DEFAULT 0,
  event_boost REAL NOT NULL DEFAULT 0,
  raw_confidence REAL NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (event_key, team)
);
CREATE INDEX IF NOT EXISTS team_event_ratings_team_year ON team_event_ratings (team, year);

CREATE TABLE IF NOT EXISTS team_season_ratings (
  team INTEGER NOT NULL,
  year INTEGER NOT NULL,
  auto REAL NOT NULL DEFAULT 0,
  teleop REAL NOT NULL DEFAULT 0,
  endgame REAL NOT NULL DEFAULT 0,
  overall REAL NOT NULL DEFAULT 0,
  confidence REAL NOT NULL DEFAULT 0,
  actual_epa REAL NOT NULL DEFAULT 0,
  wins INTEGER NOT NULL DEFAULT 0,
  losses INTEGER NOT NULL DEFAULT 0,
  ties INTEGER NOT NULL DEFAULT 0,
  consistency REAL NOT NULL DEFAULT 0,
  dominance REAL NOT NULL DEFAULT 0,
  record_alignment REAL NOT NULL DEFAULT 0,
  veteran_boost REAL NOT NULL DEFAULT 0,
  event_boost REAL NOT NULL DEFAULT 0,
  raw_confidence REAL NOT NULL DEFAULT 0,
  total_events INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (team, year)
);
CREATE INDEX IF NOT EXISTS team_season_ratings_year_epa ON team_season_ratings (year, actual_epa);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS team_event_ratings (
  event_key TEXT NOT NULL,
  team INTEGER NOT NULL,
  year INTEGER NOT NULL,
  event_start BIGINT NOT NULL DEFAULT 0,
  auto DOUBLE PRECISION NOT NULL DEFAULT 0,
  teleop DOUBLE PRECISION NOT NULL DEFAULT 0,
  endgame DOUBLE PRECISION NOT NULL DEFAULT 0,
  overall DOUBLE PRECISION NOT NULL DEFAULT 0,
  confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
  actual_epa DOUBLE PRECISION NOT NULL DEFAULT 0,
  match_count INTEGER NOT NULL DEFAULT 0,
  wins INTEGER NOT NULL DEFAULT 0,
  losses INTEGER NOT NULL DEFAULT 0,
  ties INTEGER NOT NULL DEFAULT 0,
  consistency DOUBLE PRECISION NOT NULL DEFAULT 0,
  dominance DOUBLE PRECISION NOT NULL DEFAULT 0,
  record_alignment DOUBLE PRECISION NOT NULL DEFAULT 0,
  veteran_boost DOUBLE PRECISION NOT NULL DEFAULT 0,
  event_boost DOUBLE PRECISION NOT NULL DEFAULT 0,
  raw_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (event_key, team)
);
CREATE INDEX IF NOT EXISTS team_event_ratings_team_year ON team_event_ratings (team, year);

CREATE TABLE IF NOT EXISTS team_season_ratings (
  team INTEGER NOT NULL,
  year INTEGER NOT NULL,
  auto DOUBLE PRECISION NOT NULL DEFAULT 0,
  teleop DOUBLE PRECISION NOT NULL DEFAULT 0,
  endgame DOUBLE PRECISION NOT NULL DEFAULT 0,
  overall DOUBLE PRECISION NOT NULL DEFAULT 0,
  confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
  actual_epa DOUBLE PRECISION NOT NULL DEFAULT 0,
  wins INTEGER NOT NULL DEFAULT 0,
  losses INTEGER NOT NULL DEFAULT 0,
  ties INTEGER NOT NULL DEFAULT 0,
  consistency DOUBLE PRECISION NOT NULL DEFAULT 0,
  dominance DOUBLE PRECISION NOT NULL DEFAULT 0,
  record_alignment DOUBLE PRECISION NOT NULL DEFAULT 0,
  veteran_boost DOUBLE PRECISION NOT NULL DEFAULT 0,
  event_boost DOUBLE PRECISION NOT NULL DEFAULT 0,
  raw_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_events INTEGER NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (team, year)
);
CREATE INDEX IF NOT EXISTS team_season_ratings_year_epa ON team_season_ratings (year, actual_epa DESC);
`
