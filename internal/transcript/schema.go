package transcript

const schemaSQL = `
CREATE TABLE IF NOT EXISTS turns (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id       TEXT NOT NULL,
    recorded_at      TEXT NOT NULL,
    target           TEXT NOT NULL,
    user_content     TEXT NOT NULL,
    assistant_content TEXT NOT NULL,
    evidence_kind    TEXT,
    evidence_sql     TEXT,
    evidence_error   TEXT,
    citation_count   INTEGER NOT NULL DEFAULT 0,
    model            TEXT,
    input_tokens     INTEGER NOT NULL DEFAULT 0,
    output_tokens    INTEGER NOT NULL DEFAULT 0,
    input_cost       REAL NOT NULL DEFAULT 0,
    output_cost      REAL NOT NULL DEFAULT 0,
    total_cost       REAL NOT NULL DEFAULT 0,
    pricing_source   TEXT,
    approximate      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
CREATE INDEX IF NOT EXISTS idx_turns_recorded ON turns(recorded_at);
`
