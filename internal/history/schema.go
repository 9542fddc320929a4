package history

const schema = `
CREATE TABLE IF NOT EXISTS actions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    action      TEXT NOT NULL,
    target      TEXT NOT NULL,
    command     TEXT,
    args        TEXT,
    success     INTEGER NOT NULL,
    output      TEXT,
    timestamp   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS actions_target ON actions (target);
`
