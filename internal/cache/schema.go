package cache

const schemaVersion = 1

const schema = `
-- Snapshot cache: one row per (project, commit) pulled from a repository.
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS snapshots (
    project_id   TEXT NOT NULL,
    commit_id    TEXT NOT NULL,
    project_name TEXT NOT NULL DEFAULT '',
    elements     TEXT NOT NULL,
    textual      TEXT NOT NULL DEFAULT '',
    fetched_at   TIMESTAMP NOT NULL,
    PRIMARY KEY (project_id, commit_id)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_project
    ON snapshots(project_id, fetched_at DESC);
`

func GetSchema() string {
	return schema
}

func GetSchemaVersion() int {
	return schemaVersion
}
