package storage

const schema = `
-- The 'molecules' table stores one row per molecule fact sheet.
CREATE TABLE IF NOT EXISTS molecules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    formula TEXT NOT NULL DEFAULT '',
    pharmacological_family TEXT NOT NULL DEFAULT '',
    chemical_family TEXT NOT NULL DEFAULT '',
    brand_names TEXT NOT NULL DEFAULT '', -- raw comma-separated list
    role TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT ''
);
`
