package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/molcards/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const selectMolecule = `
	SELECT id, name, formula, pharmacological_family, chemical_family, brand_names, role, image
	FROM molecules`

// Append inserts molecules in a single transaction; either all are stored or none.
func (db *DB) Append(ctx context.Context, molecules ...domain.Molecule) error {
	if len(molecules) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO molecules (name, formula, pharmacological_family, chemical_family, brand_names, role, image)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range molecules {
		if _, err := stmt.ExecContext(ctx,
			m.Name,
			m.Formula,
			m.PharmacologicalFamily,
			m.ChemicalFamily,
			m.BrandNames,
			m.Role,
			m.ImageRef,
		); err != nil {
			return fmt.Errorf("failed to insert molecule %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit molecules: %w", err)
	}
	return nil
}

// List retrieves all stored molecules in insertion order.
func (db *DB) List(ctx context.Context) ([]domain.Molecule, error) {
	rows, err := db.conn.QueryContext(ctx, selectMolecule+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list molecules: %w", err)
	}
	defer rows.Close()

	var molecules []domain.Molecule
	for rows.Next() {
		m, err := scanMolecule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan molecule row: %w", err)
		}
		molecules = append(molecules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate molecules: %w", err)
	}
	return molecules, nil
}

// Random retrieves one molecule chosen at random, or nil when the table is empty.
func (db *DB) Random(ctx context.Context) (*domain.Molecule, error) {
	row := db.conn.QueryRowContext(ctx, selectMolecule+` ORDER BY RANDOM() LIMIT 1`)
	m, err := scanMolecule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Empty table
		}
		return nil, fmt.Errorf("failed to pick a random molecule: %w", err)
	}
	return &m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMolecule(s scanner) (domain.Molecule, error) {
	var m domain.Molecule
	err := s.Scan(
		&m.ID,
		&m.Name,
		&m.Formula,
		&m.PharmacologicalFamily,
		&m.ChemicalFamily,
		&m.BrandNames,
		&m.Role,
		&m.ImageRef,
	)
	return m, err
}
