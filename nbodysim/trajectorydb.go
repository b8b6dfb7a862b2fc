package nbodysim

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

const trajectorySchema = `
CREATE TABLE IF NOT EXISTS bodies (
	step 	INTEGER,
	id 		INTEGER,
	x 		REAL,
	y 		REAL,
	vx 		REAL,
	vy 		REAL,
	ax 		REAL,
	ay 		REAL,
	mass 	REAL);
`

const trajectoryIndices = `
CREATE INDEX IF NOT EXISTS idx_step ON bodies (step, id);
CREATE INDEX IF NOT EXISTS idx_id ON bodies (id);
`

const trajectoryInsert = `INSERT INTO bodies VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`

// TrajectoryDB records every body's state after each step into a sqlite
// database, one transaction per step. Journaling and fsync are off:
// the database is a bulk sink for a single writer, rebuilt per run.
// Indices are created at Close so inserts stay fast.
type TrajectoryDB struct {
	db     *sql.DB
	insert *sql.Stmt
}

// OpenTrajectoryDB creates (or opens) the database at path and prepares
// the bodies table.
func OpenTrajectoryDB(path string) (*TrajectoryDB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=OFF&_synchronous=OFF")
	if err != nil {
		return nil, fmt.Errorf("nbodysim: open trajectory db: %w", err)
	}
	if _, err := db.Exec(trajectorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("nbodysim: create trajectory schema: %w", err)
	}
	insert, err := db.Prepare(trajectoryInsert)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("nbodysim: prepare trajectory insert: %w", err)
	}
	return &TrajectoryDB{db: db, insert: insert}, nil
}

// OnStepComplete writes one row per body for the completed step. A failed
// step is rolled back and logged; the simulation itself never depends on
// the sink.
func (t *TrajectoryDB) OnStepComplete(step, totalSteps int, bodies []Body) {
	tx, err := t.db.Begin()
	if err != nil {
		log.Printf("trajectory db: begin step %d: %v", step, err)
		return
	}

	stmt := tx.Stmt(t.insert)
	for id, b := range bodies {
		_, err = stmt.Exec(step, id,
			b.Position.X(), b.Position.Y(),
			b.Velocity.X(), b.Velocity.Y(),
			b.Acceleration.X(), b.Acceleration.Y(),
			b.Mass)
		if err != nil {
			break
		}
	}

	if err != nil {
		tx.Rollback()
		log.Printf("trajectory db: step %d: %v", step, err)
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("trajectory db: commit step %d: %v", step, err)
	}
}

// Close builds the query indices and releases the database.
func (t *TrajectoryDB) Close() error {
	if _, err := t.db.Exec(trajectoryIndices); err != nil {
		t.insert.Close()
		t.db.Close()
		return fmt.Errorf("nbodysim: create trajectory indices: %w", err)
	}
	t.insert.Close()
	return t.db.Close()
}
