package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"spawncycle.ai/internal/sim/spawncycle"
)

// SQLiteIndex is a queryable history of applied spawn moves. Writes are queued
// and applied by a single writer goroutine; the config file and the audit log
// remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropMove atomic.Uint64
	dropMeta atomic.Uint64
}

type reqKind int

const (
	reqMove reqKind = iota + 1
	reqMeta
)

type req struct {
	kind reqKind

	move spawncycle.Move
	key  string
	val  string
}

// MoveRow is one row of the moves table.
type MoveRow struct {
	ID           int64     `json:"id"`
	At           time.Time `json:"at"`
	World        string    `json:"world"`
	Reason       string    `json:"reason"`
	Mode         string    `json:"mode"`
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Z            int       `json:"z"`
	SpiralRadius int       `json:"spiral_radius"`
	SpiralAngle  int       `json:"spiral_angle"`
	SquareLayer  int       `json:"square_layer"`
	SquareStep   int       `json:"square_step"`
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropMoveTotal uint64
	DropMetaTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 4096)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL keeps readers (admin queries) off the writer's back.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS moves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			world TEXT NOT NULL,
			reason TEXT NOT NULL,
			mode TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			spiral_radius INTEGER NOT NULL,
			spiral_angle INTEGER NOT NULL,
			square_layer INTEGER NOT NULL,
			square_step INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_moves_world_at ON moves(world, at);`,
		`CREATE INDEX IF NOT EXISTS idx_moves_reason ON moves(reason);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordMove queues an applied move. It never blocks the caller; moves are
// dropped (and counted) if the writer falls behind.
func (s *SQLiteIndex) RecordMove(m spawncycle.Move) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqMove, move: m}:
	default:
		s.dropMove.Add(1)
	}
}

// SetMeta queues a key/value upsert (world name, mode, center).
func (s *SQLiteIndex) SetMeta(key, value string) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqMeta, key: key, val: value}:
	default:
		s.dropMeta.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropMoveTotal: s.dropMove.Load(),
		DropMetaTotal: s.dropMeta.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertMove, _ := s.db.PrepareContext(ctx, `INSERT INTO moves(at,world,reason,mode,x,y,z,spiral_radius,spiral_angle,square_layer,square_step) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	upsertMeta, _ := s.db.PrepareContext(ctx, `INSERT INTO meta(key,value,updated_at) VALUES(?,?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`)
	defer func() {
		if insertMove != nil {
			_ = insertMove.Close()
		}
		if upsertMeta != nil {
			_ = upsertMeta.Close()
		}
	}()

	var (
		tx          *sql.Tx
		opCount     int
		commitEvery = 256
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqMove:
			m := r.move
			if insertMove != nil {
				if _, err := tx.Stmt(insertMove).Exec(
					m.At.UTC().Format(time.RFC3339Nano),
					m.Point.World,
					m.Reason,
					string(m.Mode),
					m.Point.Pos.X, m.Point.Pos.Y, m.Point.Pos.Z,
					m.Spiral.Radius, m.Spiral.Angle,
					m.Square.Ring, m.Square.StepIndex,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		case reqMeta:
			if upsertMeta != nil {
				if _, err := tx.Stmt(upsertMeta).Exec(r.key, r.val, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		// Moves are rare; commit once the queue drains so readers see them.
		if opCount >= commitEvery || len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}

// RecentMoves returns up to limit moves, newest first. An empty world matches
// all worlds.
func (s *SQLiteIndex) RecentMoves(ctx context.Context, world string, limit int) ([]MoveRow, error) {
	return QueryMoves(ctx, s.db, world, limit)
}

// QueryMoves reads moves from any handle on an index database; the admin CLI
// opens the file read-only without starting a writer.
func QueryMoves(ctx context.Context, db *sql.DB, world string, limit int) ([]MoveRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id,at,world,reason,mode,x,y,z,spiral_radius,spiral_angle,square_layer,square_step FROM moves`
	args := []any{}
	if world != "" {
		q += ` WHERE world=?`
		args = append(args, world)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MoveRow
	for rows.Next() {
		var (
			r  MoveRow
			at string
		)
		if err := rows.Scan(&r.ID, &at, &r.World, &r.Reason, &r.Mode, &r.X, &r.Y, &r.Z, &r.SpiralRadius, &r.SpiralAngle, &r.SquareLayer, &r.SquareStep); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			r.At = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByReason tallies moves per trigger reason.
func CountByReason(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM moves GROUP BY reason`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[reason] = n
	}
	return out, rows.Err()
}

func Meta(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
