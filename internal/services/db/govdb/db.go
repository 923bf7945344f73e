package govdb

import (
	"database/sql"
	"fmt"
	"math/big"
	"sync"

	_ "github.com/lib/pq"
)

// DB mirrors emitted governance logs into postgres for off-chain readers.
type DB struct {
	chainID *big.Int
	mu      sync.Mutex
	db      *sql.DB
	rdb     *sql.DB

	LogDB *LogDB

	testing bool
}

// NewDB connects to the writer and reader described by two lib/pq
// connection strings and makes sure the logs table exists.
func NewDB(chainID *big.Int, conn, rconn string) (*DB, error) {
	db, rdb, err := NewDBConnection(conn, rconn)
	if err != nil {
		return nil, err
	}

	gdb := DB{
		chainID: chainID,
		db:      db,
		rdb:     rdb,
	}
	gdb.LogDB = &LogDB{p: &gdb}

	if err = gdb.LogDB.ensureExists(); err != nil {
		return nil, err
	}

	return &gdb, nil
}

// NewDBConnection opens the writer and reader connections, sharing one pool
// when both point at the same database
func NewDBConnection(conn, rconn string) (*sql.DB, *sql.DB, error) {
	db, err := open(conn)
	if err != nil {
		return nil, nil, err
	}

	if rconn == "" || rconn == conn {
		return db, db, nil
	}

	rdb, err := open(rconn)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, rdb, nil
}

func open(conn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (gdb *DB) SetTesting() {
	gdb.testing = true
}

func (gdb *DB) Close() {
	gdb.mu.Lock()
	defer gdb.mu.Unlock()

	if gdb.testing {
		gdb.LogDB.drop()
	}

	if gdb.rdb != gdb.db {
		gdb.rdb.Close()
	}

	gdb.db.Close()
	gdb.db = nil
	gdb.rdb = nil
}

func (gdb *DB) logsTableName() string {
	return fmt.Sprintf("t_gov_logs_%s", gdb.chainID.String())
}

func (gdb *DB) checkTableExists(tname string) (bool, error) {
	var exists bool
	err := gdb.db.QueryRow(`
    SELECT EXISTS (
        SELECT 1
        FROM information_schema.tables
        WHERE table_schema = 'public'
        AND table_name = $1
    );
    `, tname).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
