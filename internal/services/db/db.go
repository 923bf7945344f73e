package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"sync"

	"github.com/citizenwallet/governance/internal/storage"
	"github.com/ethereum/go-ethereum/crypto"
	_ "github.com/mattn/go-sqlite3"
)

const (
	dbBaseFolder   = "data"
	dbConfigString = "cache=private&_journal=WAL&mode=rwc&_txlock=immediate&_busy_timeout=10000"
)

var ErrBadAddress = errors.New("bad contract address")

// DB is the node's local state: proposals of one engine and the journal of
// every log the node emitted.
type DB struct {
	chainID *big.Int
	mu      sync.Mutex
	db      *sql.DB
	rdb     *sql.DB

	ProposalDB *ProposalDB
	LogDB      *LogDB
}

// NewDB opens or creates the sqlite database under basePath/data.
func NewDB(chainID *big.Int, basePath, engine string) (*DB, error) {
	folderPath := fmt.Sprintf("%s/%s", basePath, dbBaseFolder)
	path := fmt.Sprintf("%s/governance.db", folderPath)

	if err := storage.EnsureDir(folderPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, dbConfigString))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)

	d := &DB{
		chainID: chainID,
		db:      db,
		rdb:     db,
	}

	suffix, err := d.TableNameSuffix(engine)
	if err != nil {
		return nil, err
	}

	d.ProposalDB, err = NewProposalDB(db, db, suffix)
	if err != nil {
		return nil, err
	}

	exists, err := d.TableExists(fmt.Sprintf("t_proposals_%s", suffix))
	if err != nil {
		return nil, err
	}

	if !exists {
		log.Default().Println("creating proposal table for: ", suffix)

		err = d.ProposalDB.CreateProposalTable()
		if err != nil {
			return nil, err
		}

		err = d.ProposalDB.CreateProposalTableIndexes()
		if err != nil {
			return nil, err
		}
	}

	d.LogDB, err = NewLogDB(db, db, chainID.String())
	if err != nil {
		return nil, err
	}

	exists, err = d.TableExists(fmt.Sprintf("t_logs_%s", chainID.String()))
	if err != nil {
		return nil, err
	}

	if !exists {
		log.Default().Println("creating log table for chain: ", chainID.String())

		err = d.LogDB.CreateLogTable()
		if err != nil {
			return nil, err
		}

		err = d.LogDB.CreateLogTableIndexes()
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// TableExists checks if a table exists in the database
func (d *DB) TableExists(tableName string) (bool, error) {
	row := d.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", tableName)
	var name string
	err := row.Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			// Table does not exist
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// TableNameSuffix returns the table suffix for the given contract
func (d *DB) TableNameSuffix(contract string) (string, error) {
	re := regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

	suffix := fmt.Sprintf("%v_%s", d.chainID, strings.ToLower(contract))

	if !re.MatchString(contract) {
		return suffix, ErrBadAddress
	}

	return suffix, nil
}

// indexSuffix keeps index names short and stable for a table suffix
func indexSuffix(suffix string) string {
	return fmt.Sprintf("%x", crypto.Keccak256([]byte(suffix))[:6])
}

// Close closes the db
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.db.Close()
}
