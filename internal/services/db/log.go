package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogDB is the local journal of emitted logs, keyed by journal index.
type LogDB struct {
	suffix string
	db     *sql.DB
	rdb    *sql.DB
}

// NewLogDB creates a new DB
func NewLogDB(db, rdb *sql.DB, name string) (*LogDB, error) {
	ldb := &LogDB{
		suffix: name,
		db:     db,
		rdb:    rdb,
	}

	return ldb, nil
}

// CreateLogTable creates a table to store logs in the given db
// topic0 is duplicated out of topics to filter by event
func (db *LogDB) CreateLogTable() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS t_logs_%s(
		idx integer NOT NULL PRIMARY KEY,
		address text NOT NULL,
		topic0 text NOT NULL,
		topics text NOT NULL,
		data text NOT NULL,
		block_number integer NOT NULL,
		created_at timestamp NOT NULL DEFAULT current_timestamp
	);
	`, db.suffix))

	return err
}

// CreateLogTableIndexes creates the indexes for logs in the given db
func (db *LogDB) CreateLogTableIndexes() error {
	suffix := indexSuffix(db.suffix)

	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_logs_%s_address_topic0 ON t_logs_%s (address, topic0);
	`, suffix, db.suffix))
	if err != nil {
		return err
	}

	_, err = db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_logs_%s_block_number ON t_logs_%s (block_number);
	`, suffix, db.suffix))
	if err != nil {
		return err
	}

	return nil
}

// AddLogs stores logs in one transaction
func (db *LogDB) AddLogs(logs []types.Log) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}

	for _, l := range logs {
		if len(l.Topics) == 0 {
			tx.Rollback()
			return fmt.Errorf("log %d has no topics", l.Index)
		}

		topics, err := json.Marshal(l.Topics)
		if err != nil {
			tx.Rollback()
			return err
		}

		_, err = tx.Exec(fmt.Sprintf(`
		INSERT INTO t_logs_%s (idx, address, topic0, topics, data, block_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT(idx) DO NOTHING
		`, db.suffix), l.Index, l.Address.Hex(), l.Topics[0].Hex(), string(topics), hexutil.Encode(l.Data), l.BlockNumber)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Emit persists logs as they are published; a failure is logged.
func (db *LogDB) Emit(logs ...types.Log) {
	err := db.AddLogs(logs)
	if err != nil {
		log.Default().Println("error persisting logs: ", err)
	}
}

// GetLogs returns up to limit logs starting at journal index from
func (db *LogDB) GetLogs(from uint, limit int) ([]types.Log, error) {
	rows, err := db.rdb.Query(fmt.Sprintf(`
	SELECT idx, address, topics, data, block_number
	FROM t_logs_%s
	WHERE idx >= $1
	ORDER BY idx ASC
	LIMIT $2
	`, db.suffix), from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogs(rows)
}

// GetAddressLogs returns the logs of address, optionally of one event
func (db *LogDB) GetAddressLogs(address common.Address, topic0 *common.Hash) ([]types.Log, error) {
	query := fmt.Sprintf(`
	SELECT idx, address, topics, data, block_number
	FROM t_logs_%s
	WHERE address = $1
	`, db.suffix)
	args := []any{address.Hex()}

	if topic0 != nil {
		query += " AND topic0 = $2"
		args = append(args, topic0.Hex())
	}

	query += " ORDER BY idx ASC"

	rows, err := db.rdb.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogs(rows)
}

// Count returns the number of stored logs
func (db *LogDB) Count() (uint, error) {
	var count uint
	err := db.rdb.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM t_logs_%s`, db.suffix)).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func scanLogs(rows *sql.Rows) ([]types.Log, error) {
	logs := []types.Log{}
	for rows.Next() {
		var (
			l       types.Log
			address string
			topics  string
			data    string
		)

		err := rows.Scan(&l.Index, &address, &topics, &data, &l.BlockNumber)
		if err != nil {
			return nil, err
		}

		l.Address = common.HexToAddress(address)

		err = json.Unmarshal([]byte(topics), &l.Topics)
		if err != nil {
			return nil, err
		}

		l.Data, err = hexutil.Decode(data)
		if err != nil {
			return nil, err
		}

		logs = append(logs, l)
	}

	return logs, rows.Err()
}
