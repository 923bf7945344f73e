package govdb

import (
	"fmt"
	"time"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/queue"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lib/pq"
)

// Log is a mirrored log with its decoded event name.
type Log struct {
	Index       uint64    `json:"index"`
	Address     string    `json:"address"`
	Event       string    `json:"event"`
	Topics      []string  `json:"topics"`
	Data        string    `json:"data"`
	BlockNumber uint64    `json:"block_number"`
	CreatedAt   time.Time `json:"created_at"`
}

type LogDB struct {
	p *DB
}

func (ldb *LogDB) Create() error {
	_, err := ldb.p.db.Exec(fmt.Sprintf(`
	CREATE TABLE %s(
		idx bigint NOT NULL,
		address varchar(42) NOT NULL,
		event text NOT NULL,
		topics text ARRAY NOT NULL,
		data text NOT NULL,
		block_number bigint NOT NULL,
		created_at timestamp NOT NULL DEFAULT current_timestamp,
		UNIQUE (idx)
	);
	`, ldb.p.logsTableName()))
	if err != nil {
		return err
	}

	_, err = ldb.p.db.Exec(fmt.Sprintf(`
	CREATE INDEX idx_%s_address_event ON %s (address, event);
	`, ldb.p.logsTableName(), ldb.p.logsTableName()))

	return err
}

func (ldb *LogDB) drop() error {
	_, err := ldb.p.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, ldb.p.logsTableName()))
	return err
}

func (ldb *LogDB) ensureExists() error {
	exists, err := ldb.p.checkTableExists(ldb.p.logsTableName())
	if err != nil {
		return err
	}

	if !exists {
		if err = ldb.Create(); err != nil {
			return err
		}
	}

	return nil
}

// AddLogs mirrors logs; already mirrored indexes are skipped.
func (ldb *LogDB) AddLogs(logs []types.Log) error {
	tx, err := ldb.p.db.Begin()
	if err != nil {
		return err
	}

	for _, l := range logs {
		if len(l.Topics) == 0 {
			tx.Rollback()
			return fmt.Errorf("%w: log %d has no topics", govlog.ErrMalformedLog, l.Index)
		}

		topics := make([]string, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = t.Hex()
		}

		_, err = tx.Exec(fmt.Sprintf(`
		INSERT INTO %s (idx, address, event, topics, data, block_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idx) DO NOTHING
		`, ldb.p.logsTableName()), l.Index, l.Address.Hex(), govlog.EventName(l.Topics[0]), pq.Array(topics), hexutil.Encode(l.Data), l.BlockNumber)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Process implements queue.Processor.
func (ldb *LogDB) Process(m queue.Message) error {
	return ldb.AddLogs(m.Logs)
}

// GetLogs returns the mirrored logs of address, optionally of one event,
// from index on.
func (ldb *LogDB) GetLogs(address common.Address, event string, from uint64, limit int) ([]*Log, error) {
	rows, err := ldb.p.rdb.Query(fmt.Sprintf(`
	SELECT idx, address, event, topics, data, block_number, created_at
	FROM %s
	WHERE address = $1 AND ($2 = '' OR event = $2) AND idx >= $3
	ORDER BY idx ASC
	LIMIT $4
	`, ldb.p.logsTableName()), address.Hex(), event, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*Log{}
	for rows.Next() {
		var l Log
		err = rows.Scan(&l.Index, &l.Address, &l.Event, pq.Array(&l.Topics), &l.Data, &l.BlockNumber, &l.CreatedAt)
		if err != nil {
			return nil, err
		}

		logs = append(logs, &l)
	}

	return logs, rows.Err()
}

// LastIndex is the highest mirrored index, or -1 when empty.
func (ldb *LogDB) LastIndex() (int64, error) {
	var idx int64
	err := ldb.p.rdb.QueryRow(fmt.Sprintf(`SELECT COALESCE(MAX(idx), -1) FROM %s`, ldb.p.logsTableName())).Scan(&idx)
	if err != nil {
		return 0, err
	}

	return idx, nil
}
