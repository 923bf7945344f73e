package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/common"
)

var _ voting.ProposalStore = (*ProposalDB)(nil)

// ProposalDB stores the proposals of one engine. It implements
// voting.ProposalStore.
type ProposalDB struct {
	suffix string
	db     *sql.DB
	rdb    *sql.DB
}

// NewProposalDB creates a new DB
func NewProposalDB(db, rdb *sql.DB, name string) (*ProposalDB, error) {
	pdb := &ProposalDB{
		suffix: name,
		db:     db,
		rdb:    rdb,
	}

	return pdb, nil
}

// CreateProposalTable creates a table to store proposals in the given db
// data holds the full proposal, the other columns are for filtering
func (db *ProposalDB) CreateProposalTable() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS t_proposals_%s(
		id integer NOT NULL PRIMARY KEY,
		creator text NOT NULL,
		executed boolean NOT NULL DEFAULT false,
		snapshot_block integer NOT NULL,
		start_date integer NOT NULL,
		end_date integer NOT NULL,
		data jsonb NOT NULL,
		created_at timestamp NOT NULL DEFAULT current_timestamp,
		updated_at timestamp NOT NULL DEFAULT current_timestamp
	);
	`, db.suffix))

	return err
}

// CreateProposalTableIndexes creates the indexes for proposals in the given db
func (db *ProposalDB) CreateProposalTableIndexes() error {
	suffix := indexSuffix(db.suffix)

	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_proposals_%s_creator ON t_proposals_%s (creator);
	`, suffix, db.suffix))
	if err != nil {
		return err
	}

	_, err = db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_proposals_%s_executed_end_date ON t_proposals_%s (executed, end_date);
	`, suffix, db.suffix))
	if err != nil {
		return err
	}

	return nil
}

func (db *ProposalDB) NextID() (uint64, error) {
	count, err := db.Count()
	if err != nil {
		return 0, err
	}

	return uint64(count), nil
}

func (db *ProposalDB) Count() (int, error) {
	var count int
	err := db.rdb.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM t_proposals_%s`, db.suffix)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting proposals: %w", err)
	}

	return count, nil
}

// Insert adds a proposal, its id must be the next one
func (db *ProposalDB) Insert(p *voting.Proposal) error {
	next, err := db.NextID()
	if err != nil {
		return err
	}

	if p.ID != next {
		return fmt.Errorf("inserting proposal %d: next id is %d", p.ID, next)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	_, err = db.db.Exec(fmt.Sprintf(`
	INSERT INTO t_proposals_%s (id, creator, executed, snapshot_block, start_date, end_date, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, db.suffix), p.ID, p.Creator.Hex(), p.Executed, p.SnapshotBlock, p.StartDate, p.EndDate, string(data))

	return err
}

// Update replaces the stored state of a proposal
func (db *ProposalDB) Update(p *voting.Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	res, err := db.db.Exec(fmt.Sprintf(`
	UPDATE t_proposals_%s SET executed = $1, data = $2, updated_at = current_timestamp
	WHERE id = $3
	`, db.suffix), p.Executed, string(data), p.ID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("%w: %d", voting.ErrProposalNotFound, p.ID)
	}

	return nil
}

func (db *ProposalDB) Get(id uint64) (*voting.Proposal, error) {
	var data string
	err := db.rdb.QueryRow(fmt.Sprintf(`
	SELECT data FROM t_proposals_%s WHERE id = $1
	`, db.suffix), id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", voting.ErrProposalNotFound, id)
		}

		return nil, err
	}

	return decodeProposal(data)
}

// List returns up to limit proposals in id order starting at offset
func (db *ProposalDB) List(offset, limit int) ([]*voting.Proposal, error) {
	ps := []*voting.Proposal{}
	if offset < 0 || limit <= 0 {
		return ps, nil
	}

	rows, err := db.rdb.Query(fmt.Sprintf(`
	SELECT data FROM t_proposals_%s ORDER BY id ASC LIMIT $1 OFFSET $2
	`, db.suffix), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		err = rows.Scan(&data)
		if err != nil {
			return nil, err
		}

		p, err := decodeProposal(data)
		if err != nil {
			return nil, err
		}

		ps = append(ps, p)
	}

	return ps, rows.Err()
}

func decodeProposal(data string) (*voting.Proposal, error) {
	var p voting.Proposal
	err := json.Unmarshal([]byte(data), &p)
	if err != nil {
		return nil, err
	}

	if p.Voters == nil {
		p.Voters = map[common.Address]voting.VoterState{}
	}

	return &p, nil
}
