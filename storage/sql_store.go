package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"voting-ledger/fault"
	"voting-ledger/models"
)

// Supported database types
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLStore struct {
	db      *sql.DB
	dialect string
	log     *logger.L
}

// Open connects to the database named by databaseType and url and makes sure
// the schema exists.
func Open(ctx context.Context, databaseType string, url string) (*SQLStore, error) {
	var driver string
	switch databaseType {
	case SQLite:
		driver = "sqlite"
	case Postgres:
		driver = "postgres"
	default:
		return nil, fault.ErrUnknownDatabaseType
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fault.NewStoreError("open", err)
	}
	if databaseType == SQLite {
		// a single connection serialises writers and keeps in-memory
		// databases on one handle
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fault.NewStoreError("ping", err)
	}

	s, err := NewSQLStore(ctx, db, databaseType)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect string) (*SQLStore, error) {
	if err := CreateSchema(ctx, db); err != nil {
		return nil, fault.NewStoreError("schema", err)
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		log:     logger.New("storage"),
	}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SQLStore) count(ctx context.Context, op string, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fault.NewStoreError(op, err)
	}
	return n, nil
}

// Votes

func (s *SQLStore) FindVote(ctx context.Context, voterID string) (*models.VoteRecord, error) {
	var (
		record models.VoteRecord
		castAt string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, candidate_name, voter_id, cast_at, block_hash, previous_hash
		FROM votes WHERE voter_id = ?
	`), voterID).Scan(&record.ID, &record.CandidateName, &record.VoterID, &castAt, &record.BlockHash, &record.PreviousHash)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fault.NewStoreError("find vote", err)
	}

	record.Timestamp = parseTime(castAt)
	return &record, nil
}

// InsertVote stores record. A second record for the same voter is rejected
// by the unique constraint and reported as a duplicate vote.
func (s *SQLStore) InsertVote(ctx context.Context, record *models.VoteRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO votes (id, candidate_name, voter_id, cast_at, block_hash, previous_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`), record.ID, record.CandidateName, record.VoterID, formatTime(record.Timestamp), record.BlockHash, record.PreviousHash)

	if isUniqueViolation(err) {
		s.log.Warnf("unique constraint rejected second vote for voter: %s", record.VoterID)
		return fault.ErrDuplicateVote
	}
	return fault.NewStoreError("insert vote", err)
}

func (s *SQLStore) ListVotes(ctx context.Context) ([]*models.VoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, candidate_name, voter_id, cast_at, block_hash, previous_hash
		FROM votes ORDER BY cast_at ASC
	`)
	if err != nil {
		return nil, fault.NewStoreError("list votes", err)
	}
	defer rows.Close()

	votes := make([]*models.VoteRecord, 0)
	for rows.Next() {
		var (
			record models.VoteRecord
			castAt string
		)
		if err := rows.Scan(&record.ID, &record.CandidateName, &record.VoterID, &castAt, &record.BlockHash, &record.PreviousHash); err != nil {
			return nil, fault.NewStoreError("scan vote", err)
		}
		record.Timestamp = parseTime(castAt)
		votes = append(votes, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStoreError("list votes", err)
	}
	return votes, nil
}

// CandidateVotes aggregates the vote records by candidate name.
func (s *SQLStore) CandidateVotes(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_name, COUNT(*) FROM votes GROUP BY candidate_name
	`)
	if err != nil {
		return nil, fault.NewStoreError("candidate votes", err)
	}
	defer rows.Close()

	results := make(map[string]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fault.NewStoreError("scan candidate votes", err)
		}
		results[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStoreError("candidate votes", err)
	}
	return results, nil
}

func (s *SQLStore) CountVotes(ctx context.Context) (int, error) {
	return s.count(ctx, "count votes", `SELECT COUNT(*) FROM votes`)
}

// Candidates

func (s *SQLStore) ListCandidates(ctx context.Context) ([]*models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, party, constituency, photo, created_at
		FROM candidates ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fault.NewStoreError("list candidates", err)
	}
	defer rows.Close()

	candidates := make([]*models.Candidate, 0)
	for rows.Next() {
		var (
			candidate models.Candidate
			photo     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&candidate.ID, &candidate.Name, &candidate.Party, &candidate.Constituency, &photo, &createdAt); err != nil {
			return nil, fault.NewStoreError("scan candidate", err)
		}
		candidate.Photo = photo.String
		candidate.CreatedAt = parseTime(createdAt)
		candidates = append(candidates, &candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStoreError("list candidates", err)
	}
	return candidates, nil
}

func (s *SQLStore) AddCandidate(ctx context.Context, candidate *models.Candidate) (string, error) {
	if candidate.Name == "" || candidate.Party == "" {
		return "", fault.ErrNameAndPartyMissing
	}
	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now()
	}

	var photo sql.NullString
	if candidate.Photo != "" {
		photo = sql.NullString{String: candidate.Photo, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO candidates (id, name, party, constituency, photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), candidate.ID, candidate.Name, candidate.Party, candidate.Constituency, photo, formatTime(candidate.CreatedAt))
	if err != nil {
		return "", fault.NewStoreError("add candidate", err)
	}
	return candidate.ID, nil
}

func (s *SQLStore) UpdateCandidate(ctx context.Context, id string, update models.CandidateUpdate) error {
	if _, err := uuid.Parse(id); err != nil {
		return fault.ErrInvalidCandidateID
	}

	var (
		result sql.Result
		err    error
	)
	if update.Photo != nil {
		result, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE candidates SET name = ?, party = ?, constituency = ?, photo = ? WHERE id = ?
		`), update.Name, update.Party, update.Constituency, *update.Photo, id)
	} else {
		result, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE candidates SET name = ?, party = ?, constituency = ? WHERE id = ?
		`), update.Name, update.Party, update.Constituency, id)
	}
	if err != nil {
		return fault.NewStoreError("update candidate", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fault.NewStoreError("update candidate", err)
	}
	if n == 0 {
		return fault.ErrCandidateNotFound
	}
	return nil
}

// DeleteCandidate removes a candidate; deleting an unknown id succeeds.
func (s *SQLStore) DeleteCandidate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fault.ErrInvalidCandidateID
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM candidates WHERE id = ?`), id)
	return fault.NewStoreError("delete candidate", err)
}

func (s *SQLStore) CountCandidates(ctx context.Context) (int, error) {
	return s.count(ctx, "count candidates", `SELECT COUNT(*) FROM candidates`)
}

// Voters

func (s *SQLStore) InsertVoter(ctx context.Context, voter *models.Voter) error {
	if voter.CreatedAt.IsZero() {
		voter.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO voters (voter_id, name, mobile, created_at) VALUES (?, ?, ?, ?)
	`), voter.VoterID, voter.Name, voter.Mobile, formatTime(voter.CreatedAt))

	if isUniqueViolation(err) {
		return fault.ErrDuplicateVoter
	}
	return fault.NewStoreError("insert voter", err)
}

func (s *SQLStore) FindVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	var (
		voter     models.Voter
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT voter_id, name, mobile, created_at FROM voters WHERE voter_id = ?
	`), voterID).Scan(&voter.VoterID, &voter.Name, &voter.Mobile, &createdAt)

	if err == sql.ErrNoRows {
		return nil, fault.ErrVoterNotFound
	}
	if err != nil {
		return nil, fault.NewStoreError("find voter", err)
	}
	voter.CreatedAt = parseTime(createdAt)
	return &voter, nil
}

func (s *SQLStore) CountVoters(ctx context.Context) (int, error) {
	return s.count(ctx, "count voters", `SELECT COUNT(*) FROM voters`)
}
