package submissions

import (
	"context"
	"database/sql"
	"strings"

	"github.com/stereo-express/touch/pkg/cl/database"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

// Store persists submissions. Storage errors are logged and never returned:
// reads degrade to an empty result and writes to a zero count.
type Store interface {
	Select(ctx context.Context, ids ...int64) []Submission
	Insert(ctx context.Context, subs ...Submission) int64
	Update(ctx context.Context, subs ...Submission) int64
	Delete(ctx context.Context, ids ...int64) int64
}

// DBProvider provides access to the database.
type DBProvider interface {
	GetDB() *sql.DB
	Engine() string
}

type store struct {
	db  DBProvider
	log logger.Logger
}

// NewStore creates a Store over the submissions table.
func NewStore(db DBProvider, log logger.Logger) Store {
	return &store{db: db, log: log}
}

const insertColumns = `name, mail, subject_id, subject_name, message, newsletter, language, timestamp, ip_address, ip_address_proxy, user_agent`

func (s *store) q(query string) string {
	return database.Rebind(s.db.Engine(), query)
}

// Select returns every submission, or those with the given ids.
func (s *store) Select(ctx context.Context, ids ...int64) []Submission {
	query := `SELECT id, ` + insertColumns + ` FROM submissions`
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		query += ` WHERE id IN (` + database.Placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.GetDB().QueryContext(ctx, s.q(query), args...)
	if err != nil {
		s.log.Errorf("Cannot select submissions: %v", err)
		return []Submission{}
	}
	defer rows.Close()

	list := []Submission{}
	for rows.Next() {
		var sub Submission
		err := rows.Scan(&sub.ID, &sub.Name, &sub.Mail, &sub.SubjectID, &sub.SubjectName,
			&sub.Message, &sub.Newsletter, &sub.Language, &sub.Timestamp,
			&sub.IPAddress, &sub.IPAddressProxy, &sub.UserAgent)
		if err != nil {
			s.log.Errorf("Cannot scan submission: %v", err)
			return []Submission{}
		}
		list = append(list, sub)
	}
	if err := rows.Err(); err != nil {
		s.log.Errorf("Cannot select submissions: %v", err)
		return []Submission{}
	}
	return list
}

// Insert stores subs in one statement and returns the id of the last row,
// or 0 when nothing was stored.
func (s *store) Insert(ctx context.Context, subs ...Submission) int64 {
	if len(subs) == 0 {
		return 0
	}

	values := make([]string, 0, len(subs))
	args := make([]any, 0, len(subs)*11)
	for _, sub := range subs {
		values = append(values, `(`+database.Placeholders(11)+`)`)
		args = append(args, sub.Name, sub.Mail, sub.SubjectID, sub.SubjectName, sub.Message,
			sub.Newsletter, sub.Language, sub.Timestamp, sub.IPAddress, sub.IPAddressProxy, sub.UserAgent)
	}

	query := `INSERT INTO submissions (` + insertColumns + `) VALUES ` +
		strings.Join(values, ", ") + ` RETURNING id`

	rows, err := s.db.GetDB().QueryContext(ctx, s.q(query), args...)
	if err != nil {
		s.log.Errorf("Cannot insert submissions: %v", err)
		return 0
	}
	defer rows.Close()

	var last int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			s.log.Errorf("Cannot read inserted submission id: %v", err)
			return 0
		}
		if id > last {
			last = id
		}
	}
	if err := rows.Err(); err != nil {
		s.log.Errorf("Cannot insert submissions: %v", err)
		return 0
	}
	return last
}

// Update writes the editable columns of each submission, matched by id.
// Request metadata columns are never written. Rows are updated one by one;
// on failure the count reached so far is returned.
func (s *store) Update(ctx context.Context, subs ...Submission) int64 {
	query := s.q(`UPDATE submissions SET
		name = ?, mail = ?, subject_id = ?, subject_name = ?, message = ?,
		newsletter = ?, language = ?, timestamp = ?
		WHERE id = ?`)

	var count int64
	for _, sub := range subs {
		res, err := s.db.GetDB().ExecContext(ctx, query,
			sub.Name, sub.Mail, sub.SubjectID, sub.SubjectName, sub.Message,
			sub.Newsletter, sub.Language, sub.Timestamp, sub.ID)
		if err != nil {
			s.log.Errorf("Cannot update submission %d: %v", sub.ID, err)
			return count
		}
		n, err := res.RowsAffected()
		if err != nil {
			s.log.Errorf("Cannot count updated rows of submission %d: %v", sub.ID, err)
			return count
		}
		count += n
	}
	return count
}

// Delete removes the submissions with ids and returns how many were deleted.
func (s *store) Delete(ctx context.Context, ids ...int64) int64 {
	if len(ids) == 0 {
		return 0
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.GetDB().ExecContext(ctx,
		s.q(`DELETE FROM submissions WHERE id IN (`+database.Placeholders(len(ids))+`)`), args...)
	if err != nil {
		s.log.Errorf("Cannot delete submissions: %v", err)
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.log.Errorf("Cannot count deleted submissions: %v", err)
		return 0
	}
	return n
}

