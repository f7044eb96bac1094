package subjects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stereo-express/touch/pkg/cl/database"
)

var ErrSubjectNotFound = errors.New("subject not found")

// Repository reads subjects from the taxonomy tables.
type Repository interface {
	Published(ctx context.Context) ([]Subject, error)
	Get(ctx context.Context, id int64) (Subject, error)
	Upsert(ctx context.Context, s Subject) error
}

// DBProvider provides access to the database.
type DBProvider interface {
	GetDB() *sql.DB
	Engine() string
}

type sqlRepository struct {
	db DBProvider
}

// NewRepository returns a Repository over the subjects tables.
func NewRepository(db DBProvider) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) q(query string) string {
	return database.Rebind(r.db.Engine(), query)
}

const subjectColumns = `id, name, description, weight, mail, published`

func (r *sqlRepository) Published(ctx context.Context) ([]Subject, error) {
	rows, err := r.db.GetDB().QueryContext(ctx,
		r.q(`SELECT `+subjectColumns+` FROM subjects WHERE published = ? ORDER BY id`), true)
	if err != nil {
		return nil, fmt.Errorf("cannot list subjects: %w", err)
	}
	defer rows.Close()

	var list []Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot list subjects: %w", err)
	}

	if err := r.loadTranslations(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *sqlRepository) Get(ctx context.Context, id int64) (Subject, error) {
	row := r.db.GetDB().QueryRowContext(ctx,
		r.q(`SELECT `+subjectColumns+` FROM subjects WHERE id = ?`), id)

	s, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, ErrSubjectNotFound
	}
	if err != nil {
		return Subject{}, err
	}

	list := []Subject{s}
	if err := r.loadTranslations(ctx, list); err != nil {
		return Subject{}, err
	}
	return list[0], nil
}

func (r *sqlRepository) Upsert(ctx context.Context, s Subject) error {
	tx, err := r.db.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	var mail sql.NullString
	if s.HasMail {
		mail = sql.NullString{String: s.Mail, Valid: true}
	}

	_, err = tx.ExecContext(ctx, r.q(`
		INSERT INTO subjects (id, name, description, weight, mail, published)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			weight = excluded.weight,
			mail = excluded.mail,
			published = excluded.published`),
		s.ID, s.Name, s.Description, s.Weight, mail, s.Published)
	if err != nil {
		return fmt.Errorf("cannot upsert subject %d: %w", s.ID, err)
	}

	if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM subject_translations WHERE subject_id = ?`), s.ID); err != nil {
		return fmt.Errorf("cannot clear translations of subject %d: %w", s.ID, err)
	}
	for lang, tr := range s.Translations {
		_, err := tx.ExecContext(ctx, r.q(`
			INSERT INTO subject_translations (subject_id, language, name, description)
			VALUES (?, ?, ?, ?)`), s.ID, lang, tr.Name, tr.Description)
		if err != nil {
			return fmt.Errorf("cannot insert %s translation of subject %d: %w", lang, s.ID, err)
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) loadTranslations(ctx context.Context, list []Subject) error {
	if len(list) == 0 {
		return nil
	}

	index := make(map[int64]int, len(list))
	args := make([]any, 0, len(list))
	for i, s := range list {
		index[s.ID] = i
		args = append(args, s.ID)
	}

	rows, err := r.db.GetDB().QueryContext(ctx, r.q(`
		SELECT subject_id, language, name, description
		FROM subject_translations
		WHERE subject_id IN (`+database.Placeholders(len(args))+`)`), args...)
	if err != nil {
		return fmt.Errorf("cannot load subject translations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			lang string
			tr   Translation
		)
		if err := rows.Scan(&id, &lang, &tr.Name, &tr.Description); err != nil {
			return fmt.Errorf("cannot scan subject translation: %w", err)
		}
		s := &list[index[id]]
		if s.Translations == nil {
			s.Translations = make(map[string]Translation)
		}
		s.Translations[lang] = tr
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubject(row scanner) (Subject, error) {
	var (
		s    Subject
		mail sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Weight, &mail, &s.Published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, err
		}
		return Subject{}, fmt.Errorf("cannot scan subject: %w", err)
	}
	s.HasMail = mail.Valid
	s.Mail = mail.String
	return s, nil
}
