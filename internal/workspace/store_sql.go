package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Put(ctx context.Context, c Class) error {
	sj, err := json.Marshal(c.Subjects)
	if err != nil {
		return err
	}
	students := c.Students
	if students == nil {
		students = []gradebook.Student{}
	}
	rj, err := json.Marshal(students)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO classes
		(id,phase,subjects_json,max_marks,student_count,students_json,error,error_kind,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
		  phase=EXCLUDED.phase, subjects_json=EXCLUDED.subjects_json, max_marks=EXCLUDED.max_marks,
		  student_count=EXCLUDED.student_count, students_json=EXCLUDED.students_json,
		  error=EXCLUDED.error, error_kind=EXCLUDED.error_kind, updated_at=EXCLUDED.updated_at`,
		c.ID, string(c.Phase), string(sj), c.MaxMarks, c.StudentCount, string(rj), c.Error, c.ErrorKind, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put class %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Class, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,phase,subjects_json,max_marks,student_count,students_json,error,error_kind,updated_at
		FROM classes WHERE id=$1`, id)
	c, err := scanClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Class{}, ErrNotFound
	}
	return c, err
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM classes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Class, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,phase,subjects_json,max_marks,student_count,students_json,error,error_kind,updated_at
		FROM classes ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClass(r rowScanner) (Class, error) {
	var (
		c             Class
		phase, sj, rj string
	)
	if err := r.Scan(&c.ID, &phase, &sj, &c.MaxMarks, &c.StudentCount, &rj, &c.Error, &c.ErrorKind, &c.UpdatedAt); err != nil {
		return Class{}, err
	}
	c.Phase = Phase(phase)
	if err := json.Unmarshal([]byte(sj), &c.Subjects); err != nil {
		return Class{}, fmt.Errorf("class %s subjects: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(rj), &c.Students); err != nil {
		return Class{}, fmt.Errorf("class %s students: %w", c.ID, err)
	}
	return c.decoded()
}
