package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aldr/autonomi-service/internal/model"
)

// MySQL persists records in the health_records table created by
// database.EnsureSchema.
type MySQL struct{ DB *sql.DB }

func NewMySQL(db *sql.DB) *MySQL { return &MySQL{DB: db} }

// Put upserts the record under its content address.
func (s *MySQL) Put(ctx context.Context, rec model.HealthRecord) (model.Receipt, error) {
	id, err := Address(rec)
	if err != nil {
		return model.Receipt{}, err
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO health_records (id, owner_id, record_type, title, content, record_date)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE id = id`,
		id, rec.OwnerID, rec.RecordType, rec.Title, rec.Content, rec.Date)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("insert record %s: %w", id, err)
	}
	return model.Receipt{ID: id, Stored: true}, nil
}

func (s *MySQL) Get(ctx context.Context, id string) (model.HealthRecord, error) {
	var rec model.HealthRecord
	var rid string
	err := s.DB.QueryRowContext(ctx,
		"SELECT id, owner_id, record_type, title, content, record_date FROM health_records WHERE id=? LIMIT 1",
		id).Scan(&rid, &rec.OwnerID, &rec.RecordType, &rec.Title, &rec.Content, &rec.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return model.HealthRecord{}, ErrNotFound
	}
	if err != nil {
		return model.HealthRecord{}, fmt.Errorf("select record %s: %w", id, err)
	}
	return rec.WithID(rid), nil
}

func (s *MySQL) List(ctx context.Context) ([]model.HealthRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, owner_id, record_type, title, content, record_date FROM health_records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []model.HealthRecord{}
	for rows.Next() {
		var rec model.HealthRecord
		var rid string
		if err := rows.Scan(&rid, &rec.OwnerID, &rec.RecordType, &rec.Title, &rec.Content, &rec.Date); err != nil {
			return nil, err
		}
		out = append(out, rec.WithID(rid))
	}
	return out, rows.Err()
}
