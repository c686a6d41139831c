package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpDocument — документ каталога операторов.
//
// Спецификация хранится как непрозрачный JSON: репозиторий не знает
// о структуре спецификации, разбором занимается пакет catalog.
type OpDocument struct {
	// ID — уникальный идентификатор оператора (включая namespace).
	ID string

	// Version — версия оператора из манифеста.
	Version string

	// Spec — сериализованная спецификация оператора.
	Spec []byte
}

// OpRepo — хранилище документов каталога операторов.
type OpRepo struct {
	pool *pgxpool.Pool
}

// NewOpRepo создаёт новый OpRepo.
func NewOpRepo(pool *pgxpool.Pool) *OpRepo {
	return &OpRepo{pool: pool}
}

// Put сохраняет документ оператора.
//
// Без replace вставка под занятым идентификатором возвращает
// ErrAlreadyExists: конфликт ловится уникальным ограничением на
// уровне БД, поэтому гонка двух конкурирующих регистраций разрешается
// детерминированно — одна из вставок проигрывает.
func (r *OpRepo) Put(ctx context.Context, doc OpDocument, replace bool) error {
	if replace {
		query := `
			INSERT INTO operators (op_id, version, spec)
			VALUES ($1, $2, $3)
			ON CONFLICT (op_id) DO UPDATE SET version = $2, spec = $3
		`
		if _, err := r.pool.Exec(ctx, query, doc.ID, doc.Version, doc.Spec); err != nil {
			return fmt.Errorf("upsert operator: %w", err)
		}
		return nil
	}

	query := `INSERT INTO operators (op_id, version, spec) VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, query, doc.ID, doc.Version, doc.Spec); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert operator: %w", err)
	}
	return nil
}

// Get возвращает документ оператора по идентификатору.
func (r *OpRepo) Get(ctx context.Context, id string) (*OpDocument, error) {
	query := `SELECT op_id, version, spec FROM operators WHERE op_id = $1`

	var doc OpDocument
	err := r.pool.QueryRow(ctx, query, id).Scan(&doc.ID, &doc.Version, &doc.Spec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan operator: %w", err)
	}
	return &doc, nil
}

// List возвращает все документы каталога.
func (r *OpRepo) List(ctx context.Context) ([]OpDocument, error) {
	query := `SELECT op_id, version, spec FROM operators ORDER BY op_id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	var docs []OpDocument
	for rows.Next() {
		var doc OpDocument
		if err := rows.Scan(&doc.ID, &doc.Version, &doc.Spec); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
