package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/bagbot/internal/model"
	"github.com/xxxsen/bagbot/internal/pkg/dbutil"
	appErr "github.com/xxxsen/bagbot/internal/pkg/errors"
)

// VectorRepo stores policy documents in pgvector tables. A keyspace maps to
// a postgres schema and a collection to a table inside it; the
// vector_collections table records dimension and metric for each.
type VectorRepo struct {
	db       *sql.DB
	keyspace string
}

func NewVectorRepo(db *sql.DB, keyspace string) *VectorRepo {
	return &VectorRepo{db: db, keyspace: keyspace}
}

var collectionFields = []string{"name", "dimension", "metric", "ctime"}

func (r *VectorRepo) ListCollections(ctx context.Context) ([]model.VectorCollection, error) {
	where := map[string]interface{}{"keyspace": r.keyspace, "_orderby": "name asc"}
	sqlStr, args, err := builder.BuildSelect("vector_collections", where, collectionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.VectorCollection, 0)
	for rows.Next() {
		var item model.VectorCollection
		if err := rows.Scan(&item.Name, &item.Dimension, &item.Metric, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *VectorRepo) GetCollection(ctx context.Context, name string) (*model.VectorCollection, error) {
	where := map[string]interface{}{"keyspace": r.keyspace, "name": name}
	sqlStr, args, err := builder.BuildSelect("vector_collections", where, collectionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var item model.VectorCollection
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&item.Name, &item.Dimension, &item.Metric, &item.Ctime)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateCollection creates the backing table and registers it. It returns
// ErrConflict when the collection is already registered.
func (r *VectorRepo) CreateCollection(ctx context.Context, coll *model.VectorCollection) error {
	if _, err := distanceOperator(coll.Metric); err != nil {
		return err
	}
	table, err := dbutil.QualifiedName(r.keyspace, coll.Name)
	if err != nil {
		return err
	}
	if coll.Ctime == 0 {
		coll.Ctime = time.Now().Unix()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	data := map[string]interface{}{
		"keyspace":  r.keyspace,
		"name":      coll.Name,
		"dimension": coll.Dimension,
		"metric":    coll.Metric,
		"ctime":     coll.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("vector_collections", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	if r.keyspace != "" {
		schema, err := dbutil.QuoteIdent(r.keyspace)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return err
		}
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		category TEXT NOT NULL,
		type TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, table, coll.Dimension)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *VectorRepo) Upsert(ctx context.Context, collection string, doc *model.PolicyDocument) error {
	table, err := dbutil.QualifiedName(r.keyspace, collection)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, text, category, type, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			text = EXCLUDED.text,
			category = EXCLUDED.category,
			type = EXCLUDED.type,
			embedding = EXCLUDED.embedding
	`, table)
	_, err = r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.Text,
		doc.Category,
		doc.Type,
		pgvector.NewVector(doc.Embedding),
	)
	return err
}

func (r *VectorRepo) Search(ctx context.Context, collection string, query []float32, topK int) ([]model.KnowledgeMatch, error) {
	coll, err := r.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	op, err := distanceOperator(coll.Metric)
	if err != nil {
		return nil, err
	}
	table, err := dbutil.QualifiedName(r.keyspace, collection)
	if err != nil {
		return nil, err
	}
	sqlStr := fmt.Sprintf(`
		SELECT id, title, text, category, type, embedding %s $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2
	`, op, table)
	rows, err := r.db.QueryContext(ctx, sqlStr, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	matches := make([]model.KnowledgeMatch, 0, topK)
	for rows.Next() {
		var m model.KnowledgeMatch
		var distance float64
		if err := rows.Scan(&m.ID, &m.Title, &m.Text, &m.Category, &m.Type, &distance); err != nil {
			return nil, err
		}
		m.Score = similarityFromDistance(coll.Metric, distance)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func distanceOperator(metric string) (string, error) {
	switch metric {
	case model.MetricDotProduct:
		return "<#>", nil
	case model.MetricCosine:
		return "<=>", nil
	case model.MetricEuclidean:
		return "<->", nil
	default:
		return "", fmt.Errorf("unsupported vector metric: %s", metric)
	}
}

// similarityFromDistance converts pgvector distances so that larger is
// always closer. <#> yields the negated inner product.
func similarityFromDistance(metric string, distance float64) float64 {
	switch metric {
	case model.MetricDotProduct:
		return -distance
	case model.MetricCosine:
		return 1 - distance
	default:
		return 1 / (1 + distance)
	}
}
