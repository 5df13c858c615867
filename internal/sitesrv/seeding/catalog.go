package seeding

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/profile"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// duplicate_column
const pgDuplicateColumn = "42701"

// seedCatalogIndexes adds one typed column per declared index to the shared
// catalog (and catalog_metadata) tables. This is the one soft-fail area of the
// seed: each index runs under its own savepoint, so a bad declaration is
// logged and skipped without poisoning the enclosing transaction. Duplicate
// columns are expected on re-seed and ignored outright.
func (s *Seeder) seedCatalogIndexes(ctx context.Context, tx *sql.Tx, p *profile.Profile) {
	for _, idx := range p.CatalogIndexes {
		s.addIndexColumn(ctx, tx, "catalog", idx)
	}
	for _, idx := range p.CatalogMetadata {
		s.addIndexColumn(ctx, tx, "catalog_metadata", idx)
	}
}

func (s *Seeder) addIndexColumn(ctx context.Context, tx *sql.Tx, table string, idx profile.CatalogIndex) {
	colType, ok := columnType(idx.Type)
	if !ok {
		log.Ctx(ctx).Error().Str("index", idx.Name).Str("type", string(idx.Type)).Msg("unknown catalog index type, skipping")
		return
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT catalog_index"); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to create savepoint")
		return
	}

	err := addColumnIfAbsent(ctx, tx, table, idx.Name, colType)
	if err == nil && idx.Type == types.IndexTypeFullText {
		// full-text columns get a dedicated text-search index
		stmt := "CREATE INDEX IF NOT EXISTS " + pq.QuoteIdentifier("idx_"+table+"_"+idx.Name+"_fts") +
			" ON " + pq.QuoteIdentifier(table) + " USING GIN (" + pq.QuoteIdentifier(idx.Name) + ")"
		_, err = tx.ExecContext(ctx, stmt)
	}

	if err != nil {
		if isDuplicateColumn(err) {
			// expected on re-seed
			tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT catalog_index")
			return
		}
		log.Ctx(ctx).Warn().Err(err).Str("table", table).Str("index", idx.Name).Msg("catalog index creation failed, continuing")
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT catalog_index"); rbErr != nil {
			log.Ctx(ctx).Error().Err(rbErr).Msg("failed to rollback catalog index savepoint")
		}
		return
	}
	tx.ExecContext(ctx, "RELEASE SAVEPOINT catalog_index")
}

// addColumnIfAbsent is the idempotent schema-migration primitive behind
// catalog index seeding.
func addColumnIfAbsent(ctx context.Context, tx *sql.Tx, table, column, colType string) error {
	stmt := "ALTER TABLE " + pq.QuoteIdentifier(table) + " ADD COLUMN IF NOT EXISTS " +
		pq.QuoteIdentifier(column) + " " + colType
	_, err := tx.ExecContext(ctx, stmt)
	return err
}

func columnType(t types.IndexType) (string, bool) {
	switch t {
	case types.IndexTypeString:
		return "VARCHAR(255)", true
	case types.IndexTypeInt:
		return "BIGINT", true
	case types.IndexTypeBool:
		return "BOOLEAN", true
	case types.IndexTypeDate:
		return "TIMESTAMPTZ", true
	case types.IndexTypeUUID:
		return "UUID", true
	case types.IndexTypeStringList:
		return "TEXT[]", true
	case types.IndexTypeUUIDList:
		return "UUID[]", true
	case types.IndexTypeFullText:
		return "TSVECTOR", true
	}
	return "", false
}

func isDuplicateColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateColumn
	}
	return false
}
