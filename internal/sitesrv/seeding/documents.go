package seeding

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/profile"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// documentColumns are the declaration keys stored as document-table columns
// (or, for created/modified, superseded by the table's own timestamps); every
// other declared field ends up in the JSONB payload.
var documentColumns = []string{
	"uuid", "id", "type", "title", "owner", "review_state", "language", "locked_by", "position",
	"created", "modified",
}

// DocPlan is the insertion plan for one declared document: tree placement
// derived from its dot-joined file name.
type DocPlan struct {
	Name       string
	ID         string
	Path       string
	ParentPath string
	Data       []byte
}

// PlanDocuments orders the flat file set so parents always precede children
// and derives each document's materialized path from its slug path. The root
// sentinel is emitted first explicitly: slugs may start with a digit, which
// sorts below "_", so the sentinel cannot rely on the lexicographic order that
// places "events" before "events.event-1".
func PlanDocuments(files []profile.DocumentFile) []DocPlan {
	sorted := make([]profile.DocumentFile, 0, len(files))
	plans := make([]DocPlan, 0, len(files))
	for _, f := range files {
		if f.Name == types.RootDocumentName {
			plans = append(plans, DocPlan{Name: f.Name, Path: "/", Data: f.Data})
			continue
		}
		sorted = append(sorted, f)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, f := range sorted {
		p := DocPlan{Name: f.Name, Data: f.Data}
		segments := strings.Split(f.Name, ".")
		p.ID = segments[len(segments)-1]
		p.Path = "/" + strings.Join(segments, "/")
		if len(segments) == 1 {
			p.ParentPath = "/"
		} else {
			p.ParentPath = "/" + strings.Join(segments[:len(segments)-1], "/")
		}
		plans = append(plans, p)
	}
	return plans
}

// DocumentUUID derives the stable identifier for a document that does not
// declare one: a v5 UUID over tenant id and materialized path, so re-seeding
// upserts the same rows.
func DocumentUUID(tenantID types.TenantId, path string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("lunasites:"+tenantID.String()+":"+path))
}

// seedDocuments reconstructs the hierarchical document tree from the flat
// declaration set. Orphans (a parent path that resolves to nothing) are
// skipped with a warning; one malformed document never fails the import.
func (s *Seeder) seedDocuments(ctx context.Context, tx *sql.Tx, sc *Context, files []profile.DocumentFile) apperrors.Error {
	for _, plan := range PlanDocuments(files) {
		var parentUUID *uuid.UUID
		if plan.Path != "/" {
			parent, err := lookupDocumentByPath(ctx, tx, plan.ParentPath)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					log.Ctx(ctx).Warn().Str("document", plan.Name).Str("parent_path", plan.ParentPath).Msg("parent not found, skipping document")
					continue
				}
				return seedErr(ctx, "document", plan.Name, err)
			}
			parentUUID = &parent
		}

		docUUID := DocumentUUID(sc.TenantID, plan.Path)
		if declared := gjson.GetBytes(plan.Data, "uuid"); declared.Exists() {
			parsed, err := uuid.Parse(declared.String())
			if err != nil {
				log.Ctx(ctx).Warn().Str("document", plan.Name).Str("uuid", declared.String()).Msg("bad declared uuid, deriving one")
			} else {
				docUUID = parsed
			}
		}

		position := 0
		if plan.Path != "/" {
			if declared := gjson.GetBytes(plan.Data, "position"); declared.Exists() {
				position = int(declared.Int())
				sc.ReservePosition(plan.ParentPath, position)
			} else {
				position = sc.NextPosition(plan.ParentPath)
			}
		}

		owner := gjson.GetBytes(plan.Data, "owner").String()
		if owner == "" {
			owner = types.SystemUserAdmin
		}

		payload := plan.Data
		for _, col := range documentColumns {
			var err error
			payload, err = sjson.DeleteBytes(payload, col)
			if err != nil {
				return seedErr(ctx, "document", plan.Name, err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (uuid, parent_uuid, doc_id, path, position, type_id, title,
				owner, review_state, language, locked_by, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12)
			ON CONFLICT (uuid) DO UPDATE SET
				parent_uuid = EXCLUDED.parent_uuid,
				doc_id = EXCLUDED.doc_id,
				path = EXCLUDED.path,
				position = EXCLUDED.position,
				type_id = EXCLUDED.type_id,
				title = EXCLUDED.title,
				owner = EXCLUDED.owner,
				review_state = EXCLUDED.review_state,
				language = EXCLUDED.language,
				locked_by = EXCLUDED.locked_by,
				payload = EXCLUDED.payload,
				updated_at = now()`,
			docUUID, parentUUID, plan.ID, plan.Path, position,
			gjson.GetBytes(plan.Data, "type").String(),
			gjson.GetBytes(plan.Data, "title").String(),
			owner,
			gjson.GetBytes(plan.Data, "review_state").String(),
			gjson.GetBytes(plan.Data, "language").String(),
			gjson.GetBytes(plan.Data, "locked_by").String(),
			payload)
		if err != nil {
			return seedErr(ctx, "document", plan.Name, err)
		}

		// mirror the document into the shared catalog tables so the dynamic
		// index columns have a row to land on
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog (uuid) VALUES ($1) ON CONFLICT (uuid) DO NOTHING`, docUUID); err != nil {
			return seedErr(ctx, "document", plan.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_metadata (uuid) VALUES ($1) ON CONFLICT (uuid) DO NOTHING`, docUUID); err != nil {
			return seedErr(ctx, "document", plan.Name, err)
		}
	}
	return nil
}

func lookupDocumentByPath(ctx context.Context, tx *sql.Tx, path string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT uuid FROM documents WHERE path = $1`, path).Scan(&id)
	return id, err
}
