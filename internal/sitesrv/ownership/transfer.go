// Package ownership rewrites all ownership and actor attribution in a cloned
// tenant database from the template's original owner to the new tenant's
// owner. Used only on template-based creation; failure here is fatal to the
// provisioning flow and is never retried.
package ownership

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/sitecommon"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

var (
	ErrTransfer       apperrors.Error = apperrors.New("ownership transfer error").SetStatusCode(http.StatusInternalServerError)
	ErrTransferFailed apperrors.Error = ErrTransfer.New("ownership transfer failed").SetStatusCode(http.StatusInternalServerError)
)

const adminRole = "manager"

// userReferences lists every table/column pair that attributes rows to a user
// identity. Transfer rewrites all of them; the zero-rows-left property in the
// tests depends on this list staying complete.
var userReferences = [][2]string{
	{"documents", "owner"},
	{"documents", "locked_by"},
	{"versions", "actor"},
	{"user_roles", "user_id"},
	{"user_groups", "user_id"},
	{"document_roles", "user_id"},
}

// Transfer moves all ownership in the tenant database to newOwner: the
// template's primary non-system user is renamed in place and every reference
// rewritten; content still attributed to the reserved admin account is
// reassigned before that account is deleted.
func Transfer(ctx context.Context, db *sql.DB, newOwner sitecommon.UserIdentity) (err apperrors.Error) {
	if newOwner.ID == "" {
		return ErrTransfer.Msg("missing new owner identity")
	}
	if types.IsSystemUser(newOwner.ID) {
		return ErrTransfer.Msg("cannot transfer ownership to a reserved account").Suffix(string(newOwner.ID))
	}

	tx, errdb := db.BeginTx(ctx, &sql.TxOptions{})
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to start transfer transaction")
		return ErrTransferFailed.Err(errdb)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transfer transaction")
			}
		}
	}()

	oldID, errdb := primaryUser(ctx, tx)
	if errdb != nil && !errors.Is(errdb, sql.ErrNoRows) {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to find template owner")
		return ErrTransferFailed.Err(errdb)
	}

	switch {
	case errdb != nil:
		// template has no non-system user; the new owner is inserted fresh
		if err = insertOwner(ctx, tx, newOwner); err != nil {
			return err
		}
	case oldID == newOwner.ID:
		// owner cloned their own template, nothing to rename
		log.Ctx(ctx).Info().Str("user_id", string(oldID)).Msg("template already owned by new owner")
	default:
		if err = renameUser(ctx, tx, oldID, newOwner); err != nil {
			return err
		}
	}

	// idempotent admin grant for the new owner
	if _, errdb := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, newOwner.ID, adminRole); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to grant admin role")
		return ErrTransferFailed.Err(errdb)
	}

	if err = retireReservedAdmin(ctx, tx, newOwner.ID); err != nil {
		return err
	}

	if errdb := tx.Commit(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transfer transaction")
		return ErrTransferFailed.Err(errdb)
	}
	log.Ctx(ctx).Info().
		Str("tenant_id", sitecommon.TenantIdFromContext(ctx).String()).
		Str("new_owner", string(newOwner.ID)).
		Msg("ownership transferred")
	return nil
}

// primaryUser returns the template's current primary non-system user.
func primaryUser(ctx context.Context, tx *sql.Tx) (types.UserId, error) {
	var id types.UserId
	err := tx.QueryRowContext(ctx, `
		SELECT user_id FROM users
		WHERE user_id NOT IN ($1, $2, $3)
		ORDER BY created_at, user_id
		LIMIT 1`,
		types.SystemUserAdmin, types.SystemUserSystem, types.SystemUserAnonymous).Scan(&id)
	return id, err
}

func insertOwner(ctx context.Context, tx *sql.Tx, owner sitecommon.UserIdentity) apperrors.Error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, email, name) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name`,
		owner.ID, owner.Email, owner.Name)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert owner")
		return ErrTransferFailed.Err(err)
	}
	return nil
}

// renameUser renames the user record in place and rewrites every reference to
// the old identity.
func renameUser(ctx context.Context, tx *sql.Tx, oldID types.UserId, owner sitecommon.UserIdentity) apperrors.Error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users SET user_id = $2, email = $3, name = $4 WHERE user_id = $1`,
		oldID, owner.ID, owner.Email, owner.Name)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("old", string(oldID)).Msg("failed to rename user")
		return ErrTransferFailed.Err(err)
	}
	for _, ref := range userReferences {
		// identifiers come from the fixed reference list above, not input
		stmt := "UPDATE " + ref[0] + " SET " + ref[1] + " = $2 WHERE " + ref[1] + " = $1"
		if _, err := tx.ExecContext(ctx, stmt, oldID, owner.ID); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("table", ref[0]).Str("column", ref[1]).Msg("failed to rewrite user reference")
			return ErrTransferFailed.Err(err)
		}
	}
	return nil
}

// retireReservedAdmin reassigns content still attributed to the reserved admin
// account to the new owner and then deletes the account. Reassignment must
// happen before deletion: the admin's content would otherwise be orphaned.
func retireReservedAdmin(ctx context.Context, tx *sql.Tx, newOwner types.UserId) apperrors.Error {
	for _, ref := range [][2]string{{"documents", "owner"}, {"versions", "actor"}} {
		stmt := "UPDATE " + ref[0] + " SET " + ref[1] + " = $2 WHERE " + ref[1] + " = $1"
		if _, err := tx.ExecContext(ctx, stmt, types.SystemUserAdmin, newOwner); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("table", ref[0]).Msg("failed to reassign reserved admin content")
			return ErrTransferFailed.Err(err)
		}
	}
	for _, stmt := range []string{
		`DELETE FROM user_roles WHERE user_id = $1`,
		`DELETE FROM user_groups WHERE user_id = $1`,
		`DELETE FROM users WHERE user_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, types.SystemUserAdmin); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to delete reserved admin account")
			return ErrTransferFailed.Err(err)
		}
	}
	return nil
}
