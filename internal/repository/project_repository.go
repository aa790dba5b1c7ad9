package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/project-hosting/internal/model"
)

// ProjectRepo implements the version state machine over the projects
// and project_versions tables. The invariant it maintains: a project
// with any versions has exactly one active version, never more. Bulk
// deactivate + point activate always run inside one transaction so
// no partially flipped state is ever visible outside it.
//
// Isolation: the default (READ COMMITTED or stronger) is sufficient
// here. Every writer UPDATEs the full set of the project's version
// rows first, so InnoDB row locks serialize concurrent writers on
// the same project; the last committed transaction wins and leaves
// exactly one active row.
type ProjectRepo struct{ DB *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{DB: db} }

// ExistsByName checks the global project namespace.
func (r *ProjectRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE name=? LIMIT 1", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateWithFirstVersion inserts the project and its active v1 row in
// one transaction. The caller has already written the blob; if this
// transaction fails the blob is left orphaned on purpose (harmless,
// documented) rather than half-deleting storage.
func (r *ProjectRepo) CreateWithFirstVersion(ctx context.Context, name, ownerID string) (projectID uint64, version model.ProjectVersion, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, model.ProjectVersion{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO projects (name, owner_id) VALUES (?,?)", name, ownerID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = ErrConflict
		}
		return 0, model.ProjectVersion{}, err
	}
	pid, err := res.LastInsertId()
	if err != nil {
		return 0, model.ProjectVersion{}, err
	}
	vres, err := tx.ExecContext(ctx,
		"INSERT INTO project_versions (project_id, version, active) VALUES (?,?,1)", pid, "v1")
	if err != nil {
		return 0, model.ProjectVersion{}, err
	}
	vid, err := vres.LastInsertId()
	if err != nil {
		return 0, model.ProjectVersion{}, err
	}
	return uint64(pid), model.ProjectVersion{
		ID:        uint64(vid),
		ProjectID: uint64(pid),
		Version:   "v1",
		Active:    true,
	}, nil
}

// GetOwned loads a project only if it belongs to ownerID. A project
// that exists but is someone else's returns the same ErrNotFound as
// one that does not exist at all.
func (r *ProjectRepo) GetOwned(ctx context.Context, projectID uint64, ownerID string) (model.Project, error) {
	var p model.Project
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, owner_id, created_at, updated_at FROM projects WHERE id=? AND owner_id=? LIMIT 1",
		projectID, ownerID).Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, ErrNotFound
	}
	return p, err
}

// LatestVersion returns the most recently created version of a
// project (highest id, i.e. creation order — not label sort).
func (r *ProjectRepo) LatestVersion(ctx context.Context, projectID uint64) (model.ProjectVersion, error) {
	var v model.ProjectVersion
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, project_id, version, active, created_at FROM project_versions WHERE project_id=? ORDER BY id DESC LIMIT 1",
		projectID).Scan(&v.ID, &v.ProjectID, &v.Version, &v.Active, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProjectVersion{}, ErrNotFound
	}
	return v, err
}

// AddVersion deactivates every existing version of the project and
// inserts the new label as the active one, atomically. A label taken
// by a concurrent writer is reported as ErrConflict.
func (r *ProjectRepo) AddVersion(ctx context.Context, projectID uint64, label string) (v model.ProjectVersion, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.ProjectVersion{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"UPDATE project_versions SET active=0 WHERE project_id=?", projectID); err != nil {
		return model.ProjectVersion{}, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO project_versions (project_id, version, active) VALUES (?,?,1)", projectID, label)
	if err != nil {
		// Unique (project_id, version) key: a concurrent update already
		// claimed this label.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = ErrConflict
		}
		return model.ProjectVersion{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ProjectVersion{}, err
	}
	return model.ProjectVersion{ID: uint64(id), ProjectID: projectID, Version: label, Active: true}, nil
}

// GetVersion loads a version only if it belongs to the project.
func (r *ProjectRepo) GetVersion(ctx context.Context, projectID, versionID uint64) (model.ProjectVersion, error) {
	var v model.ProjectVersion
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, project_id, version, active, created_at FROM project_versions WHERE id=? AND project_id=? LIMIT 1",
		versionID, projectID).Scan(&v.ID, &v.ProjectID, &v.Version, &v.Active, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProjectVersion{}, ErrNotFound
	}
	return v, err
}

// SetActiveVersion makes versionID the single active version of the
// project: bulk deactivate, then point activate, one transaction. The
// point update is guarded by project_id so a version belonging to a
// different project can never be activated here.
func (r *ProjectRepo) SetActiveVersion(ctx context.Context, projectID, versionID uint64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"UPDATE project_versions SET active=0 WHERE project_id=?", projectID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE project_versions SET active=1 WHERE id=? AND project_id=?", versionID, projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		err = ErrNotFound
		return err
	}
	return nil
}

// ListVersions returns all versions of a project in creation order.
func (r *ProjectRepo) ListVersions(ctx context.Context, projectID uint64) ([]model.ProjectVersion, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, project_id, version, active, created_at FROM project_versions WHERE project_id=? ORDER BY id ASC",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProjectVersion
	for rows.Next() {
		var v model.ProjectVersion
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.Version, &v.Active, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVersion removes a version row and, when the deleted version
// was the active one, promotes the most recently created remaining
// version in the same transaction. Deleting the last version leaves
// the project with zero versions; nothing is re-created.
func (r *ProjectRepo) DeleteVersion(ctx context.Context, projectID, versionID uint64, wasActive bool) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM project_versions WHERE id=? AND project_id=?", versionID, projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		err = ErrNotFound
		return err
	}
	if wasActive {
		if _, err = tx.ExecContext(ctx,
			`UPDATE project_versions SET active=1
			 WHERE project_id=? ORDER BY id DESC LIMIT 1`, projectID); err != nil {
			return err
		}
	}
	return nil
}

// ListByOwner returns the owner's projects, newest first.
func (r *ProjectRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, owner_id, created_at, updated_at FROM projects WHERE owner_id=? ORDER BY id DESC",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
