package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-hosting/internal/middleware"
	"github.com/iliyamo/project-hosting/internal/repository"
	"github.com/iliyamo/project-hosting/internal/storage"
)

// Default timeouts for the two classes of downstream calls. Blob
// operations get a larger bound because uploads stream whole files.
const (
	defaultDBTimeout   = 5 * time.Second
	defaultBlobTimeout = 60 * time.Second
)

// ProjectHandler implements the project/version endpoints. Failure
// ordering between blob store and database is deliberate: create and
// update write the blob first so a failed transaction leaves only an
// orphaned (harmless) object, while delete removes the blob prefix
// first so a failed transaction leaves a version row pointing at an
// empty prefix instead of dangling rows over deleted objects.
//
// Database and blob calls never share a deadline: a blob transfer may
// legitimately run for most of BlobTimeout, so the transaction that
// follows it always gets a fresh DBTimeout context of its own.
type ProjectHandler struct {
	Projects *repository.ProjectRepo
	Users    *repository.UserRepo
	Store    storage.BlobStore

	DBTimeout   time.Duration
	BlobTimeout time.Duration
}

func NewProjectHandler(p *repository.ProjectRepo, u *repository.UserRepo, s storage.BlobStore) *ProjectHandler {
	return &ProjectHandler{
		Projects:    p,
		Users:       u,
		Store:       s,
		DBTimeout:   defaultDBTimeout,
		BlobTimeout: defaultBlobTimeout,
	}
}

type versionResp struct {
	ID        uint64    `json:"id"`
	Version   string    `json:"version"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type projectResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// blobKey builds the canonical object key for one uploaded file.
func blobKey(project, version, filename string) string {
	return fmt.Sprintf("projects/%s/%s/%s", project, version, filename)
}

// versionPrefix is the key prefix holding every object of a version.
func versionPrefix(project, version string) string {
	return fmt.Sprintf("projects/%s/%s/", project, version)
}

// nextVersionLabel derives the next label from the numeric suffix of
// the most recently created version. Labels never regress: deleting
// v3 and publishing again yields v4, not a reused v3.
func nextVersionLabel(prev string) string {
	n, err := strconv.Atoi(strings.TrimPrefix(prev, "v"))
	if err != nil || n < 1 {
		return "v1"
	}
	return "v" + strconv.Itoa(n+1)
}

// putUpload streams the multipart file into the blob store under key.
func (h *ProjectHandler) putUpload(c echo.Context, key string) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file unreadable")
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.BlobTimeout)
	defer cancel()
	return h.Store.Put(ctx, key, src, fh.Size, fh.Header.Get("Content-Type"))
}

// Upload creates a project from its first file: blob write first,
// then one transaction creating the project and its active v1 row. If
// that transaction fails the blob stays behind as a documented,
// harmless orphan; it is deliberately not deleted.
func (h *ProjectHandler) Upload(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project name required"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer cancel()

	exists, err := h.Projects.ExistsByName(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if exists {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project name already exists"})
	}

	key := blobKey(name, "v1", fh.Filename)
	if err := h.putUpload(c, key); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return c.JSON(he.Code, echo.Map{"error": fmt.Sprint(he.Message)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage upload failed"})
	}

	// The upload may have consumed far more than DBTimeout, so the
	// transaction runs under its own fresh deadline.
	txCtx, txCancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer txCancel()

	ownerID, _ := c.Get(middleware.CtxUserID).(string)
	projectID, version, err := h.Projects.CreateWithFirstVersion(txCtx, name, ownerID)
	if err != nil {
		// Blob already written; rolled back rows only. The object under
		// key is orphaned and left in place.
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "project name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database transaction failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "project uploaded successfully",
		"project_id":  projectID,
		"version":     version.Version,
		"storage_key": key,
	})
}

// Update publishes a new version of an owned project. The next label
// comes from the most recently created version's numeric suffix (v1
// when none exist). Blob first, then one transaction that deactivates
// the old versions and inserts the new active row.
func (h *ProjectHandler) Update(c echo.Context) error {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer cancel()

	ownerID, _ := c.Get(middleware.CtxUserID).(string)
	project, err := h.Projects.GetOwned(ctx, projectID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	next := "v1"
	if latest, err := h.Projects.LatestVersion(ctx, projectID); err == nil {
		next = nextVersionLabel(latest.Version)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	key := blobKey(project.Name, next, fh.Filename)
	if err := h.putUpload(c, key); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return c.JSON(he.Code, echo.Map{"error": fmt.Sprint(he.Message)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage upload failed"})
	}

	// Fresh deadline: the blob transfer above may have outlived ctx.
	txCtx, txCancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer txCancel()

	version, err := h.Projects.AddVersion(txCtx, projectID, next)
	if err != nil {
		// Orphan-blob trade-off as in Upload. A label clash means a
		// concurrent update won the race for this slot.
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "version label already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database transaction failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "project updated successfully",
		"project_id":  projectID,
		"version":     version.Version,
		"storage_key": key,
	})
}

// ChangeVersion makes a given version the single active one. The
// bulk deactivate and the point activate run in one transaction, so
// no request ever observes zero or two active versions.
func (h *ProjectHandler) ChangeVersion(c echo.Context) error {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project id"})
	}
	versionID, err := strconv.ParseUint(c.QueryParam("version_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid version id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer cancel()

	ownerID, _ := c.Get(middleware.CtxUserID).(string)
	if _, err := h.Projects.GetOwned(ctx, projectID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	target, err := h.Projects.GetVersion(ctx, projectID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "version does not exist for this project"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Projects.SetActiveVersion(ctx, projectID, versionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "version does not exist for this project"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to change version"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":           "project version changed successfully",
		"project_id":        projectID,
		"active_version_id": versionID,
		"version":           target.Version,
	})
}

// Versions lists an owned project's versions in creation order. A
// project with zero versions (possible only right after deleting the
// last one) is reported separately from a missing project.
func (h *ProjectHandler) Versions(c echo.Context) error {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer cancel()

	ownerID, _ := c.Get(middleware.CtxUserID).(string)
	if _, err := h.Projects.GetOwned(ctx, projectID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	versions, err := h.Projects.ListVersions(ctx, projectID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(versions) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no versions exist"})
	}

	out := make([]versionResp, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionResp{ID: v.ID, Version: v.Version, Active: v.Active, CreatedAt: v.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"project_id": projectID, "versions": out})
}

// DeleteVersion removes one version: the whole blob prefix first,
// then the row. A blob failure aborts before any database mutation.
// If the deleted version was active, the most recently created
// remaining version is promoted inside the same transaction; deleting
// the last version leaves the project with zero versions.
func (h *ProjectHandler) DeleteVersion(c echo.Context) error {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project id"})
	}
	versionID, err := strconv.ParseUint(c.QueryParam("version_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid version id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer cancel()

	ownerID, _ := c.Get(middleware.CtxUserID).(string)
	project, err := h.Projects.GetOwned(ctx, projectID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	version, err := h.Projects.GetVersion(ctx, projectID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "version not found for this project"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	blobCtx, blobCancel := context.WithTimeout(c.Request().Context(), h.BlobTimeout)
	defer blobCancel()
	if err := h.Store.DeletePrefix(blobCtx, versionPrefix(project.Name, version.Version)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage delete failed"})
	}

	// The prefix delete can take a while on large versions; the row
	// delete must not inherit its spent deadline.
	txCtx, txCancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer txCancel()

	if err := h.Projects.DeleteVersion(txCtx, projectID, versionID, version.Active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "version not found for this project"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database transaction failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":         "project version deleted successfully",
		"project_id":      projectID,
		"deleted_version": version.Version,
	})
}

// All lists the caller's own projects, newest first. Owning nothing
// is a 404 here, unlike the admin cross-user listing below which
// returns an empty list — a long-standing behavioural quirk kept as
// is.
func (h *ProjectHandler) All(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer cancel()

	ownerID, _ := c.Get(middleware.CtxUserID).(string)
	projects, err := h.Projects.ListByOwner(ctx, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(projects) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no projects exist for you"})
	}

	out := make([]projectResp, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResp{ID: p.ID, Name: p.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"projects": out})
}

// UserProjects (admin only) lists another user's projects by email.
// An existing user with no projects yields an empty list.
func (h *ProjectHandler) UserProjects(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.DBTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	projects, err := h.Projects.ListByOwner(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]projectResp, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResp{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_email": email, "projects": out})
}
