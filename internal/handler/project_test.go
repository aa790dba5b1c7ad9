package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/project-hosting/internal/middleware"
	"github.com/iliyamo/project-hosting/internal/repository"
	"github.com/iliyamo/project-hosting/internal/storage"
)

func TestNextVersionLabel(t *testing.T) {
	tests := []struct {
		prev string
		want string
	}{
		{"v1", "v2"},
		{"v2", "v3"},
		{"v9", "v10"},
		{"v10", "v11"},
		// Labels always come from the most recently created row, so a
		// deleted v3 followed by a publish still moves forward.
		{"v3", "v4"},
		// Defensive fallbacks for malformed labels.
		{"", "v1"},
		{"v", "v1"},
		{"vabc", "v1"},
		{"v0", "v1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextVersionLabel(tt.prev), "prev=%q", tt.prev)
	}
}

func TestBlobKeyLayout(t *testing.T) {
	assert.Equal(t, "projects/demo/v1/index.html", blobKey("demo", "v1", "index.html"))
	assert.Equal(t, "projects/demo/v2/", versionPrefix("demo", "v2"))
}

// slowStore delays every Put, standing in for a large upload.
type slowStore struct {
	storage.BlobStore
	delay time.Duration
}

func (s slowStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	time.Sleep(s.delay)
	return s.BlobStore.Put(ctx, key, r, size, contentType)
}

func multipartUpload(t *testing.T, method, target string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	fw, err := form.CreateFormFile("file", "index.html")
	require.NoError(t, err)
	_, err = fw.Write([]byte("<html>"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, form.FormDataContentType())
	return req, httptest.NewRecorder()
}

func TestUpdateSurvivesUploadLongerThanDBTimeout(t *testing.T) {
	// The blob transfer takes longer than the database timeout. The
	// version transaction must still commit, because it runs under a
	// deadline created after the transfer, not one spent during it.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, owner_id, created_at, updated_at FROM projects WHERE id=? AND owner_id=? LIMIT 1")).
		WithArgs(1, "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "owner_id", "created_at", "updated_at"}).
			AddRow(1, "demo", "owner-1", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, project_id, version, active, created_at FROM project_versions WHERE project_id=? ORDER BY id DESC LIMIT 1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "version", "active", "created_at"}).
			AddRow(7, 1, "v1", true, now))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_versions SET active=0 WHERE project_id=?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO project_versions (project_id, version, active) VALUES (?,?,1)")).
		WithArgs(1, "v2").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	h := &ProjectHandler{
		Projects:    repository.NewProjectRepo(db),
		Store:       slowStore{BlobStore: storage.NewMemoryStore(), delay: 80 * time.Millisecond},
		DBTimeout:   25 * time.Millisecond,
		BlobTimeout: time.Second,
	}

	req, rec := multipartUpload(t, http.MethodPut, "/v1/projects/update/1")
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set(middleware.CtxUserID, "owner-1")

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
