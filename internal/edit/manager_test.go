package edit

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/appstore/appstoretest"
	"github.com/footprintai/amzappstore/internal/ui"
)

const app = "com.example.app"

func newManager(srv *appstoretest.Server) *Manager {
	return NewManager(appstore.NewClient(srv.Token, 0).WithAPIBase(srv.URL), ui.Nop{})
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name      string
		overwrite bool
		mode      string
		want      Policy
		wantErr   bool
	}{
		{name: "no overwrite", overwrite: false, mode: "reuse", want: CreateOnly},
		{name: "overwrite default mode", overwrite: true, mode: "", want: CreateFresh},
		{name: "overwrite new", overwrite: true, mode: "new", want: CreateFresh},
		{name: "overwrite reuse", overwrite: true, mode: "REUSE", want: ReuseIfPresent},
		{name: "unknown mode", overwrite: true, mode: "merge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolicy(tt.overwrite, tt.mode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_CreateOnly(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()

	id, err := newManager(srv).Resolve(context.Background(), app, CreateOnly)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, srv.OpenEditID(app))
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/edits"))
	assert.Equal(t, 0, srv.Count(http.MethodGet, "/edits"))
}

func TestResolve_CreateOnlyFailsWhenEditOpen(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()
	srv.SeedEdit(app, "edit-open")

	_, err := newManager(srv).Resolve(context.Background(), app, CreateOnly)
	require.Error(t, err)
	assert.Equal(t, "edit-open", srv.OpenEditID(app))
}

func TestResolve_CreateFresh(t *testing.T) {
	t.Run("deletes open edit", func(t *testing.T) {
		srv := appstoretest.NewServer()
		defer srv.Close()
		srv.SeedEdit(app, "edit-old")

		id, err := newManager(srv).Resolve(context.Background(), app, CreateFresh)
		require.NoError(t, err)
		assert.NotEqual(t, "edit-old", id)
		assert.Equal(t, 1, srv.Count(http.MethodDelete, "/edits/edit-old"))

		calls := srv.Calls()
		require.Len(t, calls, 3)
		assert.Equal(t, http.MethodGet, calls[0].Method)
		assert.Equal(t, http.MethodDelete, calls[1].Method)
		assert.NotEmpty(t, calls[1].IfMatch)
		assert.Equal(t, http.MethodPost, calls[2].Method)
	})

	t.Run("no open edit is not an error", func(t *testing.T) {
		srv := appstoretest.NewServer()
		defer srv.Close()

		id, err := newManager(srv).Resolve(context.Background(), app, CreateFresh)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, 0, srv.Count(http.MethodDelete, ""))
	})

	t.Run("delete failure is fatal", func(t *testing.T) {
		srv := appstoretest.NewServer()
		defer srv.Close()
		srv.SeedEdit(app, "edit-old")
		srv.Fail(http.MethodDelete, "/edits/edit-old", http.StatusUnauthorized, `{"error":"invalid_client"}`)

		_, err := newManager(srv).Resolve(context.Background(), app, CreateFresh)
		require.Error(t, err)
		assert.Equal(t, `{"error":"invalid_client"}`, err.Error())
		assert.Equal(t, 0, srv.Count(http.MethodPost, "/edits"))
	})
}

func TestResolve_ReuseIfPresent(t *testing.T) {
	t.Run("reuses open edit", func(t *testing.T) {
		srv := appstoretest.NewServer()
		defer srv.Close()
		srv.SeedEdit(app, "edit-open")

		id, err := newManager(srv).Resolve(context.Background(), app, ReuseIfPresent)
		require.NoError(t, err)
		assert.Equal(t, "edit-open", id)
		assert.Equal(t, 0, srv.Count(http.MethodPost, "/edits"))
	})

	t.Run("creates when none open", func(t *testing.T) {
		srv := appstoretest.NewServer()
		defer srv.Close()

		id, err := newManager(srv).Resolve(context.Background(), app, ReuseIfPresent)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, 1, srv.Count(http.MethodPost, "/edits"))
	})
}

type nilIDAPI struct {
	API
}

func (nilIDAPI) CreateEdit(context.Context, string) (*appstore.Edit, error) {
	return &appstore.Edit{}, nil
}

func TestCreate_NilIDIsFatal(t *testing.T) {
	m := NewManager(nilIDAPI{}, nil)

	_, err := m.Resolve(context.Background(), app, CreateOnly)
	assert.True(t, errors.Is(err, ErrNoEditID))
}

func TestCommit(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()
	srv.SeedEdit(app, "edit-1")

	require.NoError(t, newManager(srv).Commit(context.Background(), app, "edit-1"))
	assert.Equal(t, 1, srv.Commits(app))
	assert.Empty(t, srv.OpenEditID(app))

	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "GET /applications/com.example.app/edits/edit-1", calls[0].String())
	assert.Equal(t, "POST /applications/com.example.app/edits/edit-1/commit", calls[1].String())
	assert.NotEmpty(t, calls[1].IfMatch)
}

func TestCommit_Failure(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()
	srv.SeedEdit(app, "edit-1")
	srv.Fail(http.MethodPost, "/commit", http.StatusBadRequest, "listing incomplete")

	err := newManager(srv).Commit(context.Background(), app, "edit-1")
	require.Error(t, err)
	assert.Equal(t, "listing incomplete", err.Error())
	assert.Equal(t, 0, srv.Commits(app))
}
