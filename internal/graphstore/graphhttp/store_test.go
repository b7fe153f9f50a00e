package graphhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatsync/pkg/models"
)

func TestNewStoreRequiresURL(t *testing.T) {
	_, err := NewStore(Config{})
	require.Error(t, err)
}

func TestFindByType(t *testing.T) {
	var gotPath, gotType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.URL.Query().Get("type")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_key":"a"},{"_key":"b"}]`))
	}))
	defer srv.Close()

	store, err := NewStore(Config{URL: srv.URL + "/", Headers: map[string]string{"Authorization": "Bearer t"}})
	require.NoError(t, err)
	defer store.Close()

	raws, err := store.FindEntitiesByType(context.Background(), models.AgentEntityType)
	require.NoError(t, err)
	assert.Len(t, raws, 2)
	assert.Equal(t, "/entities", gotPath)
	assert.Equal(t, models.AgentEntityType, gotType)
	assert.Equal(t, "Bearer t", gotAuth)

	_, err = store.FindRelationshipsByType(context.Background(), models.AgentFindingRelationshipType)
	require.NoError(t, err)
	assert.Equal(t, "/relationships", gotPath)
	assert.Equal(t, models.AgentFindingRelationshipType, gotType)
}

func TestFindByTypeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	store, err := NewStore(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = store.FindEntitiesByType(context.Background(), models.AgentEntityType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWriteOperations(t *testing.T) {
	var got operationsRequest
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/operations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store, err := NewStore(Config{URL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, store.WriteOperations(context.Background(), "run-1", nil))
	assert.Zero(t, calls)

	ops := []models.Operation{{
		Kind:     models.OperationDelete,
		Category: models.CategoryEntity,
		Type:     models.AgentEntityType,
		Key:      "a",
	}}
	require.NoError(t, store.WriteOperations(context.Background(), "run-1", ops))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Operations, 1)
	assert.Equal(t, models.OperationDelete, got.Operations[0].Kind)
	assert.Equal(t, "a", got.Operations[0].Key)
}

func TestWriteOperationsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store, err := NewStore(Config{URL: srv.URL})
	require.NoError(t, err)

	err = store.WriteOperations(context.Background(), "run-1", []models.Operation{{Kind: models.OperationCreate, Key: "a"}})
	require.Error(t, err)
}
