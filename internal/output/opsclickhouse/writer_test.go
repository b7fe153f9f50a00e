package opsclickhouse

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatsync/pkg/models"
)

func TestNewWriterRequiresURL(t *testing.T) {
	_, err := NewWriter(Config{})
	require.Error(t, err)
}

func TestWriteOperations(t *testing.T) {
	var query, user string
	var rows []row
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		user = r.Header.Get("X-ClickHouse-User")
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var got row
			require.NoError(t, json.Unmarshal(sc.Bytes(), &got))
			rows = append(rows, got)
		}
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL, Database: "sec", Username: "svc"})
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	ops := []models.Operation{
		{Kind: models.OperationCreate, Category: models.CategoryEntity, Type: models.AgentEntityType, Key: "a",
			Data: &models.AgentEntity{Key: "a"}},
		{Kind: models.OperationDelete, Category: models.CategoryEntity, Type: models.AgentEntityType, Key: "b"},
	}
	require.NoError(t, w.WriteOperations(context.Background(), "run-1", ops))

	assert.Equal(t, "INSERT INTO `sec`.`operations` FORMAT JSONEachRow", query)
	assert.Equal(t, "svc", user)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-05-06 07:08:09", rows[0].Timestamp)
	assert.Equal(t, "CREATE", rows[0].Op)
	assert.Contains(t, rows[0].Data, `"_key":"a"`)
	assert.Empty(t, rows[1].Data)
}

func TestWriteOperationsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "table missing", http.StatusNotFound)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	require.NoError(t, err)
	err = w.WriteOperations(context.Background(), "run-1", []models.Operation{{Kind: models.OperationCreate, Key: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table missing")
}
