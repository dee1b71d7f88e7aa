package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ergasia-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type capture struct {
	mu    sync.Mutex
	paths []string
	docs  []Event
}

func newElasticsearch(t *testing.T, status int, c *capture) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		var ev Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		c.mu.Lock()
		c.paths = append(c.paths, r.Method+" "+r.URL.Path)
		c.docs = append(c.docs, ev)
		c.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestIndexer_Record(t *testing.T) {
	c := &capture{}
	indexer := NewIndexer(newElasticsearch(t, http.StatusCreated, c), "saga-audit", logger.NewTestLogger(t))

	indexer.Record(context.Background(), Event{
		ID:      "ev-1",
		Saga:    "StartJob",
		ActorID: "owner-1",
		JobID:   "job-1",
		Outcome: "OK",
	})

	require.Len(t, c.paths, 1)
	assert.Equal(t, "PUT /saga-audit/_doc/ev-1", c.paths[0])
	assert.Equal(t, "StartJob", c.docs[0].Saga)
	assert.False(t, c.docs[0].Timestamp.IsZero())
}

func TestIndexer_AssignsID(t *testing.T) {
	c := &capture{}
	indexer := NewIndexer(newElasticsearch(t, http.StatusCreated, c), "saga-audit", logger.NewTestLogger(t))

	indexer.Record(context.Background(), Event{Saga: "ApplyToJob", Outcome: "OK"})

	require.Len(t, c.paths, 1)
	assert.True(t, strings.HasPrefix(c.paths[0], "PUT /saga-audit/_doc/"))
	assert.NotEmpty(t, c.docs[0].ID)
}

func TestIndexer_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := &capture{}
	indexer := NewIndexer(newElasticsearch(t, http.StatusBadRequest, c), "saga-audit", logger.NewZapAdapter(zap.New(core)))

	indexer.Record(context.Background(), Event{ID: "ev-2", Saga: "FinishJob", Outcome: "OK"})

	entries := logs.FilterMessage("Failed to index saga audit event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "FinishJob", entries[0].ContextMap()["saga"])
}

func TestIndexer_CanceledSagaContextStillIndexes(t *testing.T) {
	c := &capture{}
	indexer := NewIndexer(newElasticsearch(t, http.StatusCreated, c), "saga-audit", logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	indexer.Record(ctx, Event{ID: "ev-3", Saga: "RejectApplier", Outcome: "FORBIDDEN"})

	assert.Len(t, c.paths, 1)
}
