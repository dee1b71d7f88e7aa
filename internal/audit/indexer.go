// Package audit indexes saga outcomes into Elasticsearch for diagnosis.
// Indexing is best-effort and never changes a saga result.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ergasia-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// Event is one saga execution.
type Event struct {
	ID         string                 `json:"id"`
	Saga       string                 `json:"saga"`
	ActorID    string                 `json:"actorId,omitempty"`
	JobID      string                 `json:"jobId,omitempty"`
	Outcome    string                 `json:"outcome"`
	Message    string                 `json:"message,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	DurationMs int64                  `json:"durationMs"`
	Timestamp  time.Time              `json:"@timestamp"`
}

type Indexer struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	logger  logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client:  client,
		index:   index,
		timeout: 2 * time.Second,
		logger:  log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Record indexes ev. Failures are logged.
func (i *Indexer) Record(ctx context.Context, ev Event) {
	if err := i.send(ctx, ev); err != nil {
		i.logger.Warn("Failed to index saga audit event", map[string]interface{}{
			"saga":  ev.Saga,
			"error": err.Error(),
		})
	}
}

func (i *Indexer) send(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	// The saga context may already be close to its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: ev.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index response: %s", res.Status())
	}
	return nil
}
