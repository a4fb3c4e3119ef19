// internal/common/audit/audit.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"dealer-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Record is the audit document written for every delivered template.
type Record struct {
	UsageID     string    `json:"usageId"`
	TemplateID  string    `json:"templateId"`
	Kind        string    `json:"kind"`
	DaysOffset  int       `json:"daysOffset"`
	AccountID   string    `json:"accountId"`
	TriggerDate string    `json:"triggerDate"`
	SentAt      time.Time `json:"sentAt"`
	Channels    string    `json:"channels"`
	Success     bool      `json:"success"`
}

// NewRecord builds the audit document for a usage-log row.
func NewRecord(entry models.TemplateUsageLog, tmpl models.NotificationTemplate) Record {
	return Record{
		UsageID:     entry.ID.String(),
		TemplateID:  entry.TemplateID,
		Kind:        string(tmpl.Kind),
		DaysOffset:  tmpl.DaysOffset,
		AccountID:   entry.AccountID,
		TriggerDate: entry.TriggerDate.Format("2006-01-02"),
		SentAt:      entry.SentAt,
		Channels:    entry.Channel,
		Success:     entry.Success,
	}
}

// Sink receives audit records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// ElasticsearchSink indexes records by usage ID, so a retried write replaces
// the earlier document.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Write(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: rec.UsageID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index audit record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("index audit record: %s: %s", res.Status(), string(msg))
	}
	return nil
}

// Discard drops every record.
type Discard struct{}

func (Discard) Write(context.Context, Record) error { return nil }
