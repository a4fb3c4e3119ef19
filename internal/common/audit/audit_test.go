package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"dealer-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	status   int
	requests []*http.Request
	bodies   []string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(`{"result":"created"}`)),
		Request:    req,
	}, nil
}

func newClient(t *testing.T, rt http.RoundTripper) *elasticsearch.Client {
	t.Helper()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: rt,
	})
	require.NoError(t, err)
	return es
}

func sampleRecord() Record {
	id := uuid.MustParse("7b0c8f5e-2f43-4b4e-9e1d-0a6f1b7d9a11")
	return NewRecord(models.TemplateUsageLog{
		ID:          id,
		TemplateID:  "tpl-expiring-3",
		AccountID:   "acc-1",
		TriggerDate: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		SentAt:      time.Date(2025, 6, 10, 3, 0, 5, 0, time.UTC),
		Channel:     "push,email",
		Success:     true,
	}, models.NotificationTemplate{ID: "tpl-expiring-3", Kind: models.KindSubscriptionExpiring, DaysOffset: -3})
}

func TestElasticsearchSink_Write(t *testing.T) {
	rt := &fakeTransport{status: http.StatusCreated}
	sink := NewElasticsearchSink(newClient(t, rt), "template-usage-audit")

	require.NoError(t, sink.Write(context.Background(), sampleRecord()))

	require.Len(t, rt.requests, 1)
	assert.Equal(t, http.MethodPut, rt.requests[0].Method)
	assert.Equal(t, "/template-usage-audit/_doc/7b0c8f5e-2f43-4b4e-9e1d-0a6f1b7d9a11", rt.requests[0].URL.Path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rt.bodies[0]), &doc))
	assert.Equal(t, "subscription_expiring", doc["kind"])
	assert.Equal(t, "2025-06-10", doc["triggerDate"])
	assert.Equal(t, "push,email", doc["channels"])
	assert.Equal(t, float64(-3), doc["daysOffset"])
}

func TestElasticsearchSink_WriteErrorStatus(t *testing.T) {
	rt := &fakeTransport{status: http.StatusBadRequest}
	sink := NewElasticsearchSink(newClient(t, rt), "template-usage-audit")

	err := sink.Write(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Write(context.Background(), sampleRecord()))
}
