// internal/store/reports.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"modeltest-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ReportArchive persists finished test reports for later lookup.
type ReportArchive interface {
	Index(ctx context.Context, report *models.TestReport) error
}

// ElasticsearchArchive stores reports as documents keyed by run id.
type ElasticsearchArchive struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchArchive(client *elasticsearch.Client, index string) *ElasticsearchArchive {
	return &ElasticsearchArchive{client: client, index: index}
}

func (a *ElasticsearchArchive) Index(ctx context.Context, report *models.TestReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: report.RunID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("index report %s: %w", report.RunID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index report %s: %s: %s", report.RunID, res.Status(), string(detail))
	}
	return nil
}
