// internal/applications/indexer.go
package applications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"xtenda-workers/internal/common/database"

	"github.com/elastic/go-elasticsearch/v8"
)

const (
	DefaultSearchSize = 20
	MaxSearchSize     = 100
)

var ErrIndexMissing = errors.New("applications index does not exist")

// Mapping is the loan-applications index definition.
var Mapping = []byte(`{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "nrc":            {"type": "keyword"},
      "fullNames":      {"type": "text"},
      "email":          {"type": "keyword"},
      "phone":          {"type": "keyword"},
      "employer":       {"type": "text"},
      "status":         {"type": "keyword"},
      "amount":         {"type": "double"},
      "tenureMonths":   {"type": "integer"},
      "monthlyPayment": {"type": "double"},
      "submittedAt":    {"type": "date"},
      "updatedAt":      {"type": "date"}
    }
  }
}`)

// Document is the searchable projection of a Record. Document references
// and bank details stay in Postgres.
type Document struct {
	ID             string    `json:"id"`
	NRC            string    `json:"nrc"`
	FullNames      string    `json:"fullNames"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Employer       string    `json:"employer"`
	Status         Status    `json:"status"`
	Amount         float64   `json:"amount"`
	TenureMonths   int       `json:"tenureMonths"`
	MonthlyPayment float64   `json:"monthlyPayment"`
	SubmittedAt    time.Time `json:"submittedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func DocumentFrom(r *Record) Document {
	return Document{
		ID:             r.ID,
		NRC:            NormalizeNRC(r.Application.NRC),
		FullNames:      r.Application.FullNames,
		Email:          r.Application.Email,
		Phone:          r.Application.Phone,
		Employer:       r.Application.Employer,
		Status:         r.Status,
		Amount:         r.Summary.Amount,
		TenureMonths:   r.Summary.TenureMonths,
		MonthlyPayment: r.Summary.MonthlyPayment,
		SubmittedAt:    r.SubmittedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type SearchQuery struct {
	Text   string `json:"text,omitempty"`
	Status Status `json:"status,omitempty"`
	From   int    `json:"from,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// normalized clamps paging to sane bounds.
func (q SearchQuery) normalized() SearchQuery {
	if q.From < 0 {
		q.From = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultSearchSize
	}
	if q.Size > MaxSearchSize {
		q.Size = MaxSearchSize
	}
	return q
}

type SearchResult struct {
	Total int64      `json:"total"`
	Items []Document `json:"items"`
	Took  int        `json:"took"`
}

type Indexer struct {
	es    *elasticsearch.Client
	index string
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	return &Indexer{es: es, index: index}
}

func (i *Indexer) IndexName() string { return i.index }

func (i *Indexer) EnsureIndex(ctx context.Context) error {
	return database.EnsureIndex(ctx, i.es, i.index, Mapping)
}

// Index writes doc under its application id, replacing any earlier version.
func (i *Indexer) Index(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}

	res, err := i.es.Index(i.index, bytes.NewReader(body),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("index %s: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index %s: %s", doc.ID, res.Status())
	}
	return nil
}

func (i *Indexer) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error {
	body, _ := json.Marshal(map[string]interface{}{
		"doc": map[string]interface{}{"status": status, "updatedAt": at},
	})

	res, err := i.es.Update(i.index, id, bytes.NewReader(body), i.es.Update.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("update %s: %s", id, res.Status())
	}
	return nil
}

// Delete removes a document. A document that is already gone is not an error.
func (i *Indexer) Delete(ctx context.Context, id string) error {
	res, err := i.es.Delete(i.index, id, i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete %s: %s", id, res.Status())
	}
	return nil
}

// Search lists applications newest first, optionally filtered by free text
// and status.
func (i *Indexer) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q = q.normalized()

	body, _ := json.Marshal(buildSearchBody(q))
	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(body)),
		i.es.Search.WithFrom(q.From),
		i.es.Search.WithSize(q.Size),
		i.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", i.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrIndexMissing
	}
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search %s: %s: %s", i.index, res.Status(), msg)
	}

	var raw struct {
		Took int `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{Total: raw.Hits.Total.Value, Took: raw.Took, Items: make([]Document, 0, len(raw.Hits.Hits))}
	for _, h := range raw.Hits.Hits {
		out.Items = append(out.Items, h.Source)
	}
	return out, nil
}

func buildSearchBody(q SearchQuery) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":   q.Text,
				"fields":  []string{"fullNames^3", "nrc^2", "employer", "email", "phone"},
				"type":    "best_fields",
				"lenient": true,
			},
		})
	}
	if q.Status != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"status": q.Status},
		})
	}
	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort":  []map[string]interface{}{{"submittedAt": "desc"}},
	}
}
