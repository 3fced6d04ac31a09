// CLAUDE:SUMMARY Elasticsearch backend — lazy index creation with keyword mappings, term-filter query translation, recency ordering
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/hazyhaar/devaudit/pkg/audit"
)

// indexMapping types the filterable fields as keywords so term queries
// match exactly instead of going through the analyzer.
const indexMapping = `{
	"mappings": {
		"properties": {
			"entry_id":     {"type": "keyword"},
			"timestamp":    {"type": "date"},
			"developer_id": {"type": "keyword"},
			"action":       {"type": "keyword"},
			"model":        {"type": "keyword"},
			"method":       {"type": "keyword"},
			"result":       {"type": "keyword"},
			"error": {
				"properties": {
					"kind":    {"type": "keyword"},
					"message": {"type": "text"},
					"trace":   {"type": "text"}
				}
			}
		}
	}
}`

const maxQueryHits = 1000

// Elastic indexes each record as a document in a named index. The index
// is created with explicit mappings on the first write if it does not
// exist yet. Query results come back timestamp-descending, which is this
// backend's natural order and differs from the file backend's.
type Elastic struct {
	client *elasticsearch.Client
	index  string

	mu      sync.Mutex
	ensured bool
}

// NewElastic connects a client for host (e.g. "http://localhost:9200").
// Construction only validates the client config; reachability problems
// surface as ErrBackendUnavailable on the first write or query.
func NewElastic(host, index string) (*Elastic, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{host},
	})
	if err != nil {
		return nil, fmt.Errorf("building elasticsearch client for %s: %w", host, err)
	}
	return &Elastic{client: client, index: index}, nil
}

func (b *Elastic) Write(ctx context.Context, rec audit.Record) error {
	if err := b.ensureIndex(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encoding record: %v", audit.ErrBackendUnavailable, err)
	}
	res, err := b.client.Index(b.index, bytes.NewReader(body),
		b.client.Index.WithDocumentID(rec.EntryID),
		b.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: indexing into %q: %v", audit.ErrBackendUnavailable, b.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: indexing into %q: %s", audit.ErrBackendUnavailable, b.index, res.String())
	}
	return nil
}

func (b *Elastic) Query(ctx context.Context, f audit.Filter) ([]audit.Record, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(buildQuery(f)); err != nil {
		return nil, fmt.Errorf("%w: encoding query: %v", audit.ErrBackendUnavailable, err)
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(b.index),
		b.client.Search.WithBody(&body),
		b.client.Search.WithSize(maxQueryHits),
		b.client.Search.WithSort("timestamp:desc"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: searching %q: %v", audit.ErrBackendUnavailable, b.index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		// Index not created yet means nothing has been written.
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: searching %q: %s", audit.ErrBackendUnavailable, b.index, res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source audit.Record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %v", audit.ErrBackendUnavailable, err)
	}

	out := make([]audit.Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}

func (b *Elastic) Close() error {
	return nil // the underlying http transport holds no resources worth closing
}

// ensureIndex creates the index with mappings on first use. The flag is
// only set after a successful check so a down cluster is retried on the
// next write instead of being cached as created.
func (b *Elastic) ensureIndex(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ensured {
		return nil
	}

	res, err := b.client.Indices.Exists([]string{b.index},
		b.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: cannot reach elasticsearch (check [storage.elasticsearch] host): %v",
			audit.ErrBackendUnavailable, err)
	}
	res.Body.Close()

	if res.StatusCode == 404 {
		created, err := b.client.Indices.Create(b.index,
			b.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
			b.client.Indices.Create.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("%w: creating index %q: %v", audit.ErrBackendUnavailable, b.index, err)
		}
		defer created.Body.Close()
		if created.IsError() && !indexAlreadyExists(created) {
			return fmt.Errorf("%w: creating index %q failed, create it manually or fix cluster permissions: %s",
				audit.ErrBackendUnavailable, b.index, created.String())
		}
	} else if res.IsError() {
		return fmt.Errorf("%w: checking index %q: %s", audit.ErrBackendUnavailable, b.index, res.String())
	}

	b.ensured = true
	return nil
}

// indexAlreadyExists detects the create/create race with another writer.
func indexAlreadyExists(res *esapi.Response) bool {
	return res.StatusCode == 400 && strings.Contains(res.String(), "resource_already_exists_exception")
}

// buildQuery translates the partial-field filter into a bool/filter term
// query; an unconstrained filter becomes match_all.
func buildQuery(f audit.Filter) map[string]any {
	var terms []map[string]any
	add := func(field, value string) {
		if value != "" {
			terms = append(terms, map[string]any{"term": map[string]any{field: value}})
		}
	}
	add("developer_id", f.DeveloperID)
	add("action", string(f.Action))
	add("model", f.Model)
	add("method", f.Method)
	add("result", string(f.Result))

	if len(terms) == 0 {
		return map[string]any{"query": map[string]any{"match_all": map[string]any{}}}
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": terms},
		},
	}
}
