package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/config"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

// ElasticClient indexes refill requests for ad-hoc reporting. Indexing is
// best-effort; the relational table stays the source of truth.
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// Enabled reports whether indexing is configured.
func (c *ElasticClient) Enabled() bool {
	return c.enabled
}

// IndexRequest indexes a refill request document, replacing any previous
// version of the same record.
func (c *ElasticClient) IndexRequest(ctx context.Context, req *models.RefillRequest) error {
	if !c.enabled {
		return nil
	}

	doc := map[string]interface{}{
		"id":           req.ID,
		"item":         req.Item,
		"quantity":     req.Quantity,
		"status":       req.Status,
		"requested_by": req.RequestedBy,
		"requested_at": req.RequestedAt,
		"processed_by": req.ProcessedBy,
		"processed_at": req.ProcessedAt,
		"refilled_by":  req.RefilledBy,
		"refilled_at":  req.RefilledAt,
		"no_stock_by":  req.NoStockBy,
		"no_stock_at":  req.NoStockAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	indexReq := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: strconv.FormatInt(req.ID, 10),
		Body:       bytes.NewReader(docJSON),
	}

	res, err := indexReq.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	return nil
}

// DeleteRequest removes a request document from the index
func (c *ElasticClient) DeleteRequest(ctx context.Context, id int64) error {
	if !c.enabled {
		return nil
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	delReq := esapi.DeleteRequest{
		Index:      indexName,
		DocumentID: strconv.FormatInt(id, 10),
	}

	res, err := delReq.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	// A missing document is fine: delete hints can arrive after a purge
	if res.IsError() && res.StatusCode != 404 {
		return errors.Errorf("Elasticsearch delete error: %s", res.Status())
	}

	return nil
}

// ReindexAll reindexes the given records, logging and skipping failures so
// one bad document never aborts a reindex pass.
func (c *ElasticClient) ReindexAll(ctx context.Context, reqs []models.RefillRequest) int {
	if !c.enabled {
		return 0
	}

	indexed := 0
	for i := range reqs {
		if err := c.IndexRequest(ctx, &reqs[i]); err != nil {
			log.Warn().Err(err).Int64("request_id", reqs[i].ID).Msg("Failed to index request")
			continue
		}
		indexed++
	}
	return indexed
}
