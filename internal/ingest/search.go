package ingest

import (
	"context"
	"time"

	pkges "github.com/damoang/angple-bugreport/pkg/elasticsearch"
)

// Indexer is the part of the Elasticsearch client the sink uses
type Indexer interface {
	IndexDocument(ctx context.Context, index, docID string, body interface{}) error
}

// Searcher runs a full text query against the report index
type Searcher interface {
	Search(ctx context.Context, index string, query map[string]interface{}, from, size int) (*pkges.SearchResponse, error)
}

// SearchDocument is what gets indexed; the screenshot is never indexed
type SearchDocument struct {
	ReportID        string    `json:"report_id"`
	ErrorMessage    string    `json:"error_message"`
	ErrorStack      string    `json:"error_stack,omitempty"`
	ComponentStack  string    `json:"component_stack,omitempty"`
	ErrorSource     string    `json:"error_source"`
	UserDescription string    `json:"user_description,omitempty"`
	UserID          string    `json:"user_id,omitempty"`
	URL             string    `json:"url"`
	SourceApp       string    `json:"source_app"`
	UserAgent       string    `json:"user_agent"`
	HasScreenshot   bool      `json:"has_screenshot"`
	CreatedAt       time.Time `json:"created_at"`
}

// IndexMapping is the mapping used when the index is created
var IndexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"report_id":        map[string]interface{}{"type": "keyword"},
			"error_message":    map[string]interface{}{"type": "text"},
			"error_stack":      map[string]interface{}{"type": "text"},
			"component_stack":  map[string]interface{}{"type": "text"},
			"error_source":     map[string]interface{}{"type": "keyword"},
			"user_description": map[string]interface{}{"type": "text"},
			"user_id":          map[string]interface{}{"type": "keyword"},
			"url":              map[string]interface{}{"type": "keyword"},
			"source_app":       map[string]interface{}{"type": "keyword"},
			"user_agent":       map[string]interface{}{"type": "text"},
			"has_screenshot":   map[string]interface{}{"type": "boolean"},
			"created_at":       map[string]interface{}{"type": "date"},
		},
	},
}

// SearchSink indexes reports into Elasticsearch
type SearchSink struct {
	client Indexer
	index  string
}

// NewSearchSink creates a sink for index
func NewSearchSink(client Indexer, index string) *SearchSink {
	return &SearchSink{client: client, index: index}
}

// Name implements Sink
func (s *SearchSink) Name() string { return "elasticsearch" }

// Write implements Sink
func (s *SearchSink) Write(ctx context.Context, r *Record) error {
	return s.client.IndexDocument(ctx, s.index, r.ReportID, NewSearchDocument(r))
}

// NewSearchDocument builds the indexed form of r
func NewSearchDocument(r *Record) SearchDocument {
	return SearchDocument{
		ReportID:        r.ReportID,
		ErrorMessage:    r.ErrorMessage,
		ErrorStack:      deref(r.ErrorStack),
		ComponentStack:  deref(r.ComponentStack),
		ErrorSource:     string(r.ErrorSource),
		UserDescription: deref(r.UserDescription),
		UserID:          deref(r.UserID),
		URL:             r.URL,
		SourceApp:       r.SourceApp,
		UserAgent:       r.BrowserInfo.UserAgent,
		HasScreenshot:   r.HasScreenshot(),
		CreatedAt:       r.CreatedAt,
	}
}

// SearchQuery builds a multi_match query over the text fields
func SearchQuery(text string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"error_message^3", "user_description^2", "error_stack", "component_stack", "url"},
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"created_at": "desc"},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"error_message":    map[string]interface{}{},
				"user_description": map[string]interface{}{},
			},
		},
	}
}
