package model

import "time"

// IngestJob is the queued request to re-index a knowledge-base data source.
// ClientToken is a fresh idempotency token per trigger, so a redelivered
// message does not start a duplicate job on the backend.
type IngestJob struct {
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	DataSourceID    string    `json:"data_source_id"`
	ClientToken     string    `json:"client_token"`
	Reason          string    `json:"reason"`
	RequestedAt     time.Time `json:"requested_at"`
}
