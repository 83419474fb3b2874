package job

import (
	"context"

	"github.com/xxxsen/bagbot/internal/service"
)

const KnowledgeSyncJobName = "knowledge_sync"

// KnowledgeSyncJob re-runs ingestion so edits to the policy source reach
// the vector store without a restart.
type KnowledgeSyncJob struct {
	ingest *service.IngestService
	source service.PolicySource
}

func NewKnowledgeSyncJob(ingest *service.IngestService, source service.PolicySource) *KnowledgeSyncJob {
	return &KnowledgeSyncJob{ingest: ingest, source: source}
}

func (j *KnowledgeSyncJob) Name() string {
	return KnowledgeSyncJobName
}

func (j *KnowledgeSyncJob) Run(ctx context.Context) error {
	_, err := j.ingest.Run(ctx, j.source)
	return err
}
