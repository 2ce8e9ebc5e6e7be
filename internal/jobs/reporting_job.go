package jobs

import (
	"context"
	"time"

	"github.com/smetaworks/estimate-api/internal/datawarehouse"
	"github.com/smetaworks/estimate-api/internal/domain"
	"github.com/smetaworks/estimate-api/internal/repository"
	"go.uber.org/zap"
)

const reportingPageSize = 100

// ReportingJob pushes the totals of approved documents to the reporting
// warehouse. With the warehouse client nil the job is never registered.
type ReportingJob struct {
	docRepo   *repository.DocumentRepository
	warehouse *datawarehouse.Client
	logger    *zap.Logger
	timeout   time.Duration
}

// NewReportingJob creates the reporting push job
func NewReportingJob(docRepo *repository.DocumentRepository, warehouse *datawarehouse.Client, logger *zap.Logger) *ReportingJob {
	return &ReportingJob{
		docRepo:   docRepo,
		warehouse: warehouse,
		logger:    logger,
		timeout:   5 * time.Minute,
	}
}

// Run pushes all approved documents, page by page
func (j *ReportingJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	pushed := 0
	failed := 0
	for page := 1; ; page++ {
		docs, total, err := j.docRepo.List(ctx, domain.DocumentStatusApproved, "", page, reportingPageSize)
		if err != nil {
			j.logger.Error("failed to list approved documents", zap.Error(err))
			return
		}
		for i := range docs {
			if err := j.warehouse.PushDocumentTotals(ctx, &docs[i]); err != nil {
				j.logger.Error("failed to push document totals",
					zap.String("document_id", docs[i].ID.String()),
					zap.Error(err))
				failed++
				continue
			}
			pushed++
		}
		if int64(page*reportingPageSize) >= total {
			break
		}
	}

	if pushed > 0 || failed > 0 {
		j.logger.Info("reporting push completed",
			zap.Int("pushed", pushed),
			zap.Int("failed", failed))
	}
}
