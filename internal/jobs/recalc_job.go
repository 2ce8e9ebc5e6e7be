package jobs

import (
	"context"
	"time"

	"github.com/smetaworks/estimate-api/internal/repository"
	"github.com/smetaworks/estimate-api/internal/service"
	"go.uber.org/zap"
)

const recalcSweepBatchSize = 50

// RecalcJob sweeps approved documents whose totals were marked dirty and
// recalculates them. Draft documents recalculate inline on every mutation,
// so only approved ones accumulate dirt.
type RecalcJob struct {
	docRepo *repository.DocumentRepository
	calc    *service.CalculationService
	logger  *zap.Logger
	timeout time.Duration
}

// NewRecalcJob creates the dirty-totals sweep job
func NewRecalcJob(docRepo *repository.DocumentRepository, calc *service.CalculationService, logger *zap.Logger) *RecalcJob {
	return &RecalcJob{
		docRepo: docRepo,
		calc:    calc,
		logger:  logger,
		timeout: 2 * time.Minute,
	}
}

// Run executes one sweep
func (j *RecalcJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	docs, err := j.docRepo.ListDirtyApproved(ctx, recalcSweepBatchSize)
	if err != nil {
		j.logger.Error("failed to list dirty approved documents", zap.Error(err))
		return
	}
	if len(docs) == 0 {
		return
	}

	recalculated := 0
	for _, doc := range docs {
		if _, err := j.calc.Recalculate(ctx, doc.ID); err != nil {
			j.logger.Error("failed to recalculate document",
				zap.String("document_id", doc.ID.String()),
				zap.Error(err))
			continue
		}
		recalculated++
	}

	j.logger.Info("dirty totals sweep completed",
		zap.Int("found", len(docs)),
		zap.Int("recalculated", recalculated))
}
