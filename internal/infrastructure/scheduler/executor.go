package scheduler

import (
	"context"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler checks a company's cash accounts against their payment history
type Reconciler interface {
	ReconcileAll(ctx context.Context, cc shared.CompanyContext) ([]finance.ReconciliationReport, error)
}

// ReconciliationObserver records sweep outcomes
type ReconciliationObserver interface {
	ObserveReconciliation(balanced, drifted int)
}

// ReconciliationExecutor runs ReconcileAll for the job's company and logs
// every account whose balance drifted.
type ReconciliationExecutor struct {
	reconciler Reconciler
	observer   ReconciliationObserver
	logger     *zap.Logger
}

// NewReconciliationExecutor creates a new executor; observer may be nil
func NewReconciliationExecutor(reconciler Reconciler, observer ReconciliationObserver, logger *zap.Logger) *ReconciliationExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationExecutor{reconciler: reconciler, observer: observer, logger: logger}
}

// Execute implements JobExecutor
func (e *ReconciliationExecutor) Execute(ctx context.Context, job *Job) error {
	cc, err := shared.NewCompanyContext(job.CompanyID, "", uuid.Nil, "scheduler")
	if err != nil {
		return err
	}

	reports, err := e.reconciler.ReconcileAll(ctx, cc)
	if err != nil {
		return err
	}

	job.Checked = len(reports)
	job.Drifted = 0
	for _, r := range reports {
		if r.Balanced {
			continue
		}
		job.Drifted++
		e.logger.Warn("Cash account out of balance",
			zap.String("company_id", job.CompanyID.String()),
			zap.String("account_id", r.AccountID.String()),
			zap.String("account_name", r.AccountName),
			zap.String("current_balance", r.CurrentBalance.String()),
			zap.String("expected_balance", r.ExpectedBalance.String()),
			zap.String("drift", r.Drift.String()),
		)
	}
	if e.observer != nil {
		e.observer.ObserveReconciliation(job.Checked-job.Drifted, job.Drifted)
	}
	return nil
}
