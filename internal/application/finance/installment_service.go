package finance

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const kindInstallments = "installments"

// InstallmentService splits an amount into monthly obligations
type InstallmentService struct {
	runner      *operation.Runner
	obligations finance.ObligationRepository
	publisher   shared.EventPublisher
	metrics     *metrics.Ledger
	logger      *zap.Logger
}

// NewInstallmentService creates a new InstallmentService
func NewInstallmentService(runner *operation.Runner, obligations finance.ObligationRepository, logger *zap.Logger) *InstallmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstallmentService{runner: runner, obligations: obligations, logger: logger}
}

// SetEventPublisher sets the event publisher
func (s *InstallmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the ledger metrics
func (s *InstallmentService) SetMetrics(m *metrics.Ledger) {
	s.metrics = m
}

// Preview returns the plan without writing anything
func (s *InstallmentService) Preview(req InstallmentPlanRequest) (*InstallmentPreview, error) {
	plans, err := finance.PlanInstallments(req.Amount, req.Count, req.FirstDueDate)
	if err != nil {
		return nil, err
	}
	preview := toInstallmentPreview(plans)
	return &preview, nil
}

// CreateInstallments persists the whole plan in one transaction; either every
// installment is stored or none is.
func (s *InstallmentService) CreateInstallments(ctx context.Context, cc shared.CompanyContext, req InstallmentPlanRequest) (result *InstallmentsResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "create",
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, cc.CompanyID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount),
		telemetry.WithAttribute("ledger.installment_count", req.Count),
	)
	defer func() {
		replayed := result != nil && result.Replayed
		s.metrics.ObserveOperation(kindInstallments, operation.Outcome(err, replayed))
		telemetry.End(span, err)
	}()

	if err := cc.Validate(); err != nil {
		return nil, err
	}
	plans, err := finance.PlanInstallments(req.Amount, req.Count, req.FirstDueDate)
	if err != nil {
		return nil, err
	}
	obligations, err := finance.NewInstallmentObligations(cc.CompanyID, finance.ObligationType(req.Type),
		req.Description, plans, req.SaleID, req.AccountID)
	if err != nil {
		return nil, err
	}
	if cc.HasUser() {
		for _, o := range obligations {
			o.SetCreatedBy(cc.UserID)
		}
	}

	res, err := s.runner.Run(ctx, cc.CompanyID, req.OperationID, kindInstallments, func(txCtx context.Context) (uuid.UUID, error) {
		if err := s.obligations.BulkCreate(txCtx, obligations); err != nil {
			return uuid.Nil, err
		}
		return obligations[0].ID, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return s.replay(ctx, cc, req, obligations)
	}

	aggregates := make([]shared.AggregateRoot, len(obligations))
	responses := make([]ObligationResponse, len(obligations))
	for i, o := range obligations {
		aggregates[i] = o
		responses[i] = ToObligationResponse(o)
	}
	operation.PublishEvents(ctx, s.publisher, s.logger, aggregates...)
	s.metrics.ObserveInstallments(len(obligations))

	s.logger.Info("installment plan created",
		zap.String("company_id", cc.CompanyID.String()),
		zap.Int("count", len(obligations)),
		zap.String("total", req.Amount.String()))

	return &InstallmentsResult{Obligations: responses, Total: finance.SumPlan(plans)}, nil
}

// replay loads the installments stored by the first run of the operation.
// Descriptions are derived from the request, so the same request finds them.
func (s *InstallmentService) replay(ctx context.Context, cc shared.CompanyContext, req InstallmentPlanRequest, planned []*finance.Obligation) (*InstallmentsResult, error) {
	descriptions := make([]string, len(planned))
	for i, o := range planned {
		descriptions[i] = o.Description
	}
	filter := shared.DefaultFilter()
	filter.PageSize = len(planned)
	filter.OrderBy = "installment_number"
	filter.OrderDir = "asc"

	criteria := shared.Criteria{
		"description":       descriptions,
		"installment_count": len(planned),
	}
	if req.SaleID != nil {
		criteria["sale_id"] = *req.SaleID
	}
	items, _, err := s.obligations.Filter(ctx, cc.CompanyID, criteria, filter)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("installments of completed operation %q not found", req.OperationID)
	}
	responses := ToObligationResponses(items)
	total := decimal.Zero
	for _, o := range items {
		total = total.Add(o.TotalAmount)
	}
	return &InstallmentsResult{Obligations: responses, Total: total, Replayed: true}, nil
}
