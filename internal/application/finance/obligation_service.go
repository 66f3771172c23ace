package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ObligationService handles manual obligations, listing and deactivation
type ObligationService struct {
	runner      *operation.Runner
	obligations finance.ObligationRepository
	payments    finance.PaymentEventRepository
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewObligationService creates a new ObligationService
func NewObligationService(
	runner *operation.Runner,
	obligations finance.ObligationRepository,
	payments finance.PaymentEventRepository,
	logger *zap.Logger,
) *ObligationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObligationService{
		runner:      runner,
		obligations: obligations,
		payments:    payments,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *ObligationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create records a manual income or expense entry
func (s *ObligationService) Create(ctx context.Context, cc shared.CompanyContext, req CreateObligationRequest) (*ObligationResponse, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	o, err := finance.NewObligation(cc.CompanyID, finance.ObligationType(req.Type), req.Description, req.TotalAmount, req.DueDate)
	if err != nil {
		return nil, err
	}
	o.Counterparty = strings.TrimSpace(req.Counterparty)
	o.SetNotes(req.Notes)
	if req.AccountID != nil {
		o.SetDefaultAccount(*req.AccountID)
	}
	if req.SaleID != nil {
		o.AttachToSale(*req.SaleID)
	}
	if cc.HasUser() {
		o.SetCreatedBy(cc.UserID)
	}

	if err := s.obligations.Create(ctx, o); err != nil {
		return nil, err
	}
	operation.PublishEvents(ctx, s.publisher, s.logger, o)

	resp := ToObligationResponse(o)
	return &resp, nil
}

// GetByID returns one obligation
func (s *ObligationService) GetByID(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (*ObligationResponse, error) {
	o, err := s.obligations.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToObligationResponse(o)
	return &resp, nil
}

// List returns obligations matching the typed filter
func (s *ObligationService) List(ctx context.Context, cc shared.CompanyContext, filter ObligationListFilter) ([]ObligationResponse, int64, error) {
	if err := cc.Validate(); err != nil {
		return nil, 0, err
	}
	domainFilter := finance.ObligationFilter{
		Filter:    pageFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		AccountID: filter.AccountID,
		SaleID:    filter.SaleID,
		DueFrom:   filter.DueFrom,
		DueTo:     filter.DueTo,
		IsActive:  filter.IsActive,
		Overdue:   filter.Overdue,
	}
	if filter.Type != "" {
		t := finance.ObligationType(filter.Type)
		domainFilter.Type = &t
	}
	for _, st := range filter.Statuses {
		status := finance.ObligationStatus(st)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown status %q", st))
		}
		domainFilter.Statuses = append(domainFilter.Statuses, status)
	}

	items, total, err := s.obligations.Search(ctx, cc.CompanyID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToObligationResponses(items), total, nil
}

// Filter is the generic record-store query: criteria is an equality or
// membership map over whitelisted columns.
func (s *ObligationService) Filter(ctx context.Context, cc shared.CompanyContext, req FilterRequest) ([]ObligationResponse, int64, error) {
	if err := cc.Validate(); err != nil {
		return nil, 0, err
	}
	items, total, err := s.obligations.Filter(ctx, cc.CompanyID, shared.Criteria(req.Criteria),
		pageFilter(req.Page, req.PageSize, req.OrderBy, req.OrderDir, req.Search))
	if err != nil {
		return nil, 0, err
	}
	return ToObligationResponses(items), total, nil
}

// Deactivate soft-deactivates an obligation; obligations are never deleted
func (s *ObligationService) Deactivate(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (result *ObligationResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "obligation", "deactivate",
		telemetry.WithAttribute(telemetry.SpanAttrObligationID, id.String()))
	defer func() { telemetry.End(span, err) }()

	var o *finance.Obligation
	_, err = s.runner.Run(ctx, cc.CompanyID, "", "deactivate", func(txCtx context.Context) (uuid.UUID, error) {
		var err error
		o, err = s.obligations.FindByIDForCompany(txCtx, cc.CompanyID, id)
		if err != nil {
			return uuid.Nil, err
		}
		if err := o.Deactivate(); err != nil {
			return uuid.Nil, err
		}
		return o.ID, s.obligations.SaveWithLock(txCtx, o)
	})
	if err != nil {
		return nil, err
	}
	operation.PublishEvents(ctx, s.publisher, s.logger, o)

	resp := ToObligationResponse(o)
	return &resp, nil
}

// Payments returns the payment history of an obligation
func (s *ObligationService) Payments(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (*PaymentHistoryResponse, error) {
	if _, err := s.obligations.FindByIDForCompany(ctx, cc.CompanyID, id); err != nil {
		return nil, err
	}
	events, err := s.payments.FindByObligation(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentEventResponse, len(events))
	for i := range events {
		out[i] = ToPaymentEventResponse(&events[i])
	}
	return &PaymentHistoryResponse{ObligationID: id, Payments: out, Total: finance.SumPayments(events)}, nil
}

// Payment returns one payment event of an obligation
func (s *ObligationService) Payment(ctx context.Context, cc shared.CompanyContext, obligationID, paymentID uuid.UUID) (*PaymentEventResponse, error) {
	history, err := s.Payments(ctx, cc, obligationID)
	if err != nil {
		return nil, err
	}
	for i := range history.Payments {
		if history.Payments[i].ID == paymentID {
			return &history.Payments[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// CheckBalance verifies the paid amount equals the sum of recorded payments
func (s *ObligationService) CheckBalance(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (decimal.Decimal, error) {
	o, err := s.obligations.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return decimal.Zero, err
	}
	sum, err := s.payments.SumByObligation(ctx, cc.CompanyID, id)
	if err != nil {
		return decimal.Zero, err
	}
	return o.PaidAmount.Sub(sum.Total), nil
}

func pageFilter(page, pageSize int, orderBy, orderDir, search string) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	f.Search = search
	return f
}
