package trade

import (
	"context"
	"fmt"
	"time"

	appfinance "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const kindSale = "sale"

// SaleService invoices sales and creates the obligations that settle them
type SaleService struct {
	runner      *operation.Runner
	sales       trade.SaleRepository
	withdrawals trade.WithdrawalEventRepository
	obligations finance.ObligationRepository
	accounts    finance.CashAccountRepository
	payments    finance.PaymentEventRepository
	users       appfinance.UserDirectory
	publisher   shared.EventPublisher
	metrics     *metrics.Ledger
	logger      *zap.Logger
}

// NewSaleService creates a new SaleService
func NewSaleService(
	runner *operation.Runner,
	sales trade.SaleRepository,
	withdrawals trade.WithdrawalEventRepository,
	obligations finance.ObligationRepository,
	accounts finance.CashAccountRepository,
	payments finance.PaymentEventRepository,
	logger *zap.Logger,
) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		runner:      runner,
		sales:       sales,
		withdrawals: withdrawals,
		obligations: obligations,
		accounts:    accounts,
		payments:    payments,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the ledger metrics
func (s *SaleService) SetMetrics(m *metrics.Ledger) {
	s.metrics = m
}

// SetUserDirectory sets the lookup used to name the responsible user
func (s *SaleService) SetUserDirectory(users appfinance.UserDirectory) {
	s.users = users
}

// Create invoices a sale. The sale, the down payment with its cash movement,
// and the receivables for the remainder are written in one transaction.
func (s *SaleService) Create(ctx context.Context, cc shared.CompanyContext, req CreateSaleRequest) (result *SaleResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "create",
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, cc.CompanyID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOperationID, req.OperationID),
	)
	defer func() {
		replayed := result != nil && result.Replayed
		s.metrics.ObserveOperation(kindSale, operation.Outcome(err, replayed))
		telemetry.End(span, err)
	}()

	if err := cc.Validate(); err != nil {
		return nil, err
	}
	items, err := toLines(req.Items)
	if err != nil {
		return nil, err
	}
	responsible := responsibleName(ctx, cc, s.users, s.logger)
	seller := req.SellerName
	if seller == "" {
		seller = responsible
	}

	var (
		sale        *trade.Sale
		down        *finance.Obligation
		account     *finance.CashAccount
		receivables []*finance.Obligation
	)
	res, err := s.runner.Run(ctx, cc.CompanyID, req.OperationID, kindSale, func(txCtx context.Context) (uuid.UUID, error) {
		number, err := s.sales.GenerateSaleNumber(txCtx, cc.CompanyID)
		if err != nil {
			return uuid.Nil, err
		}
		sale, err = trade.NewSale(cc.CompanyID, number, req.ClientID, seller, items, req.Discount, req.Shipping)
		if err != nil {
			return uuid.Nil, err
		}
		sale.SetClientName(req.ClientName)
		sale.SetNotes(req.Notes)
		if cc.HasUser() {
			sale.SetCreatedBy(cc.UserID)
		}

		remaining := sale.Total
		if req.DownPayment != nil {
			down, account, err = s.settleDownPayment(txCtx, cc, sale, *req.DownPayment)
			if err != nil {
				return uuid.Nil, err
			}
			remaining = remaining.Sub(down.PaidAmount)
		}
		if err := s.sales.Create(txCtx, sale); err != nil {
			return uuid.Nil, err
		}
		if down != nil {
			if err := s.obligations.Create(txCtx, down); err != nil {
				return uuid.Nil, err
			}
			payment, err := finance.NewPaymentEvent(down, down.PaidAmount, time.Now(), account.ID,
				finance.PaymentMethod(req.DownPayment.PaymentMethod), responsible)
			if err != nil {
				return uuid.Nil, err
			}
			payment.WithOperation(req.OperationID)
			if err := s.payments.Create(txCtx, payment); err != nil {
				return uuid.Nil, err
			}
		}

		if remaining.GreaterThan(decimal.Zero) {
			receivables, err = s.receivables(cc, sale, remaining, req)
			if err != nil {
				return uuid.Nil, err
			}
			if err := s.obligations.BulkCreate(txCtx, receivables); err != nil {
				return uuid.Nil, err
			}
		}
		return sale.ID, nil
	})
	if err != nil {
		logger.For(ctx, s.logger).Warn("sale rejected",
			zap.String("code", shared.ErrorCode(err)),
			zap.Error(err))
		return nil, err
	}
	if res.Replayed {
		return s.load(ctx, cc, res.Ref, true)
	}

	aggregates := []shared.AggregateRoot{sale}
	obligations := make([]appfinance.ObligationResponse, 0, len(receivables)+1)
	if down != nil {
		aggregates = append(aggregates, down, account)
		obligations = append(obligations, appfinance.ToObligationResponse(down))
	}
	for _, o := range receivables {
		aggregates = append(aggregates, o)
		obligations = append(obligations, appfinance.ToObligationResponse(o))
	}
	operation.PublishEvents(ctx, s.publisher, s.logger, aggregates...)
	if len(receivables) > 0 {
		s.metrics.ObserveInstallments(len(receivables))
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrSaleID, sale.ID.String())

	logger.For(ctx, s.logger).Info("sale invoiced",
		zap.String("sale_id", sale.ID.String()),
		zap.String("number", sale.Number),
		zap.String("total", sale.Total.String()),
		zap.Int("receivables", len(receivables)))

	return &SaleResult{Sale: ToSaleResponse(sale), Obligations: obligations}, nil
}

// settleDownPayment builds the paid obligation for the down payment and posts
// it to the cash account. The sale is updated in memory; the caller persists it.
func (s *SaleService) settleDownPayment(ctx context.Context, cc shared.CompanyContext, sale *trade.Sale, in DownPaymentInput) (*finance.Obligation, *finance.CashAccount, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, shared.NewDomainError(finance.CodeInvalidAmount, "Down payment must be positive")
	}
	if in.Amount.GreaterThan(sale.Total) {
		return nil, nil, shared.NewDomainError(finance.CodeInvalidAmount,
			fmt.Sprintf("Down payment %s exceeds the sale total %s", in.Amount, sale.Total))
	}
	if in.AccountID == uuid.Nil {
		return nil, nil, shared.NewDomainError(finance.CodeAccountRequired, "A cash account must be selected")
	}
	if !finance.PaymentMethod(in.PaymentMethod).IsValid() {
		return nil, nil, shared.NewDomainError(finance.CodeInvalidPaymentMethod, "Payment method is not valid")
	}

	now := time.Now()
	down, err := finance.NewObligation(cc.CompanyID, finance.ObligationTypeIncome,
		fmt.Sprintf("Venda %s - entrada", sale.Number), in.Amount, now)
	if err != nil {
		return nil, nil, err
	}
	down.AttachToSale(sale.ID)
	down.SetDefaultAccount(in.AccountID)
	if cc.HasUser() {
		down.SetCreatedBy(cc.UserID)
	}
	outcome, err := down.ApplyAbatement(in.Amount, now, in.AccountID)
	if err != nil {
		return nil, nil, err
	}

	account, err := s.accounts.FindByIDForCompany(ctx, cc.CompanyID, in.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := account.PostAbatement(finance.ObligationTypeIncome, outcome.Applied); err != nil {
		return nil, nil, err
	}
	if err := s.accounts.SaveWithLock(ctx, account); err != nil {
		return nil, nil, err
	}
	if err := sale.RegisterPayment(outcome.Applied); err != nil {
		return nil, nil, err
	}
	return down, account, nil
}

// receivables splits what is still owed into pending income obligations
func (s *SaleService) receivables(cc shared.CompanyContext, sale *trade.Sale, remaining decimal.Decimal, req CreateSaleRequest) ([]*finance.Obligation, error) {
	count := req.Installments
	if count == 0 {
		count = 1
	}
	firstDue := time.Now()
	if req.FirstDueDate != nil && !req.FirstDueDate.IsZero() {
		firstDue = *req.FirstDueDate
	}
	plans, err := finance.PlanInstallments(remaining, count, firstDue)
	if err != nil {
		return nil, err
	}
	saleID := sale.ID
	obligations, err := finance.NewInstallmentObligations(cc.CompanyID, finance.ObligationTypeIncome,
		"Venda "+sale.Number, plans, &saleID, req.AccountID)
	if err != nil {
		return nil, err
	}
	if cc.HasUser() {
		for _, o := range obligations {
			o.SetCreatedBy(cc.UserID)
		}
	}
	return obligations, nil
}

// GetByID returns one sale with its obligations
func (s *SaleService) GetByID(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (*SaleResult, error) {
	return s.load(ctx, cc, id, false)
}

func (s *SaleService) load(ctx context.Context, cc shared.CompanyContext, id uuid.UUID, replayed bool) (*SaleResult, error) {
	sale, err := s.sales.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	obligations, err := s.obligations.FindBySale(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	return &SaleResult{
		Sale:        ToSaleResponse(sale),
		Obligations: appfinance.ToObligationResponses(obligations),
		Replayed:    replayed,
	}, nil
}

// List returns sales matching the filter
func (s *SaleService) List(ctx context.Context, cc shared.CompanyContext, filter SaleListFilter) ([]SaleResponse, int64, error) {
	if err := cc.Validate(); err != nil {
		return nil, 0, err
	}
	domainFilter := trade.SaleFilter{
		Filter:   pageFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		ClientID: filter.ClientID,
		From:     filter.From,
		To:       filter.To,
	}
	if filter.PaymentStatus != "" {
		ps := trade.PaymentStatus(filter.PaymentStatus)
		if !ps.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown payment status %q", filter.PaymentStatus))
		}
		domainFilter.PaymentStatus = &ps
	}
	if filter.WithdrawalStatus != "" {
		ws := trade.WithdrawalStatus(filter.WithdrawalStatus)
		if !ws.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown withdrawal status %q", filter.WithdrawalStatus))
		}
		domainFilter.WithdrawalStatus = &ws
	}

	items, total, err := s.sales.Search(ctx, cc.CompanyID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToSaleResponses(items), total, nil
}

// Withdrawals returns the withdrawal history of a sale
func (s *SaleService) Withdrawals(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) ([]WithdrawalEventResponse, error) {
	if _, err := s.sales.FindByIDForCompany(ctx, cc.CompanyID, id); err != nil {
		return nil, err
	}
	events, err := s.withdrawals.FindBySale(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	out := make([]WithdrawalEventResponse, len(events))
	for i := range events {
		out[i] = ToWithdrawalEventResponse(&events[i])
	}
	return out, nil
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

// responsibleName is the acting user's display name, from the company
// context or the user directory.
func responsibleName(ctx context.Context, cc shared.CompanyContext, users appfinance.UserDirectory, zl *zap.Logger) string {
	if cc.UserName != "" || !cc.HasUser() || users == nil {
		return cc.UserName
	}
	name, err := users.DisplayName(ctx, cc.UserID)
	if err != nil {
		logger.For(ctx, zl).Warn("failed to resolve acting user", zap.Error(err))
		return ""
	}
	return name
}
