package finance

import (
	"context"
	"time"

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

const kindAbatement = "abatement"

// UserDirectory resolves the display name stamped on payment records
type UserDirectory interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// AbatementService records partial and full payments against obligations.
// One abatement moves the obligation, the cash account, the payment
// history and, for invoiced sales, the sale totals in a single transaction.
type AbatementService struct {
	runner      *operation.Runner
	obligations finance.ObligationRepository
	accounts    finance.CashAccountRepository
	payments    finance.PaymentEventRepository
	sales       trade.SaleRepository
	users       UserDirectory
	receipts    *ReceiptService
	formatter   *AmountFormatter
	publisher   shared.EventPublisher
	metrics     *metrics.Ledger
	logger      *zap.Logger
}

// NewAbatementService creates a new AbatementService
func NewAbatementService(
	runner *operation.Runner,
	obligations finance.ObligationRepository,
	accounts finance.CashAccountRepository,
	payments finance.PaymentEventRepository,
	sales trade.SaleRepository,
	logger *zap.Logger,
) *AbatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbatementService{
		runner:      runner,
		obligations: obligations,
		accounts:    accounts,
		payments:    payments,
		sales:       sales,
		formatter:   DefaultAmountFormatter(),
		logger:      logger,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *AbatementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the ledger metrics
func (s *AbatementService) SetMetrics(m *metrics.Ledger) {
	s.metrics = m
}

// SetUserDirectory sets the lookup used when the company context carries no user name
func (s *AbatementService) SetUserDirectory(users UserDirectory) {
	s.users = users
}

// SetReceiptService enables receipt keys on abatements
func (s *AbatementService) SetReceiptService(receipts *ReceiptService) {
	s.receipts = receipts
}

// SetAmountFormatter sets the formatter for the remaining balance display
func (s *AbatementService) SetAmountFormatter(f *AmountFormatter) {
	if f != nil {
		s.formatter = f
	}
}

// RegisterAbatement applies req to its obligation. Amounts above the
// remaining balance are clamped, never rejected. A repeated OperationID
// returns the stored result without writing again.
func (s *AbatementService) RegisterAbatement(ctx context.Context, cc shared.CompanyContext, req RegisterAbatementRequest) (result *AbatementResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "abatement", "register",
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, cc.CompanyID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrObligationID, req.ObligationID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAccountID, req.AccountID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount),
		telemetry.WithAttribute(telemetry.SpanAttrOperationID, req.OperationID),
	)
	defer func() {
		replayed := result != nil && result.Replayed
		s.metrics.ObserveOperation(kindAbatement, operation.Outcome(err, replayed))
		if shared.ErrorCode(err) == shared.CodeConcurrencyConflict {
			s.metrics.ObserveConcurrencyConflict("obligation")
		}
		telemetry.End(span, err)
	}()

	if err := cc.Validate(); err != nil {
		return nil, err
	}
	method, paymentDate, err := s.validate(ctx, cc, req)
	if err != nil {
		return nil, err
	}
	responsible := s.responsible(ctx, cc)

	var (
		obligation *finance.Obligation
		account    *finance.CashAccount
		sale       *trade.Sale
		outcome    *finance.AbatementOutcome
		res        operation.Result
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(kindAbatement, cc.CompanyID.String()), func(ctx context.Context) {
		res, err = s.runner.Run(ctx, cc.CompanyID, req.OperationID, kindAbatement, func(txCtx context.Context) (uuid.UUID, error) {
			var err error
			obligation, err = s.obligations.FindByIDForCompany(txCtx, cc.CompanyID, req.ObligationID)
			if err != nil {
				return uuid.Nil, err
			}
			outcome, err = obligation.ApplyAbatement(req.Amount, paymentDate, req.AccountID)
			if err != nil {
				return uuid.Nil, err
			}
			if err := s.obligations.SaveWithLock(txCtx, obligation); err != nil {
				return uuid.Nil, err
			}

			account, err = s.accounts.FindByIDForCompany(txCtx, cc.CompanyID, req.AccountID)
			if err != nil {
				return uuid.Nil, err
			}
			if _, err := account.PostAbatement(obligation.Type, outcome.Applied); err != nil {
				return uuid.Nil, err
			}
			if err := s.accounts.SaveWithLock(txCtx, account); err != nil {
				return uuid.Nil, err
			}

			payment, err := finance.NewPaymentEvent(obligation, outcome.Applied, paymentDate, req.AccountID, method, responsible)
			if err != nil {
				return uuid.Nil, err
			}
			payment.WithOperation(req.OperationID).WithReceipt(req.ReceiptKey)
			if err := s.payments.Create(txCtx, payment); err != nil {
				return uuid.Nil, err
			}

			if obligation.SaleID != nil && s.sales != nil {
				sale, err = s.sales.FindByIDForCompany(txCtx, cc.CompanyID, *obligation.SaleID)
				if err != nil {
					return uuid.Nil, err
				}
				if err := sale.RegisterPayment(outcome.Applied); err != nil {
					return uuid.Nil, err
				}
				if err := s.sales.SaveWithLock(txCtx, sale); err != nil {
					return uuid.Nil, err
				}
			}
			return payment.ID, nil
		})
	})
	log := logger.For(ctx, s.logger)
	if err != nil {
		log.Warn("abatement rejected",
			zap.String("obligation_id", req.ObligationID.String()),
			zap.String("code", shared.ErrorCode(err)),
			zap.Error(err))
		return nil, err
	}
	if res.Replayed {
		return s.replay(ctx, cc, req)
	}

	aggregates := []shared.AggregateRoot{obligation, account}
	if sale != nil {
		aggregates = append(aggregates, sale)
	}
	operation.PublishEvents(ctx, s.publisher, s.logger, aggregates...)
	s.metrics.ObserveAbatement(string(obligation.Type), outcome.Applied, outcome.Clamped)
	telemetry.SetAttributes(span, telemetry.SpanAttrClamped, outcome.Clamped)

	log.Info("abatement applied",
		zap.String("obligation_id", obligation.ID.String()),
		zap.String("applied", outcome.Applied.String()),
		zap.Bool("clamped", outcome.Clamped),
		zap.String("status", string(obligation.Status)))

	return &AbatementResult{
		Obligation:       ToObligationResponse(obligation),
		PaymentEventID:   res.Ref,
		Applied:          outcome.Applied,
		Requested:        outcome.Requested,
		Clamped:          outcome.Clamped,
		AccountBalance:   account.CurrentBalance,
		RemainingDisplay: s.formatter.Remaining(obligation.RemainingAmount),
	}, nil
}

// validate runs every pre-write check so nothing is written for a bad request
func (s *AbatementService) validate(ctx context.Context, cc shared.CompanyContext, req RegisterAbatementRequest) (finance.PaymentMethod, time.Time, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return "", time.Time{}, shared.NewDomainError(finance.CodeInvalidAmount, "Abatement amount must be positive")
	}
	if req.AccountID == uuid.Nil {
		return "", time.Time{}, shared.NewDomainError(finance.CodeAccountRequired, "A cash account must be selected")
	}
	method := finance.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return "", time.Time{}, shared.NewDomainError(finance.CodeInvalidPaymentMethod, "Payment method is not valid")
	}
	if req.ReceiptKey != "" {
		if s.receipts == nil {
			return "", time.Time{}, shared.NewDomainError(shared.CodeInvalidInput, "Receipt storage is not configured")
		}
		if err := s.receipts.Verify(ctx, cc, req.ReceiptKey); err != nil {
			return "", time.Time{}, err
		}
	}
	paymentDate := time.Now()
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = *req.PaymentDate
	}
	return method, paymentDate, nil
}

func (s *AbatementService) responsible(ctx context.Context, cc shared.CompanyContext) string {
	if cc.UserName != "" || !cc.HasUser() || s.users == nil {
		return cc.UserName
	}
	name, err := s.users.DisplayName(ctx, cc.UserID)
	if err != nil {
		logger.For(ctx, s.logger).Warn("failed to resolve acting user", zap.Error(err))
		return ""
	}
	return name
}

// replay rebuilds the result of an already completed abatement
func (s *AbatementService) replay(ctx context.Context, cc shared.CompanyContext, req RegisterAbatementRequest) (*AbatementResult, error) {
	payment, err := s.payments.FindByOperation(ctx, cc.CompanyID, req.OperationID)
	if err != nil {
		return nil, err
	}
	obligation, err := s.obligations.FindByIDForCompany(ctx, cc.CompanyID, payment.ObligationID)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByIDForCompany(ctx, cc.CompanyID, payment.AccountID)
	if err != nil {
		return nil, err
	}
	return &AbatementResult{
		Obligation:       ToObligationResponse(obligation),
		PaymentEventID:   payment.ID,
		Applied:          payment.Amount,
		Requested:        req.Amount,
		Clamped:          req.Amount.GreaterThan(payment.Amount),
		AccountBalance:   account.CurrentBalance,
		RemainingDisplay: s.formatter.Remaining(obligation.RemainingAmount),
		Replayed:         true,
	}, nil
}
