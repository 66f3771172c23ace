package trade

import (
	"context"

	appfinance "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const kindWithdrawal = "withdrawal"

// WithdrawalService records physical collection of sold goods.
// Quantities beyond a line's balance are rejected, never clamped.
type WithdrawalService struct {
	runner      *operation.Runner
	sales       trade.SaleRepository
	withdrawals trade.WithdrawalEventRepository
	users       appfinance.UserDirectory
	publisher   shared.EventPublisher
	metrics     *metrics.Ledger
	logger      *zap.Logger
}

// NewWithdrawalService creates a new WithdrawalService
func NewWithdrawalService(runner *operation.Runner, sales trade.SaleRepository, withdrawals trade.WithdrawalEventRepository, logger *zap.Logger) *WithdrawalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalService{runner: runner, sales: sales, withdrawals: withdrawals, logger: logger}
}

// SetEventPublisher sets the event publisher
func (s *WithdrawalService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the ledger metrics
func (s *WithdrawalService) SetMetrics(m *metrics.Ledger) {
	s.metrics = m
}

// SetUserDirectory sets the lookup used to name the responsible user
func (s *WithdrawalService) SetUserDirectory(users appfinance.UserDirectory) {
	s.users = users
}

// RegisterWithdrawal adds quantity to the line's withdrawn balance and stores
// the audit record. The sale and the event are written in one transaction.
func (s *WithdrawalService) RegisterWithdrawal(ctx context.Context, cc shared.CompanyContext, req RegisterWithdrawalRequest) (result *WithdrawalResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "withdrawal", "register",
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, cc.CompanyID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, req.SaleID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
		telemetry.WithAttribute(telemetry.SpanAttrOperationID, req.OperationID),
	)
	defer func() {
		replayed := result != nil && result.Replayed
		outcome := operation.Outcome(err, replayed)
		s.metrics.ObserveOperation(kindWithdrawal, outcome)
		s.metrics.ObserveWithdrawal(outcome)
		if shared.ErrorCode(err) == shared.CodeConcurrencyConflict {
			s.metrics.ObserveConcurrencyConflict("sale")
		}
		telemetry.End(span, err)
	}()

	if err := cc.Validate(); err != nil {
		return nil, err
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Withdrawal quantity must be positive")
	}
	responsible := responsibleName(ctx, cc, s.users, s.logger)

	var (
		sale  *trade.Sale
		event *trade.WithdrawalEvent
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(kindWithdrawal, cc.CompanyID.String()), func(ctx context.Context) {
		var res operation.Result
		res, err = s.runner.Run(ctx, cc.CompanyID, req.OperationID, kindWithdrawal, func(txCtx context.Context) (uuid.UUID, error) {
			var err error
			sale, err = s.sales.FindByIDForCompany(txCtx, cc.CompanyID, req.SaleID)
			if err != nil {
				return uuid.Nil, err
			}
			line, err := sale.Withdraw(req.ProductID, req.Quantity)
			if err != nil {
				return uuid.Nil, err
			}
			if err := s.sales.SaveWithLock(txCtx, sale); err != nil {
				return uuid.Nil, err
			}
			event = trade.NewWithdrawalEvent(sale, *line, req.Quantity, responsible, req.Notes)
			event.OperationID = req.OperationID
			if err := s.withdrawals.Create(txCtx, event); err != nil {
				return uuid.Nil, err
			}
			return event.ID, nil
		})
		if err == nil && res.Replayed {
			result, err = s.replay(ctx, cc, req.SaleID, res.Ref)
		}
	})
	log := logger.For(ctx, s.logger)
	if err != nil {
		log.Warn("withdrawal rejected",
			zap.String("sale_id", req.SaleID.String()),
			zap.String("product_id", req.ProductID.String()),
			zap.String("code", shared.ErrorCode(err)),
			zap.Error(err))
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	operation.PublishEvents(ctx, s.publisher, s.logger, sale)
	log.Info("withdrawal registered",
		zap.String("sale_id", sale.ID.String()),
		zap.String("product_id", req.ProductID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("withdrawal_status", string(sale.WithdrawalStatus)))

	return &WithdrawalResult{
		Sale:  ToSaleResponse(sale),
		Event: ToWithdrawalEventResponse(event),
	}, nil
}

// replay rebuilds the result of an already completed withdrawal
func (s *WithdrawalService) replay(ctx context.Context, cc shared.CompanyContext, saleID, eventID uuid.UUID) (*WithdrawalResult, error) {
	sale, err := s.sales.FindByIDForCompany(ctx, cc.CompanyID, saleID)
	if err != nil {
		return nil, err
	}
	events, err := s.withdrawals.FindBySale(ctx, cc.CompanyID, saleID)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].ID == eventID {
			return &WithdrawalResult{
				Sale:     ToSaleResponse(sale),
				Event:    ToWithdrawalEventResponse(&events[i]),
				Replayed: true,
			}, nil
		}
	}
	return nil, shared.ErrNotFound
}
