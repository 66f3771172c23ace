package trade

import (
	"context"

	"github.com/erp/settlement/internal/application/operation"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const kindConversion = "quote_conversion"

// QuoteService manages quotes and their one-time conversion into sales
type QuoteService struct {
	runner    *operation.Runner
	quotes    trade.QuoteRepository
	sales     trade.SaleRepository
	publisher shared.EventPublisher
	metrics   *metrics.Ledger
	logger    *zap.Logger
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(runner *operation.Runner, quotes trade.QuoteRepository, sales trade.SaleRepository, logger *zap.Logger) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{runner: runner, quotes: quotes, sales: sales, logger: logger}
}

// SetEventPublisher sets the event publisher
func (s *QuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the ledger metrics
func (s *QuoteService) SetMetrics(m *metrics.Ledger) {
	s.metrics = m
}

// Create opens a draft quote
func (s *QuoteService) Create(ctx context.Context, cc shared.CompanyContext, req CreateQuoteRequest) (*QuoteResponse, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	items, err := toLines(req.Items)
	if err != nil {
		return nil, err
	}
	seller := req.SellerName
	if seller == "" {
		seller = cc.UserName
	}
	number, err := s.quotes.GenerateQuoteNumber(ctx, cc.CompanyID)
	if err != nil {
		return nil, err
	}
	q, err := trade.NewQuote(cc.CompanyID, number, req.ClientID, seller, items, req.Discount, req.Shipping, req.ValidUntil)
	if err != nil {
		return nil, err
	}
	q.SetClientName(req.ClientName)
	q.SetNotes(req.Notes)
	if cc.HasUser() {
		q.SetCreatedBy(cc.UserID)
	}
	if err := s.quotes.Create(ctx, q); err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// GetByID returns one quote
func (s *QuoteService) GetByID(ctx context.Context, cc shared.CompanyContext, id uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quotes.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// List returns quotes matching the filter
func (s *QuoteService) List(ctx context.Context, cc shared.CompanyContext, filter QuoteListFilter) ([]QuoteResponse, int64, error) {
	if err := cc.Validate(); err != nil {
		return nil, 0, err
	}
	domainFilter := trade.QuoteFilter{
		Filter:   pageFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		ClientID: filter.ClientID,
	}
	if filter.Status != "" {
		st := trade.QuoteStatus(filter.Status)
		if !st.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, "Quote status is not valid")
		}
		domainFilter.Status = &st
	}
	items, total, err := s.quotes.Search(ctx, cc.CompanyID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToQuoteResponses(items), total, nil
}

// Update revises a quote that is still rascunho or enviado
func (s *QuoteService) Update(ctx context.Context, cc shared.CompanyContext, id uuid.UUID, req UpdateQuoteRequest) (*QuoteResponse, error) {
	q, err := s.quotes.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	items := q.Items
	if req.Items != nil {
		if items, err = toLines(req.Items); err != nil {
			return nil, err
		}
	}
	discount, shipping, validUntil := q.Discount, q.Shipping, q.ValidUntil
	if req.Discount != nil {
		discount = *req.Discount
	}
	if req.Shipping != nil {
		shipping = *req.Shipping
	}
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil
	}
	if err := q.Revise(items, discount, shipping, validUntil); err != nil {
		return nil, err
	}
	if req.ClientName != nil {
		q.SetClientName(*req.ClientName)
	}
	if req.Notes != nil {
		q.SetNotes(*req.Notes)
	}
	if err := s.quotes.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// ChangeStatus applies a manual status transition
func (s *QuoteService) ChangeStatus(ctx context.Context, cc shared.CompanyContext, id uuid.UUID, req ChangeQuoteStatusRequest) (*QuoteResponse, error) {
	q, err := s.quotes.FindByIDForCompany(ctx, cc.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if err := q.ChangeStatus(trade.QuoteStatus(req.Status)); err != nil {
		return nil, err
	}
	if err := s.quotes.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}
	operation.PublishEvents(ctx, s.publisher, s.logger, q)
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// ConvertToSale copies the quote into a new invoiced sale and marks the quote
// convertido. Both writes commit together or not at all.
func (s *QuoteService) ConvertToSale(ctx context.Context, cc shared.CompanyContext, id uuid.UUID, req ConvertQuoteRequest) (result *ConversionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "convert",
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, cc.CompanyID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOperationID, req.OperationID),
	)
	defer func() {
		replayed := result != nil && result.Replayed
		s.metrics.ObserveOperation(kindConversion, operation.Outcome(err, replayed))
		if err == nil && !replayed {
			s.metrics.ObserveQuoteConversion()
		}
		telemetry.End(span, err)
	}()

	if err := cc.Validate(); err != nil {
		return nil, err
	}

	var (
		quote *trade.Quote
		sale  *trade.Sale
	)
	res, err := s.runner.Run(ctx, cc.CompanyID, req.OperationID, kindConversion, func(txCtx context.Context) (uuid.UUID, error) {
		var err error
		quote, err = s.quotes.FindByIDForCompany(txCtx, cc.CompanyID, id)
		if err != nil {
			return uuid.Nil, err
		}
		if !quote.CanConvert() {
			return uuid.Nil, shared.NewDomainError(trade.CodeQuoteAlreadyConverted, "Quote has already been converted")
		}
		number, err := s.sales.GenerateSaleNumber(txCtx, cc.CompanyID)
		if err != nil {
			return uuid.Nil, err
		}
		sale, err = trade.NewSaleFromQuote(quote, number)
		if err != nil {
			return uuid.Nil, err
		}
		if cc.HasUser() {
			sale.SetCreatedBy(cc.UserID)
		}
		if err := s.sales.Create(txCtx, sale); err != nil {
			return uuid.Nil, err
		}
		if err := quote.MarkConverted(sale.ID); err != nil {
			return uuid.Nil, err
		}
		if err := s.quotes.SaveWithLock(txCtx, quote); err != nil {
			return uuid.Nil, err
		}
		return sale.ID, nil
	})
	if err != nil {
		logger.For(ctx, s.logger).Warn("quote conversion rejected",
			zap.String("quote_id", id.String()),
			zap.String("code", shared.ErrorCode(err)),
			zap.Error(err))
		return nil, err
	}
	if res.Replayed {
		quote, err = s.quotes.FindByIDForCompany(ctx, cc.CompanyID, id)
		if err != nil {
			return nil, err
		}
		sale, err = s.sales.FindByIDForCompany(ctx, cc.CompanyID, res.Ref)
		if err != nil {
			return nil, err
		}
		return &ConversionResult{Quote: ToQuoteResponse(quote), Sale: ToSaleResponse(sale), Replayed: true}, nil
	}

	operation.PublishEvents(ctx, s.publisher, s.logger, sale, quote)
	telemetry.SetAttributes(span, telemetry.SpanAttrSaleID, sale.ID.String())
	logger.For(ctx, s.logger).Info("quote converted",
		zap.String("quote_id", quote.ID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.String("sale_number", sale.Number))

	return &ConversionResult{Quote: ToQuoteResponse(quote), Sale: ToSaleResponse(sale)}, nil
}
