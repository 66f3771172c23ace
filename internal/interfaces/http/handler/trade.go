package handler

import (
	"github.com/erp/settlement/internal/application/trade"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SaleHandler handles sales and product withdrawals
type SaleHandler struct {
	BaseHandler
	sales       *trade.SaleService
	withdrawals *trade.WithdrawalService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales *trade.SaleService, withdrawals *trade.WithdrawalService) *SaleHandler {
	return &SaleHandler{sales: sales, withdrawals: withdrawals}
}

// List godoc
//
//	@Summary	List sales
//	@Tags		trade-sales
//	@Produce	json
//	@Param		client_id			query		string	false	"Client ID"
//	@Param		payment_status		query		string	false	"pendente, parcial or pago"
//	@Param		withdrawal_status	query		string	false	"aguardando, parcial or total"
//	@Param		page				query		int		false	"Page number"
//	@Param		page_size			query		int		false	"Page size"
//	@Success	200					{object}	dto.Response{data=[]trade.SaleResponse,meta=dto.Meta}
//	@Security	BearerAuth
//	@Router		/trade/sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var filter trade.SaleListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	if filter.ClientID, ok = h.QueryUUID(c, "client_id"); !ok {
		return
	}

	items, total, err := h.sales.List(c.Request.Context(), cc, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Create godoc
//
//	@Summary		Invoice sale
//	@Description	Create a sale with its down payment and receivable installments in one transaction
//	@Tags			trade-sales
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					false	"Operation ID"
//	@Param			request			body		trade.CreateSaleRequest	true	"Sale"
//	@Success		201				{object}	dto.Response{data=trade.SaleResult}
//	@Failure		422				{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/trade/sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var req trade.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.OperationID = middleware.OperationID(c, req.OperationID)

	result, err := h.sales.Create(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Mutation(c, result, result.Replayed)
}

// GetByID returns a sale with its obligations
func (h *SaleHandler) GetByID(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.sales.GetByID(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterWithdrawal records goods collected against one sale line
func (h *SaleHandler) RegisterWithdrawal(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}
	var req trade.RegisterWithdrawalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.SaleID = id
	req.OperationID = middleware.OperationID(c, req.OperationID)

	result, err := h.withdrawals.RegisterWithdrawal(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Mutation(c, result, result.Replayed)
}

// Withdrawals lists the withdrawal history of a sale
func (h *SaleHandler) Withdrawals(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	events, err := h.sales.Withdrawals(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, events)
}

// QuoteHandler handles quotes and their conversion into sales
type QuoteHandler struct {
	BaseHandler
	quotes *trade.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes *trade.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// List pages through the company's quotes
func (h *QuoteHandler) List(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var filter trade.QuoteListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	if filter.ClientID, ok = h.QueryUUID(c, "client_id"); !ok {
		return
	}

	items, total, err := h.quotes.List(c.Request.Context(), cc, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Create opens a draft quote
func (h *QuoteHandler) Create(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var req trade.CreateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.Create(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, quote)
}

// GetByID returns one quote
func (h *QuoteHandler) GetByID(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	quote, err := h.quotes.GetByID(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Update revises an open quote
func (h *QuoteHandler) Update(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}
	var req trade.UpdateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.Update(c.Request.Context(), cc, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// ChangeStatus applies a manual status transition
func (h *QuoteHandler) ChangeStatus(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}
	var req trade.ChangeQuoteStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.ChangeStatus(c.Request.Context(), cc, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Convert godoc
//
//	@Summary		Convert quote
//	@Description	Turn an approved quote into a sale. Converting twice fails with QUOTE_ALREADY_CONVERTED.
//	@Tags			trade-quotes
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string						true	"Quote ID"
//	@Param			Idempotency-Key	header		string						false	"Operation ID"
//	@Param			request			body		trade.ConvertQuoteRequest	false	"Conversion"
//	@Success		201				{object}	dto.Response{data=trade.ConversionResult}
//	@Failure		422				{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/trade/quotes/{id}/convert [post]
func (h *QuoteHandler) Convert(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}
	var req trade.ConvertQuoteRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	req.OperationID = middleware.OperationID(c, req.OperationID)

	result, err := h.quotes.ConvertToSale(c.Request.Context(), cc, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Mutation(c, result, result.Replayed)
}
