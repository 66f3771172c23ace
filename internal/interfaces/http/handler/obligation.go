package handler

import (
	"github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ObligationHandler handles receivables, payables and their abatements
type ObligationHandler struct {
	BaseHandler
	obligations *finance.ObligationService
	abatements  *finance.AbatementService
	receipts    *finance.ReceiptService
}

// NewObligationHandler creates a new ObligationHandler. receipts may be nil,
// in which case receipt downloads answer RECEIPT_NOT_FOUND.
func NewObligationHandler(obligations *finance.ObligationService, abatements *finance.AbatementService, receipts *finance.ReceiptService) *ObligationHandler {
	return &ObligationHandler{
		obligations: obligations,
		abatements:  abatements,
		receipts:    receipts,
	}
}

// List godoc
//
//	@Summary		List obligations
//	@Description	Page through the company's obligations
//	@Tags			finance-obligations
//	@Produce		json
//	@Param			type		query		string	false	"income or expense"
//	@Param			status		query		[]string	false	"Status filter"
//	@Param			account_id	query		string	false	"Cash account ID"
//	@Param			sale_id		query		string	false	"Sale ID"
//	@Param			overdue		query		bool	false	"Only overdue"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	dto.Response{data=[]finance.ObligationResponse,meta=dto.Meta}
//	@Failure		400			{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/finance/obligations [get]
func (h *ObligationHandler) List(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var filter finance.ObligationListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	if filter.AccountID, ok = h.QueryUUID(c, "account_id"); !ok {
		return
	}
	if filter.SaleID, ok = h.QueryUUID(c, "sale_id"); !ok {
		return
	}

	items, total, err := h.obligations.List(c.Request.Context(), cc, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Filter applies a criteria map over whitelisted columns
func (h *ObligationHandler) Filter(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var req finance.FilterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items, total, err := h.obligations.Filter(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}

// Create godoc
//
//	@Summary	Create obligation
//	@Tags		finance-obligations
//	@Accept		json
//	@Produce	json
//	@Param		request	body		finance.CreateObligationRequest	true	"Obligation"
//	@Success	201		{object}	dto.Response{data=finance.ObligationResponse}
//	@Failure	422		{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/finance/obligations [post]
func (h *ObligationHandler) Create(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var req finance.CreateObligationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	obligation, err := h.obligations.Create(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, obligation)
}

// GetByID godoc
//
//	@Summary	Get obligation
//	@Tags		finance-obligations
//	@Produce	json
//	@Param		id	path		string	true	"Obligation ID"
//	@Success	200	{object}	dto.Response{data=finance.ObligationResponse}
//	@Failure	404	{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/finance/obligations/{id} [get]
func (h *ObligationHandler) GetByID(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	obligation, err := h.obligations.GetByID(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, obligation)
}

// Deactivate soft-deletes an obligation without payments
func (h *ObligationHandler) Deactivate(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	obligation, err := h.obligations.Deactivate(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, obligation)
}

// RegisterAbatement godoc
//
//	@Summary		Register abatement
//	@Description	Apply a full or partial payment to an obligation. Amounts above the balance are clamped.
//	@Tags			finance-obligations
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string								true	"Obligation ID"
//	@Param			Idempotency-Key	header		string								false	"Operation ID"
//	@Param			request			body		finance.RegisterAbatementRequest	true	"Payment"
//	@Success		201				{object}	dto.Response{data=finance.AbatementResult}
//	@Success		200				{object}	dto.Response{data=finance.AbatementResult}	"Replayed"
//	@Failure		422				{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/finance/obligations/{id}/abatements [post]
func (h *ObligationHandler) RegisterAbatement(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}
	var req finance.RegisterAbatementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.ObligationID = id
	req.OperationID = middleware.OperationID(c, req.OperationID)

	result, err := h.abatements.RegisterAbatement(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Mutation(c, result, result.Replayed)
}

// Payments lists the payment history of an obligation
func (h *ObligationHandler) Payments(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	history, err := h.obligations.Payments(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// Receipt returns a short-lived download link for a payment's receipt
func (h *ObligationHandler) Receipt(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.PathUUID(c, "paymentId")
	if !ok {
		return
	}

	payment, err := h.obligations.Payment(c.Request.Context(), cc, id, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if payment.ReceiptKey == "" || h.receipts == nil {
		h.HandleError(c, shared.NewDomainError(finance.CodeReceiptNotFound, "Payment has no receipt"))
		return
	}

	link, err := h.receipts.DownloadURL(c.Request.Context(), cc, payment.ReceiptKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}
