package handler

import (
	"github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// CashAccountHandler handles cash accounts and their reconciliation
type CashAccountHandler struct {
	BaseHandler
	accounts *finance.CashAccountService
}

// NewCashAccountHandler creates a new CashAccountHandler
func NewCashAccountHandler(accounts *finance.CashAccountService) *CashAccountHandler {
	return &CashAccountHandler{accounts: accounts}
}

type accountListQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List pages through the company's cash accounts
func (h *CashAccountHandler) List(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var q accountListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	items, total, err := h.accounts.List(c.Request.Context(), cc, q.Page, q.PageSize, q.Search)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, q.Page, q.PageSize)
}

// Create opens a cash account
func (h *CashAccountHandler) Create(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var req finance.CreateCashAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// GetByID returns one cash account
func (h *CashAccountHandler) GetByID(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	account, err := h.accounts.GetByID(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Reconcile godoc
//
//	@Summary		Reconcile cash account
//	@Description	Compare the stored balance with initial balance plus recorded payments
//	@Tags			finance-accounts
//	@Produce		json
//	@Param			id	path		string	true	"Cash account ID"
//	@Success		200	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/finance/accounts/{id}/reconcile [get]
func (h *CashAccountHandler) Reconcile(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	id, ok := h.PathUUID(c, "id")
	if !ok {
		return
	}

	report, err := h.accounts.Reconcile(c.Request.Context(), cc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// InstallmentHandler previews and creates installment plans
type InstallmentHandler struct {
	BaseHandler
	installments *finance.InstallmentService
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(installments *finance.InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{installments: installments}
}

// Preview splits an amount without persisting anything
func (h *InstallmentHandler) Preview(c *gin.Context) {
	var req finance.InstallmentPlanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	preview, err := h.installments.Preview(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Create godoc
//
//	@Summary	Create installments
//	@Tags		finance-installments
//	@Accept		json
//	@Produce	json
//	@Param		Idempotency-Key	header		string							false	"Operation ID"
//	@Param		request			body		finance.InstallmentPlanRequest	true	"Plan"
//	@Success	201				{object}	dto.Response{data=finance.InstallmentsResult}
//	@Security	BearerAuth
//	@Router		/finance/installments [post]
func (h *InstallmentHandler) Create(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var req finance.InstallmentPlanRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.OperationID = middleware.OperationID(c, req.OperationID)

	result, err := h.installments.CreateInstallments(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Mutation(c, result, result.Replayed)
}

// ReceiptHandler hands out presigned receipt upload targets
type ReceiptHandler struct {
	BaseHandler
	receipts *finance.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts *finance.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// RequestUpload returns a key and a presigned PUT URL. The key is later
// passed as receipt_key when registering the abatement.
func (h *ReceiptHandler) RequestUpload(c *gin.Context) {
	cc, ok := h.Company(c)
	if !ok {
		return
	}
	var req finance.ReceiptUploadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	target, err := h.receipts.RequestUpload(c.Request.Context(), cc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, target)
}
