package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/crmgate/crmgate/internal/infrastructure/bitrix"
	"github.com/crmgate/crmgate/pkg/response"
	"github.com/crmgate/crmgate/pkg/validation"
)

// CRMHandler proxies deal and contact operations to Bitrix24.
type CRMHandler struct {
	CRM    *bitrix.Client
	Logger *logrus.Logger
}

func NewCRMHandler(crm *bitrix.Client, logger *logrus.Logger) *CRMHandler {
	return &CRMHandler{CRM: crm, Logger: logger}
}

type createDealRequest struct {
	Title      string `json:"title" binding:"required,min=1"`
	Amount     string `json:"amount"`
	CurrencyID string `json:"currency_id"`
	StageID    string `json:"stage_id"`
	CategoryID int    `json:"category_id"`
	ContactID  string `json:"contact_id"`
}

type updateDealRequest struct {
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	CurrencyID string `json:"currency_id"`
	StageID    string `json:"stage_id"`
	ContactID  string `json:"contact_id"`
}

type createContactRequest struct {
	Name    string `json:"name" binding:"required,min=1"`
	Surname string `json:"surname"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
}

func (h *CRMHandler) crmError(c *gin.Context, action string, err error) {
	if errors.Is(err, bitrix.ErrNotConfigured) {
		response.Error[any](c, http.StatusServiceUnavailable, "CRM is not configured", nil)
		return
	}
	h.Logger.WithError(err).Error(action + " failed")
	response.Error[any](c, http.StatusBadGateway, action+" failed", nil)
}

func (h *CRMHandler) ListDeals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	result, err := h.CRM.ListDeals(c.Request.Context(), page)
	if err != nil {
		h.crmError(c, "deal listing", err)
		return
	}
	response.Success(c, http.StatusOK, result.Deals, "deals", gin.H{"page": result.Page, "total": result.Total})
}

func (h *CRMHandler) GetDeal(c *gin.Context) {
	deal, err := h.CRM.GetDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.crmError(c, "deal fetch", err)
		return
	}
	response.Success(c, http.StatusOK, deal, "deal", nil)
}

func (h *CRMHandler) CreateDeal(c *gin.Context) {
	var req createDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	id, err := h.CRM.CreateDeal(c.Request.Context(), bitrix.DealInput{
		Title:      req.Title,
		Amount:     req.Amount,
		CurrencyID: req.CurrencyID,
		StageID:    req.StageID,
		CategoryID: req.CategoryID,
		ContactID:  req.ContactID,
	})
	if err != nil {
		h.crmError(c, "deal creation", err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": id}, "deal created", nil)
}

func (h *CRMHandler) UpdateDeal(c *gin.Context) {
	var req updateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.CRM.UpdateDeal(c.Request.Context(), c.Param("id"), bitrix.DealInput{
		Title:      req.Title,
		Amount:     req.Amount,
		CurrencyID: req.CurrencyID,
		StageID:    req.StageID,
		ContactID:  req.ContactID,
	}); err != nil {
		h.crmError(c, "deal update", err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"updated": true}, "deal updated", nil)
}

func (h *CRMHandler) DeleteDeal(c *gin.Context) {
	if err := h.CRM.DeleteDeal(c.Request.Context(), c.Param("id")); err != nil {
		h.crmError(c, "deal deletion", err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "deal deleted", nil)
}

func (h *CRMHandler) CreateContact(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	id, err := h.CRM.CreateContact(c.Request.Context(), bitrix.ContactInput{
		Name:    req.Name,
		Surname: req.Surname,
		Email:   req.Email,
		Phone:   req.Phone,
	})
	if err != nil {
		h.crmError(c, "contact creation", err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": id}, "contact created", nil)
}
