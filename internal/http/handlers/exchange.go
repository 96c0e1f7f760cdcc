package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/http/response"
	"github.com/yungbote/truequecito-backend/internal/platform/apierr"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/services"
)

// receiptFields are the multipart file fields accepted for receipt uploads,
// in lookup order.
var receiptFields = []string{"receipt", "file"}

type ExchangeHandler struct {
	log       *logger.Logger
	exchanges services.ExchangeService
	// multipart memory budget; larger parts spill to temp files
	maxMemory int64
}

type ExchangeHandlerDeps struct {
	Log       *logger.Logger
	Exchanges services.ExchangeService
	MaxMemory int64
}

func NewExchangeHandler(deps ExchangeHandlerDeps) *ExchangeHandler {
	maxMemory := deps.MaxMemory
	if maxMemory <= 0 {
		maxMemory = 8 << 20
	}
	return &ExchangeHandler{
		log:       deps.Log.With("handler", "ExchangeHandler"),
		exchanges: deps.Exchanges,
		maxMemory: maxMemory,
	}
}

// POST /exchanges
func (h *ExchangeHandler) Propose(c *gin.Context) {
	var req struct {
		ProductOffered   string `json:"productOffered"`
		ProductRequested string `json:"productRequested"`
		UserRequested    string `json:"userRequested"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.ProposeRequest{}
	var err error
	if in.ProductOffered, err = optionalUUID("productOffered", req.ProductOffered); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if in.ProductRequested, err = optionalUUID("productRequested", req.ProductRequested); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if in.UserRequested, err = optionalUUID("userRequested", req.UserRequested); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	e, err := h.exchanges.Propose(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Propose", err)
		return
	}
	response.RespondCreated(c, gin.H{"message": "Exchange proposed successfully", "exchange": e})
}

// PUT /exchanges/accept/:exchangeId
func (h *ExchangeHandler) Accept(c *gin.Context) {
	id, ok := pathUUID(c, "exchangeId")
	if !ok {
		return
	}
	e, err := h.exchanges.Accept(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Accept", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Intercambio aceptado correctamente", "exchange": e})
}

// PUT /exchanges/cancel/:exchangeId
func (h *ExchangeHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "exchangeId")
	if !ok {
		return
	}
	e, err := h.exchanges.Reject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Cancel", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Intercambio rechazado correctamente", "exchange": e})
}

// PUT /exchanges/status
func (h *ExchangeHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		ExchangeID string `json:"exchangeId"`
		Status     string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := requiredUUID("exchangeId", req.ExchangeID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	res, err := h.exchanges.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.fail(c, "UpdateStatus", err)
		return
	}
	response.RespondOK(c, gin.H{
		"message":    fmt.Sprintf("Exchange %s successfully", res.Exchange.Status),
		"uniqueCode": res.UniqueCode,
	})
}

// POST /exchanges/upload-receipt
func (h *ExchangeHandler) UploadReceipt(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondDomainError(c, apierr.PayloadTooLarge("receipt upload too large"))
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	id, err := requiredUUID("exchangeId", c.PostForm("exchangeId"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	file, err := receiptFile(c)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	defer file.Close()

	e, err := h.exchanges.UploadReceipt(c.Request.Context(), services.UploadReceiptRequest{
		ExchangeID: id,
		Role:       c.PostForm("userType"),
		Address:    strings.TrimSpace(c.PostForm("address")),
		Phone:      strings.TrimSpace(c.PostForm("phoneNumber")),
		File:       file,
	})
	if err != nil {
		h.fail(c, "UploadReceipt", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Comprobante cargado con éxito", "exchange": e})
}

func receiptFile(c *gin.Context) (multipart.File, error) {
	for _, field := range receiptFields {
		f, _, err := c.Request.FormFile(field)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, apierr.New(http.StatusBadRequest, "invalid_multipart_form", err)
		}
	}
	return nil, http.ErrMissingFile
}

// GET /exchanges/:exchangeId/receipts/:role
func (h *ExchangeHandler) DownloadReceipt(c *gin.Context) {
	id, ok := pathUUID(c, "exchangeId")
	if !ok {
		return
	}
	rc, contentType, err := h.exchanges.OpenReceipt(c.Request.Context(), id, c.Param("role"))
	if err != nil {
		h.fail(c, "DownloadReceipt", err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": "inline",
		"Cache-Control":       "private, max-age=300",
	})
}

// GET /exchanges/:exchangeId
func (h *ExchangeHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "exchangeId")
	if !ok {
		return
	}
	v, err := h.exchanges.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Get", err)
		return
	}
	response.RespondOK(c, v)
}

// GET /exchanges/received
func (h *ExchangeHandler) ListReceived(c *gin.Context) {
	views, err := h.exchanges.ListReceived(c.Request.Context())
	if err != nil {
		h.fail(c, "ListReceived", err)
		return
	}
	response.RespondOK(c, views)
}

// GET /exchanges/sent
func (h *ExchangeHandler) ListSent(c *gin.Context) {
	views, err := h.exchanges.ListSent(c.Request.Context())
	if err != nil {
		h.fail(c, "ListSent", err)
		return
	}
	response.RespondOK(c, views)
}

// GET /exchanges/all
func (h *ExchangeHandler) ListAll(c *gin.Context) {
	views, err := h.exchanges.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, "ListAll", err)
		return
	}
	response.RespondOK(c, views)
}

// GET /exchanges/completed
func (h *ExchangeHandler) ListCompleted(c *gin.Context) {
	views, err := h.exchanges.ListCompleted(c.Request.Context())
	if err != nil {
		h.fail(c, "ListCompleted", err)
		return
	}
	response.RespondOK(c, views)
}

func (h *ExchangeHandler) fail(c *gin.Context, action string, err error) {
	if _, isAPI := apierr.As(err); !isAPI {
		switch code := domainagg.CodeOf(err); {
		case code == domainagg.CodeRetryable:
			h.log.Warn(action+" failed transiently", "error", err)
		case !code.CallerFault():
			h.log.Error(action+" failed", "error", err)
		}
	}
	_ = c.Error(err)
	response.RespondDomainError(c, err)
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := requiredUUID(name, c.Param(name))
	if err != nil {
		response.RespondDomainError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func requiredUUID(field, raw string) (uuid.UUID, error) {
	id, err := optionalUUID(field, raw)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, domainagg.NewError(domainagg.CodeValidation, "", field+" is required", nil)
	}
	return id, nil
}

// optionalUUID parses raw, treating blank input as uuid.Nil.
func optionalUUID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domainagg.NewError(domainagg.CodeValidation, "", field+" must be a valid id", err)
	}
	return id, nil
}
