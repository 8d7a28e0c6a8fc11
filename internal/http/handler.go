package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/energy-contracts/internal/http/middleware"
	"github.com/nurpe/energy-contracts/internal/model"
	"github.com/nurpe/energy-contracts/internal/service"
)

const eventsHeartbeat = 25 * time.Second

// EventSource delivers change notifications to the /events stream.
type EventSource interface {
	Subscribe(handler func()) (unsubscribe func())
}

type Handler struct {
	contracts *service.ContractService
	documents *service.DocumentService
	exports   *service.ExportService
	events    EventSource
	maxUpload int64
	log       zerolog.Logger
}

func NewHandler(
	contracts *service.ContractService,
	documents *service.DocumentService,
	exports *service.ExportService,
	events EventSource,
	maxUpload int64,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		contracts: contracts,
		documents: documents,
		exports:   exports,
		events:    events,
		maxUpload: maxUpload,
		log:       log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/customers/:id/contracts", h.listCustomerContracts)
	protected.POST("/customers/:id/contracts", h.createContract)
	protected.GET("/customers/:id/commission-form", h.commissionForm)
	protected.POST("/customers/:id/commission-gate", h.resolveCommissionGate)

	protected.GET("/contracts/:id", h.getContract)
	protected.POST("/contracts/:id/transition", h.changeStatus)
	protected.GET("/contracts/:id/pending", h.getPending)
	protected.DELETE("/contracts/:id/pending", h.abandonPending)
	protected.GET("/contracts/:id/history", h.listHistory)
	protected.GET("/contracts/:id/history/export", h.exportHistory)
	protected.GET("/contracts/:id/pdf", h.exportContractSheet)

	protected.GET("/agents", h.listAgents)
	protected.POST("/documents", h.uploadDocument)
	protected.GET("/documents/:id", h.downloadDocument)
	protected.GET("/events", h.streamEvents)
}

type createContractRequest struct {
	Commodity    string           `json:"commodity" binding:"required"`
	SupplyPoint  string           `json:"supply_point"`
	Supplier     string           `json:"supplier"`
	Procedure    string           `json:"procedure" binding:"required"`
	Status       string           `json:"status"`
	Price        *decimal.Decimal `json:"price"`
	StipulatedAt *string          `json:"stipulated_at"`
	ActivatedAt  *string          `json:"activated_at"`
	ExpiresAt    *string          `json:"expires_at"`
	Note         string           `json:"note"`
	Supersedes   *string          `json:"supersedes"`
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	customerID, ok := pathID(c)
	if !ok {
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	commodity, err := model.ParseCommodity(req.Commodity)
	if err != nil {
		badField(c, "commodity", err)
		return
	}
	procedure, err := model.ParseProcedure(req.Procedure)
	if err != nil {
		badField(c, "procedure", err)
		return
	}
	var status model.Status
	if strings.TrimSpace(req.Status) != "" {
		if status, err = model.ParseStatus(req.Status); err != nil {
			badField(c, "status", err)
			return
		}
	}

	input := service.CreateContractInput{
		CustomerID:  customerID,
		Commodity:   commodity,
		SupplyPoint: req.SupplyPoint,
		Supplier:    req.Supplier,
		Procedure:   procedure,
		Status:      status,
		Price:       req.Price,
		Note:        req.Note,
		Principal:   principal,
	}
	dates := []struct {
		field string
		raw   *string
		dst   **time.Time
	}{
		{"stipulated_at", req.StipulatedAt, &input.StipulatedAt},
		{"activated_at", req.ActivatedAt, &input.ActivatedAt},
		{"expires_at", req.ExpiresAt, &input.ExpiresAt},
	}
	for _, d := range dates {
		if d.raw == nil || strings.TrimSpace(*d.raw) == "" {
			continue
		}
		parsed, err := parseDate(*d.raw)
		if err != nil {
			badField(c, d.field, err)
			return
		}
		*d.dst = &parsed
	}
	if req.Supersedes != nil {
		id, err := uuid.Parse(strings.TrimSpace(*req.Supersedes))
		if err != nil {
			badField(c, "supersedes", err)
			return
		}
		input.Supersedes = &id
	}

	contract, err := h.contracts.CreateContract(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) listCustomerContracts(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}
	contracts, err := h.contracts.ListCustomerContracts(c.Request.Context(), customerID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contracts})
}

func (h *Handler) getContract(c *gin.Context) {
	contractID, ok := pathID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.GetContract(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type transitionRequest struct {
	Status           string  `json:"status" binding:"required"`
	Procedure        string  `json:"procedure" binding:"required"`
	Note             *string `json:"note"`
	AttachmentRef    *string `json:"attachment_ref"`
	ExpectedRevision *int64  `json:"expected_revision"`
}

func (h *Handler) changeStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, ok := pathID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		badField(c, "status", err)
		return
	}
	procedure, err := model.ParseProcedure(req.Procedure)
	if err != nil {
		badField(c, "procedure", err)
		return
	}

	input := service.ChangeStatusInput{
		ContractID:       contractID,
		Status:           status,
		Procedure:        procedure,
		Note:             req.Note,
		ExpectedRevision: req.ExpectedRevision,
		Principal:        principal,
	}
	if req.AttachmentRef != nil && strings.TrimSpace(*req.AttachmentRef) != "" {
		ref, err := uuid.Parse(strings.TrimSpace(*req.AttachmentRef))
		if err != nil {
			badField(c, "attachment_ref", err)
			return
		}
		input.AttachmentRef = &ref
	}

	result, err := h.contracts.ChangeStatusAndProcedure(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if result.Outcome == service.OutcomeGateRequired {
		c.JSON(http.StatusAccepted, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getPending(c *gin.Context) {
	contractID, ok := pathID(c)
	if !ok {
		return
	}
	pending, err := h.contracts.PendingTransition(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) abandonPending(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	contractID, ok := pathID(c)
	if !ok {
		return
	}
	pending, err := h.contracts.AbandonTransition(c.Request.Context(), contractID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) listHistory(c *gin.Context) {
	contractID, ok := pathID(c)
	if !ok {
		return
	}
	records, err := h.contracts.ListHistory(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (h *Handler) commissionForm(c *gin.Context) {
	customerID, ok := pathID(c)
	if !ok {
		return
	}

	var agentID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("agent_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badField(c, "agent_id", err)
			return
		}
		agentID = &id
	}
	mode := model.CommissionMode(strings.ToLower(strings.TrimSpace(c.Query("mode"))))
	if mode != "" && !mode.Valid() {
		badField(c, "mode", fmt.Errorf("unknown mode %q", mode))
		return
	}

	fields, err := h.contracts.CommissionForm(c.Request.Context(), customerID, agentID, mode)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": fields})
}

type commissionEntryRequest struct {
	Commodity string           `json:"commodity" binding:"required"`
	Mode      string           `json:"mode" binding:"required"`
	Amount    *decimal.Decimal `json:"amount"`
}

type commissionGateRequest struct {
	commissionEntryRequest
	AgentID    string                   `json:"agent_id" binding:"required"`
	Additional []commissionEntryRequest `json:"additional"`
}

func (h *Handler) resolveCommissionGate(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	customerID, ok := pathID(c)
	if !ok {
		return
	}

	var req commissionGateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agentID, err := uuid.Parse(strings.TrimSpace(req.AgentID))
	if err != nil {
		badField(c, "agent_id", err)
		return
	}
	primary, err := req.commissionEntryRequest.toEntry()
	if err != nil {
		badField(c, "commodity", err)
		return
	}
	additional := make([]service.CommissionEntry, 0, len(req.Additional))
	for _, raw := range req.Additional {
		entry, err := raw.toEntry()
		if err != nil {
			badField(c, "additional.commodity", err)
			return
		}
		additional = append(additional, entry)
	}

	result, err := h.contracts.ResolveCommissionGate(c.Request.Context(), service.ResolveGateInput{
		CustomerID: customerID,
		Commodity:  primary.Commodity,
		AgentID:    agentID,
		Amount:     primary.Amount,
		Mode:       primary.Mode,
		Additional: additional,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r commissionEntryRequest) toEntry() (service.CommissionEntry, error) {
	commodity, err := model.ParseCommodity(r.Commodity)
	if err != nil {
		return service.CommissionEntry{}, err
	}
	return service.CommissionEntry{
		Commodity: commodity,
		Mode:      model.CommissionMode(strings.ToLower(strings.TrimSpace(r.Mode))),
		Amount:    r.Amount,
	}, nil
}

func (h *Handler) listAgents(c *gin.Context) {
	agents, err := h.contracts.ListAgents(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": agents})
}

func (h *Handler) exportHistory(c *gin.Context) {
	contractID, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.exports.ExportHistoryExcel(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, file.FileName, file.ContentType, file.Content)
}

func (h *Handler) exportContractSheet(c *gin.Context) {
	contractID, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.exports.ExportContractPDF(c.Request.Context(), contractID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, file.FileName, file.ContentType, file.Content)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if h.maxUpload > 0 {
		// multipart overhead on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	}

	header, err := c.FormFile("file")
	if err != nil {
		badField(c, "file", err)
		return
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		badField(c, "file", fmt.Errorf("file exceeds %d bytes", h.maxUpload))
		return
	}
	file, err := header.Open()
	if err != nil {
		badField(c, "file", err)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		badField(c, "file", err)
		return
	}

	doc, err := h.documents.StoreDocument(c.Request.Context(), service.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) downloadDocument(c *gin.Context) {
	documentID, ok := pathID(c)
	if !ok {
		return
	}
	doc, err := h.documents.GetDocument(c.Request.Context(), documentID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, doc.FileName, doc.ContentType, doc.Content)
}

// streamEvents pushes a "refresh" server-sent event whenever contract data
// changes. Bursts of notifications collapse into one event.
func (h *Handler) streamEvents(c *gin.Context) {
	updates := make(chan struct{}, 1)
	unsubscribe := h.events.Subscribe(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-updates:
			c.SSEvent("refresh", gin.H{"at": time.Now().UTC()})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var (
		validation  *service.ValidationError
		duplicate   *service.DuplicateError
		persistence *service.PersistenceError
	)
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validation.Field})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &duplicate):
		body := gin.H{"error": err.Error(), "field": duplicate.Field, "value": duplicate.Value}
		if duplicate.ContractID != uuid.Nil {
			body["contract_id"] = duplicate.ContractID
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrTransitionPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &persistence) && persistence.Retryable:
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retryable": true})
	case errors.As(err, &persistence):
		h.log.Error().Err(err).Str("op", persistence.Op).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "retryable": false})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id", "field": "id"})
		return uuid.Nil, false
	}
	return id, true
}

func badField(c *gin.Context, field string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %v", field, err), "field": field})
}

func sendFile(c *gin.Context, name, contentType string, content []byte) {
	c.Header("Content-Disposition", "attachment; filename=\""+name+"\"")
	c.Header("Content-Length", strconv.Itoa(len(content)))
	c.Data(http.StatusOK, contentType, content)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", raw)
}
