package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Route prefixes of the two order kinds.
const (
	purchaseOrdersPath = "/purchase-orders"
	salesOrdersPath    = "/sales-orders"
)

// orderHandler serves one order kind. Purchase and sales orders share the
// handler and differ only in kind and commit route.
type orderHandler struct {
	kind           domain.OrderKind
	orderSvc       portssvc.OrderSvcFacade
	fulfillmentSvc portssvc.FulfillmentSvcFacade
}

func newOrderHandler(kind domain.OrderKind, orderSvc portssvc.OrderSvcFacade, fulfillmentSvc portssvc.FulfillmentSvcFacade) *orderHandler {
	return &orderHandler{kind: kind, orderSvc: orderSvc, fulfillmentSvc: fulfillmentSvc}
}

// RegisterOrderRoutes registers the purchase and sales order routes. The write
// middlewares (rate limiting) wrap every mutating route.
func RegisterOrderRoutes(rg *gin.RouterGroup, orderSvc portssvc.OrderSvcFacade, fulfillmentSvc portssvc.FulfillmentSvcFacade, writes ...gin.HandlerFunc) {
	purchase := registerOrderKindRoutes(rg, purchaseOrdersPath, newOrderHandler(domain.PurchaseOrder, orderSvc, fulfillmentSvc), writes)
	purchase.POST("/:code/commit-receipt", purchase.handler.commit)

	sales := registerOrderKindRoutes(rg, salesOrdersPath, newOrderHandler(domain.SalesOrder, orderSvc, fulfillmentSvc), writes)
	sales.POST("/:code/commit-shipment", sales.handler.commit)
	sales.POST("/:code/reserve", sales.handler.reserve)
}

// orderWriteGroup is the mutating route group of one kind with its handler attached.
type orderWriteGroup struct {
	*gin.RouterGroup
	handler *orderHandler
}

func registerOrderKindRoutes(rg *gin.RouterGroup, path string, h *orderHandler, writes []gin.HandlerFunc) orderWriteGroup {
	orders := rg.Group(path)
	{
		orders.GET("", h.listOrders)
		orders.GET("/:code", h.getOrder)
	}

	w := orders.Group("", writes...)
	{
		w.POST("", h.saveOrder)
		w.POST("/:code/lines", h.addLine)
		w.DELETE("/:code/lines/:seq", h.removeLine)
		w.POST("/:code/confirm", h.confirm)
		w.POST("/:code/cancel", h.cancel)
		w.POST("/:code/lines/:seq/cancel", h.cancelLine)
		w.POST("/:code/lines/:seq/assign-warehouse", h.assignWarehouse)
	}
	return orderWriteGroup{RouterGroup: w, handler: h}
}

// bindOptionalJSON binds the body when one is sent; an empty body keeps the zero request.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// seqParam reads the :seq path parameter.
func seqParam(c *gin.Context) (int, bool) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq <= 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid line sequence number", slog.String("seq", c.Param("seq")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid line sequence number"})
		return 0, false
	}
	return seq, true
}

// listOrders godoc
// @Summary List orders
// @Description Lists orders of one kind, newest first, with token pagination
// @Tags orders
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListOrdersResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list orders"
// @Security BearerAuth
// @Router /purchase-orders [get]
// @Router /sales-orders [get]
func (h *orderHandler) listOrders(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	var params dto.ListOrdersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query parameters for ListOrders", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.orderSvc.ListOrders(c.Request.Context(), h.kind, params)
	if err != nil {
		respondWithError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getOrder godoc
// @Summary Get an order
// @Description Returns the order with its lines and derived aggregate status
// @Tags orders
// @Produce json
// @Param code path string true "Order code"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 500 {object} map[string]string "Failed to retrieve order"
// @Security BearerAuth
// @Router /purchase-orders/{code} [get]
// @Router /sales-orders/{code} [get]
func (h *orderHandler) getOrder(c *gin.Context) {
	order, err := h.orderSvc.GetOrder(c.Request.Context(), h.kind, c.Param("code"))
	if err != nil {
		respondWithError(c, err, "retrieve order")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// saveOrder godoc
// @Summary Create or update an order
// @Description Creates the order when code is empty, otherwise updates header and lines
// @Tags orders
// @Accept json
// @Produce json
// @Param order body dto.SaveOrderRequest true "Order header and lines"
// @Success 200 {object} dto.OrderResponse "Order updated"
// @Success 201 {object} dto.OrderResponse "Order created"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 409 {object} map[string]string "Stale version or line no longer editable"
// @Failure 500 {object} map[string]string "Failed to save order"
// @Security BearerAuth
// @Router /purchase-orders [post]
// @Router /sales-orders [post]
func (h *orderHandler) saveOrder(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	var req dto.SaveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SaveOrder", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID := middleware.GetActor(c)
	order, err := h.orderSvc.SaveOrder(c.Request.Context(), h.kind, req, userID)
	if err != nil {
		respondWithError(c, err, "save order")
		return
	}

	status := http.StatusOK
	if req.Code == "" {
		status = http.StatusCreated
	}
	logger.Info("Order saved", slog.String("code", order.Code), slog.String("kind", string(h.kind)), slog.String("user_id", userID))
	c.JSON(status, dto.ToOrderResponse(order))
}

// addLine godoc
// @Summary Add a line
// @Description Appends a REGISTERED line with the next sequence number
// @Tags orders
// @Accept json
// @Produce json
// @Param code path string true "Order code"
// @Param line body dto.OrderLineRequest true "Line"
// @Success 201 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 409 {object} map[string]string "Order structure is frozen"
// @Security BearerAuth
// @Router /purchase-orders/{code}/lines [post]
// @Router /sales-orders/{code}/lines [post]
func (h *orderHandler) addLine(c *gin.Context) {
	var req dto.OrderLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to bind JSON for AddLine", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	order, err := h.orderSvc.AddLine(c.Request.Context(), h.kind, c.Param("code"), req, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "add line")
		return
	}
	c.JSON(http.StatusCreated, dto.ToOrderResponse(order))
}

// removeLine godoc
// @Summary Remove a line
// @Description Deletes a REGISTERED line; its sequence number is not reused
// @Tags orders
// @Produce json
// @Param code path string true "Order code"
// @Param seq path int true "Line sequence number"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Invalid sequence number or last line"
// @Failure 404 {object} map[string]string "Order or line not found"
// @Failure 409 {object} map[string]string "Line is not REGISTERED"
// @Security BearerAuth
// @Router /purchase-orders/{code}/lines/{seq} [delete]
// @Router /sales-orders/{code}/lines/{seq} [delete]
func (h *orderHandler) removeLine(c *gin.Context) {
	seq, ok := seqParam(c)
	if !ok {
		return
	}

	order, err := h.orderSvc.RemoveLine(c.Request.Context(), h.kind, c.Param("code"), seq, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "remove line")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// confirm godoc
// @Summary Confirm lines
// @Description Moves the listed REGISTERED lines, or all of them when none are listed, to CONFIRMED
// @Tags orders
// @Accept json
// @Produce json
// @Param code path string true "Order code"
// @Param request body dto.ConfirmOrderRequest false "Lines to confirm"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 409 {object} map[string]string "Nothing to confirm"
// @Security BearerAuth
// @Router /purchase-orders/{code}/confirm [post]
// @Router /sales-orders/{code}/confirm [post]
func (h *orderHandler) confirm(c *gin.Context) {
	var req dto.ConfirmOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to bind JSON for Confirm", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	order, err := h.fulfillmentSvc.Confirm(c.Request.Context(), h.kind, c.Param("code"), req, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "confirm order")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// assignWarehouse godoc
// @Summary Stage a warehouse on a line
// @Description Sets the target warehouse of a CONFIRMED line; no stock moves until commit
// @Tags orders
// @Accept json
// @Produce json
// @Param code path string true "Order code"
// @Param seq path int true "Line sequence number"
// @Param request body dto.AssignWarehouseRequest true "Warehouse"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Invalid input or incompatible warehouse"
// @Failure 404 {object} map[string]string "Order, line or warehouse not found"
// @Failure 409 {object} map[string]string "Line is not CONFIRMED"
// @Security BearerAuth
// @Router /purchase-orders/{code}/lines/{seq}/assign-warehouse [post]
// @Router /sales-orders/{code}/lines/{seq}/assign-warehouse [post]
func (h *orderHandler) assignWarehouse(c *gin.Context) {
	seq, ok := seqParam(c)
	if !ok {
		return
	}

	var req dto.AssignWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to bind JSON for AssignWarehouse", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	order, err := h.fulfillmentSvc.AssignWarehouse(c.Request.Context(), h.kind, c.Param("code"), seq, req, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "assign warehouse")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// commit godoc
// @Summary Commit staged lines
// @Description Posts every staged CONFIRMED line to the stock ledger in one transaction
// @Tags fulfillment
// @Produce json
// @Param code path string true "Order code"
// @Success 200 {object} dto.FulfillmentResponse
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 409 {object} map[string]string "A confirmed line has no warehouse, or stock is short"
// @Failure 422 {object} map[string]string "Stock balance row is inconsistent"
// @Security BearerAuth
// @Router /purchase-orders/{code}/commit-receipt [post]
// @Router /sales-orders/{code}/commit-shipment [post]
func (h *orderHandler) commit(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	code := c.Param("code")

	res, err := h.fulfillmentSvc.Commit(c.Request.Context(), h.kind, code, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "commit order")
		return
	}

	logger.Info("Order committed", slog.String("code", code), slog.Int("ledger_entries", len(res.Entries)))
	c.JSON(http.StatusOK, dto.ToFulfillmentResponse(res))
}

// reserve godoc
// @Summary Reserve stock for a sales order
// @Description Earmarks available stock at the staged warehouse of each line
// @Tags fulfillment
// @Produce json
// @Param code path string true "Sales order code"
// @Success 200 {object} dto.FulfillmentResponse
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 409 {object} map[string]string "Nothing staged, or stock is short"
// @Failure 422 {object} map[string]string "Stock balance row is inconsistent"
// @Security BearerAuth
// @Router /sales-orders/{code}/reserve [post]
func (h *orderHandler) reserve(c *gin.Context) {
	res, err := h.fulfillmentSvc.Reserve(c.Request.Context(), c.Param("code"), middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "reserve stock")
		return
	}
	c.JSON(http.StatusOK, dto.ToFulfillmentResponse(res))
}

// cancel godoc
// @Summary Cancel an order
// @Description Cancels every open line and releases outstanding reservations
// @Tags fulfillment
// @Accept json
// @Produce json
// @Param code path string true "Order code"
// @Param request body dto.CancelOrderRequest false "Reason"
// @Success 200 {object} dto.FulfillmentResponse
// @Failure 404 {object} map[string]string "Order not found"
// @Failure 409 {object} map[string]string "Order is COMPLETE"
// @Security BearerAuth
// @Router /purchase-orders/{code}/cancel [post]
// @Router /sales-orders/{code}/cancel [post]
func (h *orderHandler) cancel(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to bind JSON for Cancel", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	res, err := h.fulfillmentSvc.Cancel(c.Request.Context(), h.kind, c.Param("code"), req, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "cancel order")
		return
	}
	c.JSON(http.StatusOK, dto.ToFulfillmentResponse(res))
}

// cancelLine godoc
// @Summary Cancel a line
// @Description Cancels one open line and releases its reservation
// @Tags fulfillment
// @Accept json
// @Produce json
// @Param code path string true "Order code"
// @Param seq path int true "Line sequence number"
// @Param request body dto.CancelOrderRequest false "Reason"
// @Success 200 {object} dto.FulfillmentResponse
// @Failure 400 {object} map[string]string "Invalid sequence number"
// @Failure 404 {object} map[string]string "Order or line not found"
// @Failure 409 {object} map[string]string "Line is already terminal"
// @Security BearerAuth
// @Router /purchase-orders/{code}/lines/{seq}/cancel [post]
// @Router /sales-orders/{code}/lines/{seq}/cancel [post]
func (h *orderHandler) cancelLine(c *gin.Context) {
	seq, ok := seqParam(c)
	if !ok {
		return
	}

	var req dto.CancelOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to bind JSON for CancelLine", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	res, err := h.fulfillmentSvc.CancelLine(c.Request.Context(), h.kind, c.Param("code"), seq, req, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "cancel line")
		return
	}
	c.JSON(http.StatusOK, dto.ToFulfillmentResponse(res))
}
