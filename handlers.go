package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/WRENCH-CLOUD/machnix-sub003/middlewares"
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/WRENCH-CLOUD/machnix-sub003/workflow"
	"github.com/gin-gonic/gin"
)

func registerRoutes(r *gin.Engine) {
	r.POST("/api/login", loginHandler)
	r.POST("/api/logout", logoutHandler)

	api := r.Group("/api", middlewares.RequireSession(), middlewares.SubscriptionMiddleware())
	{
		api.POST("/users", createUserHandler)

		api.POST("/customers", createCustomerHandler)
		api.GET("/customers", listCustomersHandler)
		api.GET("/customers/:customerId", getCustomerHandler)
		api.PUT("/customers/:customerId", updateCustomerHandler)
		api.DELETE("/customers/:customerId", deleteCustomerHandler)

		api.POST("/customers/:customerId/vehicles", createVehicleHandler)
		api.GET("/customers/:customerId/vehicles", listVehiclesHandler)
		api.GET("/vehicles/:vehicleId", getVehicleHandler)
		api.PUT("/vehicles/:vehicleId", updateVehicleHandler)
		api.DELETE("/vehicles/:vehicleId", deleteVehicleHandler)

		api.POST("/jobcards", createJobCardHandler)
		api.GET("/jobcards", listJobCardsHandler)
		api.GET("/jobcards/:jobcardId", getJobCardHandler)
		api.PUT("/jobcards/:jobcardId", updateJobCardHandler)
		api.POST("/jobcards/:jobcardId/close", closeJobCardHandler)

		api.POST("/jobcards/:jobcardId/tasks", createTaskHandler)
		api.GET("/jobcards/:jobcardId/tasks", listTasksHandler)
		api.GET("/jobcards/:jobcardId/tasks/:taskId", getTaskHandler)
		api.PUT("/jobcards/:jobcardId/tasks/:taskId", updateTaskHandler)
		api.DELETE("/jobcards/:jobcardId/tasks/:taskId", deleteTaskHandler)
		api.PUT("/jobcards/:jobcardId/tasks/:taskId/status", transitionTaskStatusHandler)
		api.GET("/jobcards/:jobcardId/tasks/:taskId/allocations", listAllocationsHandler)

		api.GET("/jobcards/:jobcardId/estimate", getEstimateHandler)
		api.POST("/jobcards/:jobcardId/invoice", generateInvoiceHandler)

		api.POST("/inventory", createInventoryItemHandler)
		api.GET("/inventory", listInventoryItemsHandler)
		api.GET("/inventory/:itemId", getInventoryItemHandler)
		api.PUT("/inventory/:itemId", updateInventoryItemHandler)
		api.POST("/inventory/:itemId/restock", restockInventoryItemHandler)
		api.DELETE("/inventory/:itemId", deactivateInventoryItemHandler)

		api.GET("/invoices", listInvoicesHandler)
		api.GET("/invoices/:invoiceId", getInvoiceHandler)
		api.POST("/invoices/:invoiceId/pay", markInvoicePaidHandler)
	}

	registerAdminRoutes(r)
}

// respondError maps domain errors onto the wire contract. Anything
// unclassified is a persistence failure.
func respondError(c *gin.Context, err error) {
	var insufficient *models.InsufficientStockError
	var invalid *workflow.InvalidTransitionError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              "INVALID_TRANSITION",
			"message":            invalid.Error(),
			"allowedTransitions": invalid.Allowed,
		})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":          "INSUFFICIENT_STOCK",
			"itemId":         insufficient.ItemId,
			"stockAvailable": insufficient.StockAvailable,
			"stockRequested": insufficient.StockRequested,
		})
	case errors.Is(err, models.ErrTaskLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "TASK_LOCKED"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PERSISTENCE_FAILURE"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// pathId parses a positive integer path parameter. A malformed id is a bad
// request; 404 is reserved for well-formed ids that resolve to nothing.
func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// --- auth ---

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, errors.New("username and password are required"))
		return
	}
	info, err := models.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func logoutHandler(c *gin.Context) {
	if err := models.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Status(http.StatusNoContent)
}

func createUserHandler(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// --- task status ---

type transitionRequest struct {
	Status string `json:"taskStatus" binding:"required,taskstatus"`
}

// transitionTaskStatusHandler is the lifecycle endpoint. One request moves
// one task one step; the response carries the updated task plus the stock
// snapshot when the step moved inventory.
func transitionTaskStatusHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	taskId, ok := pathId(c, "taskId")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, errors.New("taskStatus must be a valid task status"))
		return
	}
	to, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := workflow.TransitionTaskStatus(c.Request.Context(), jobcardId, taskId, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- customers ---

func createCustomerHandler(c *gin.Context) {
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := models.CreateCustomer(c.Request.Context(), &input)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func listCustomersHandler(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	customers, err := models.GetCustomers(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func getCustomerHandler(c *gin.Context) {
	id, ok := pathId(c, "customerId")
	if !ok {
		return
	}
	customer, err := models.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func updateCustomerHandler(c *gin.Context) {
	id, ok := pathId(c, "customerId")
	if !ok {
		return
	}
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func deleteCustomerHandler(c *gin.Context) {
	id, ok := pathId(c, "customerId")
	if !ok {
		return
	}
	customer, err := models.DeleteCustomer(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// --- vehicles ---

func createVehicleHandler(c *gin.Context) {
	customerId, ok := pathId(c, "customerId")
	if !ok {
		return
	}
	var input models.NewVehicle
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	vehicle, err := models.CreateVehicle(c.Request.Context(), customerId, &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

func listVehiclesHandler(c *gin.Context) {
	customerId, ok := pathId(c, "customerId")
	if !ok {
		return
	}
	vehicles, err := models.GetVehiclesByCustomer(c.Request.Context(), customerId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

func getVehicleHandler(c *gin.Context) {
	id, ok := pathId(c, "vehicleId")
	if !ok {
		return
	}
	vehicle, err := models.GetVehicle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func updateVehicleHandler(c *gin.Context) {
	id, ok := pathId(c, "vehicleId")
	if !ok {
		return
	}
	var input models.NewVehicle
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	vehicle, err := models.UpdateVehicle(c.Request.Context(), id, &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func deleteVehicleHandler(c *gin.Context) {
	id, ok := pathId(c, "vehicleId")
	if !ok {
		return
	}
	vehicle, err := models.DeleteVehicle(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// --- job cards ---

func createJobCardHandler(c *gin.Context) {
	var input models.NewJobCard
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	jobCard, err := models.CreateJobCard(c.Request.Context(), &input)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, jobCard)
}

func listJobCardsHandler(c *gin.Context) {
	var customerId *int
	if v := c.Query("customerId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, errors.New("customerId must be an integer"))
			return
		}
		customerId = &id
	}
	var status *models.JobCardStatus
	if v := c.Query("status"); v != "" {
		s := models.JobCardStatus(v)
		status = &s
	}
	jobCards, err := models.GetJobCards(c.Request.Context(), customerId, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobCards)
}

func getJobCardHandler(c *gin.Context) {
	id, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	jobCard, err := models.GetJobCard(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobCard)
}

func updateJobCardHandler(c *gin.Context) {
	id, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	var input models.NewJobCard
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	jobCard, err := models.UpdateJobCard(c.Request.Context(), id, &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, jobCard)
}

func closeJobCardHandler(c *gin.Context) {
	id, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	jobCard, err := models.CloseJobCard(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, jobCard)
}

// --- tasks ---

func createTaskHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	var input models.NewTask
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	task, err := models.CreateTask(c.Request.Context(), jobcardId, &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func listTasksHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	tasks, err := models.GetTasksByJobCard(c.Request.Context(), jobcardId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func getTaskHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	taskId, ok := pathId(c, "taskId")
	if !ok {
		return
	}
	task, err := models.GetTask(c.Request.Context(), jobcardId, taskId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func updateTaskHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	taskId, ok := pathId(c, "taskId")
	if !ok {
		return
	}
	var input models.NewTask
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	task, err := models.UpdateTask(c.Request.Context(), jobcardId, taskId, &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, models.ErrTaskLocked) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func deleteTaskHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	taskId, ok := pathId(c, "taskId")
	if !ok {
		return
	}
	task, err := models.SoftDeleteTask(c.Request.Context(), jobcardId, taskId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, models.ErrTaskLocked) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func listAllocationsHandler(c *gin.Context) {
	if _, ok := pathId(c, "jobcardId"); !ok {
		return
	}
	taskId, ok := pathId(c, "taskId")
	if !ok {
		return
	}
	allocations, err := models.GetAllocationsByTask(c.Request.Context(), taskId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocations)
}

// --- estimates & invoices ---

func getEstimateHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	estimate, err := models.GetEstimateByJobCard(c.Request.Context(), jobcardId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

func generateInvoiceHandler(c *gin.Context) {
	jobcardId, ok := pathId(c, "jobcardId")
	if !ok {
		return
	}
	invoice, err := models.GenerateInvoice(c.Request.Context(), jobcardId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func listInvoicesHandler(c *gin.Context) {
	var status *models.InvoiceStatus
	if v := c.Query("status"); v != "" {
		s := models.InvoiceStatus(v)
		status = &s
	}
	invoices, err := models.GetInvoices(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func getInvoiceHandler(c *gin.Context) {
	id, ok := pathId(c, "invoiceId")
	if !ok {
		return
	}
	invoice, err := models.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func markInvoicePaidHandler(c *gin.Context) {
	id, ok := pathId(c, "invoiceId")
	if !ok {
		return
	}
	invoice, err := models.MarkInvoicePaid(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// --- inventory ---

func createInventoryItemHandler(c *gin.Context) {
	var input models.NewInventoryItem
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	item, err := models.CreateInventoryItem(c.Request.Context(), &input)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func listInventoryItemsHandler(c *gin.Context) {
	var search *string
	if v := c.Query("search"); v != "" {
		search = &v
	}
	lowStockOnly := c.Query("lowStock") == "true"
	items, err := models.GetInventoryItems(c.Request.Context(), search, lowStockOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func getInventoryItemHandler(c *gin.Context) {
	id, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	item, err := models.GetInventoryItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func updateInventoryItemHandler(c *gin.Context) {
	id, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	var input models.NewInventoryItem
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	item, err := models.UpdateInventoryItem(c.Request.Context(), id, &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type restockRequest struct {
	Qty int `json:"qty" binding:"required"`
}

func restockInventoryItemHandler(c *gin.Context) {
	id, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, errors.New("qty is required"))
		return
	}
	item, err := models.RestockInventoryItem(c.Request.Context(), id, req.Qty)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func deactivateInventoryItemHandler(c *gin.Context) {
	id, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	item, err := models.DeactivateInventoryItem(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
