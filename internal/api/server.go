// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereceipt/ticket-engine/internal/command"
	"github.com/thereceipt/ticket-engine/internal/printer"
	"github.com/thereceipt/ticket-engine/internal/service"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
	"go.uber.org/zap"
)

// Server is the API server
type Server struct {
	router   *gin.Engine
	http     *http.Server
	service  *service.Service
	manager  *printer.Manager
	queue    *printer.PrintQueue
	executor *command.Executor
	upgrader websocket.Upgrader
	logger   *zap.Logger

	clients   map[*WSClient]bool
	clientsMu sync.RWMutex
}

// NewServer creates a new API server
func NewServer(svc *service.Service, manager *printer.Manager, queue *printer.PrintQueue, executor *command.Executor, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	server := &Server{
		router:   router,
		service:  svc,
		manager:  manager,
		queue:    queue,
		executor: executor,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger.Named("api"),
		clients: make(map[*WSClient]bool),
	}

	router.Use(gin.Recovery(), server.requestLogger(), corsMiddleware())
	server.setupRoutes()

	server.http = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/printers", s.handleGetPrinters)
	s.router.POST("/printer/network", s.handleAddNetworkPrinter)
	s.router.POST("/printer/:id/name", s.handleSetPrinterName)
	s.router.POST("/printer/:id/department", s.handleSetPrinterDepartment)
	s.router.POST("/printer/:id/settings", s.handleSetPrinterSettings)
	s.router.POST("/printer/:id/test", s.handleSelfTest)

	s.router.POST("/tickets/print", s.handlePrint)
	s.router.POST("/tickets/render", s.handleRender)
	s.router.POST("/tickets/preview", s.handlePreview)

	s.router.GET("/jobs", s.handleGetJobs)
	s.router.GET("/job/:id", s.handleGetJob)

	s.router.POST("/command", s.handleCommand)

	s.router.GET("/ws", s.handleWebSocket)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, printer.ErrPrinterNotFound),
		errors.Is(err, printer.ErrJobNotFound),
		errors.Is(err, service.ErrNoDepartmentPrinter):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
}

func (s *Server) handleGetPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"printers": s.manager.GetAllPrinters(),
	})
}

func (s *Server) handleSetPrinterName(c *gin.Context) {
	printerID := c.Param("id")

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if !s.manager.SetPrinterName(printerID, req.Name) {
		s.fail(c, fmt.Errorf("%w: %s", printer.ErrPrinterNotFound, printerID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleSetPrinterDepartment assigns the department whose tickets the printer receives.
// An empty department clears the assignment.
func (s *Server) handleSetPrinterDepartment(c *gin.Context) {
	printerID := c.Param("id")

	var req struct {
		Department ticketformat.Department `json:"department"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Department != "" && !req.Department.Known() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown department: %s", req.Department)})
		return
	}

	if !s.manager.SetPrinterDepartment(printerID, req.Department) {
		s.fail(c, fmt.Errorf("%w: %s", printer.ErrPrinterNotFound, printerID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "department": req.Department})
}

func (s *Server) handleSetPrinterSettings(c *gin.Context) {
	printerID := c.Param("id")

	var settings ticketformat.PrintSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
		return
	}
	if err := ticketformat.ValidateSettings(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.manager.SetPrinterSettings(printerID, ticketformat.Resolve(&settings)) {
		s.fail(c, fmt.Errorf("%w: %s", printer.ErrPrinterNotFound, printerID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "settings": s.manager.SettingsFor(printerID)})
}

func (s *Server) handleAddNetworkPrinter(c *gin.Context) {
	var req struct {
		Host        string `json:"host" binding:"required"`
		Port        int    `json:"port"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host is required"})
		return
	}

	if req.Port == 0 {
		req.Port = 9100
	}
	if req.Description == "" {
		req.Description = fmt.Sprintf("Network: %s:%d", req.Host, req.Port)
	}

	printerID := s.manager.AddNetworkPrinter(req.Host, req.Port, req.Description)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"printer_id": printerID,
		"printer":    s.manager.GetPrinter(printerID),
	})
}

func (s *Server) handleSelfTest(c *gin.Context) {
	jobID, err := s.service.SelfTest(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "job_id": jobID})
}

// printBody is a print request plus routing. Without printer_id the ticket
// goes to every printer of its department.
type printBody struct {
	PrinterID  string `json:"printer_id"`
	TicketPath string `json:"ticket_path"`
	TicketURL  string `json:"ticket_url"`
	ticketformat.PrintRequest
}

func (s *Server) submit(ctx context.Context, body printBody) (gin.H, error) {
	req := &body.PrintRequest

	if src := firstNonEmpty(body.TicketURL, body.TicketPath); src != "" {
		loaded, err := command.LoadRequest(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
		}
		if req.Settings != nil {
			loaded.Settings = req.Settings
		}
		req = loaded
	}

	if body.PrinterID != "" {
		jobID, err := s.service.Print(ctx, body.PrinterID, req)
		if err != nil {
			return nil, err
		}
		return gin.H{"success": true, "job_id": jobID}, nil
	}

	dispatches, err := s.service.PrintForDepartment(ctx, req)
	if err != nil {
		return nil, err
	}
	return gin.H{"success": true, "jobs": dispatches}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) handlePrint(c *gin.Context) {
	var body printBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := s.submit(c.Request.Context(), body)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// readRequest parses the body as a print request or a bare ticket
func readRequest(c *gin.Context) (*ticketformat.PrintRequest, error) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	req, err := ticketformat.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
	}
	return req, nil
}

// handleRender returns the raw printer bytes
func (s *Server) handleRender(c *gin.Context) {
	req, err := readRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	buf, _, err := s.service.Render(req)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", buf)
}

func (s *Server) handlePreview(c *gin.Context) {
	req, err := readRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	png, err := s.service.Preview(req)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleGetJobs(c *gin.Context) {
	jobs := s.queue.GetAllJobs()

	jobsData := make([]map[string]interface{}, len(jobs))
	for i, job := range jobs {
		jobsData[i] = job.Summary()
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobsData})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.queue.GetJob(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, job.Summary())
}

func (s *Server) handleCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	result := s.executor.Execute(c.Request.Context(), req.Command)

	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   result.Error,
		})
		return
	}

	response := gin.H{"success": true}
	if result.Message != "" {
		response["message"] = result.Message
	}
	for k, v := range result.Data {
		response[k] = v
	}
	c.JSON(http.StatusOK, response)
}

// Run serves until Shutdown is called. It returns nil at once when Shutdown
// came first.
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	err = s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and closes WebSocket clients
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeClients()
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
