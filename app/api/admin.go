package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"CamuPos/app/database"
	"CamuPos/app/models"
	"CamuPos/app/services"
	"CamuPos/app/store"
)

// --- Transactions ---

// HandleClearTransactions drops every recorded order
func (s *Server) HandleClearTransactions(c *gin.Context) {
	_, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.ClearTransactions{}, wantsWait(c))
	respondApplied(c, http.StatusOK, gin.H{"cleared": true}, err)
}

// --- Products ---

// HandleAddProduct appends a catalog product
func (s *Server) HandleAddProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		badRequest(c, "invalid product")
		return
	}
	if strings.TrimSpace(product.Name) == "" || product.Price < 0 || product.Cost < 0 {
		badRequest(c, "name is required and amounts must not be negative")
		return
	}
	if _, exists := s.deps.Dispatcher.State().Product(product.ID); product.ID != "" && exists {
		c.JSON(http.StatusConflict, gin.H{"error": "product id already exists"})
		return
	}
	next, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.AddProduct{Product: product}, wantsWait(c))
	respondApplied(c, http.StatusCreated, gin.H{"product": next.Products[len(next.Products)-1]}, err)
}

// HandleUpdateProduct merges a partial update onto a product
func (s *Server) HandleUpdateProduct(c *gin.Context) {
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid product")
		return
	}
	patch.ID = models.FlexID(c.Param("id"))
	if _, ok := s.deps.Dispatcher.State().Product(patch.ID); !ok {
		respondError(c, database.ErrNotFound)
		return
	}
	next, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.UpdateProduct{Patch: patch}, wantsWait(c))
	product, _ := next.Product(patch.ID)
	respondApplied(c, http.StatusOK, gin.H{"product": product}, err)
}

// HandleDeleteProduct removes a product; recorded orders keep their lines
func (s *Server) HandleDeleteProduct(c *gin.Context) {
	id := models.FlexID(c.Param("id"))
	_, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.DeleteProduct{ID: id}, wantsWait(c))
	respondApplied(c, http.StatusOK, gin.H{"deleted": id}, err)
}

// HandleResetProducts restores the compiled-in catalog
func (s *Server) HandleResetProducts(c *gin.Context) {
	next, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.ResetProducts{}, wantsWait(c))
	respondApplied(c, http.StatusOK, gin.H{"products": next.Products}, err)
}

// --- Expenses ---

// HandleAddExpense records a ledger entry
func (s *Server) HandleAddExpense(c *gin.Context) {
	var expense models.Expense
	if err := c.ShouldBindJSON(&expense); err != nil {
		badRequest(c, "invalid expense")
		return
	}
	if strings.TrimSpace(expense.Title) == "" || expense.Amount <= 0 {
		badRequest(c, "title and a positive amount are required")
		return
	}
	next, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.AddExpense{Expense: expense}, wantsWait(c))
	respondApplied(c, http.StatusCreated, gin.H{"expense": next.Expenses[0]}, err)
}

// HandleUpdateExpense merges a partial update onto a ledger entry
func (s *Server) HandleUpdateExpense(c *gin.Context) {
	var patch models.ExpensePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid expense")
		return
	}
	patch.ID = c.Param("id")
	if !hasExpense(s.deps.Dispatcher.State(), patch.ID) {
		respondError(c, database.ErrNotFound)
		return
	}
	next, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.UpdateExpense{Patch: patch}, wantsWait(c))
	var updated models.Expense
	for _, e := range next.Expenses {
		if e.ID == patch.ID {
			updated = e
			break
		}
	}
	respondApplied(c, http.StatusOK, gin.H{"expense": updated}, err)
}

// HandleDeleteExpense removes a ledger entry
func (s *Server) HandleDeleteExpense(c *gin.Context) {
	_, err := s.deps.Dispatcher.Apply(c.Request.Context(), store.DeleteExpense{ID: c.Param("id")}, wantsWait(c))
	respondApplied(c, http.StatusOK, gin.H{"deleted": c.Param("id")}, err)
}

func hasExpense(st store.State, id string) bool {
	for _, e := range st.Expenses {
		if e.ID == id {
			return true
		}
	}
	return false
}

// --- Reports ---

// HandleSummary returns the period summary with the founder split
func (s *Server) HandleSummary(c *gin.Context) {
	period, err := services.ParsePeriod(c.Query("period"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.deps.Reports.Summary(period))
}

// HandleBreakEven returns the break-even analysis
func (s *Server) HandleBreakEven(c *gin.Context) {
	dailySales := s.deps.DailySales
	if raw := c.Query("dailySales"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			badRequest(c, "dailySales must be a positive number")
			return
		}
		dailySales = n
	}
	c.JSON(http.StatusOK, s.deps.Reports.BreakEven(dailySales))
}

// HandleDailyReport returns one day's report row; ?date=YYYY-MM-DD, default today
func (s *Server) HandleDailyReport(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	c.JSON(http.StatusOK, s.deps.Reports.Daily(day))
}

// HandleSheetsStatus reports the spreadsheet export state
func (s *Server) HandleSheetsStatus(c *gin.Context) {
	if s.deps.Sheets == nil {
		c.JSON(http.StatusOK, services.SheetsStatus{})
		return
	}
	c.JSON(http.StatusOK, s.deps.Sheets.Status())
}

// HandleSheetsSync exports today's report now
func (s *Server) HandleSheetsSync(c *gin.Context) {
	if s.deps.Sheets == nil {
		respondError(c, services.ErrSheetsDisabled)
		return
	}
	if err := s.deps.Sheets.SyncNow(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Sheets.Status())
}

// --- Sync journal ---

// HandleSyncLogs returns the latest replication calls
func (s *Server) HandleSyncLogs(c *gin.Context) {
	if s.deps.SyncLogs == nil {
		c.JSON(http.StatusOK, []database.SyncLog{})
		return
	}
	logs, err := s.deps.SyncLogs.GetSyncLogs(queryInt(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// HandleSyncStatus returns the last replication outcome
func (s *Server) HandleSyncStatus(c *gin.Context) {
	status := &database.SyncStatus{Status: "disabled"}
	if s.deps.SyncLogs != nil {
		stored, err := s.deps.SyncLogs.GetSyncStatus()
		if err != nil {
			respondError(c, err)
			return
		}
		status = stored
	}
	c.JSON(http.StatusOK, gin.H{"remote": s.deps.Dispatcher.RemoteEnabled(), "status": status})
}

// --- Users ---

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// HandleCreateUser adds an admin panel account
func (s *Server) HandleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}
	user, err := s.deps.Auth.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
