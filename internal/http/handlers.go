package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/services"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type syncRequest struct {
	Expenses []core.Expense `json:"expenses"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	user, token, err := s.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.writeError(c, log.OpRegister, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "token": token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	user, token, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, log.OpLogin, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "token": token})
}

func (s *Server) handleListExpenses(c *gin.Context) {
	expenses, err := s.expenses.List(c.Request.Context())
	if err != nil {
		s.writeError(c, log.OpList, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (s *Server) handleCreateExpense(c *gin.Context) {
	var e core.Expense
	if err := c.ShouldBindJSON(&e); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	created, err := s.expenses.Create(c.Request.Context(), e)
	if err != nil {
		s.writeError(c, log.OpCreate, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "expense": created})
}

func (s *Server) handleUpdateExpense(c *gin.Context) {
	var patch services.ExpensePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	updated, err := s.expenses.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.writeError(c, log.OpUpdate, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "expense": updated})
}

func (s *Server) handleDeleteExpense(c *gin.Context) {
	if err := s.expenses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, log.OpDelete, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleSync(c *gin.Context) {
	s.merge(c, core.MergeFullSync, "Synced %d expenses")
}

func (s *Server) handleSyncPending(c *gin.Context) {
	s.merge(c, core.MergePendingSync, "Synced %d pending expenses")
}

func (s *Server) merge(c *gin.Context, source core.MergeSource, format string) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	n, err := s.expenses.Merge(c.Request.Context(), source, req.Expenses)
	if err != nil {
		s.writeError(c, log.OpMerge, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf(format, n)})
}

func (s *Server) handleDaily(c *gin.Context) {
	summary, err := s.expenses.Daily(c.Request.Context(), c.Query("date"))
	if err != nil {
		s.writeError(c, log.OpAggregate, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleMonthly(c *gin.Context) {
	summary, err := s.expenses.Monthly(c.Request.Context(), c.Query("month"))
	if err != nil {
		s.writeError(c, log.OpAggregate, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) badRequest(c *gin.Context, msg string, err error) {
	log.FromContext(c.Request.Context()).DebugContext(c.Request.Context(), "Rejected request body",
		log.FieldPath, c.FullPath(),
		log.FieldError, err.Error())
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// writeError maps the core error taxonomy onto status codes. Anything
// unrecognised is logged and hidden behind a generic 500.
func (s *Server) writeError(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": publicMessage(err)})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Expense not found"})
	case errors.Is(err, core.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": publicMessage(err)})
	default:
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err,
			log.ComponentHTTP, op, log.NewFields().WithErrorType(log.ErrorTypeInternal))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}

// publicMessage strips the error family prefix and capitalises the rest,
// so "validation failed: all fields are required" becomes
// "All fields are required".
func publicMessage(err error) string {
	msg := err.Error()
	for _, family := range []error{core.ErrValidation, core.ErrConflict} {
		if rest, ok := strings.CutPrefix(msg, family.Error()+": "); ok {
			msg = rest
			break
		}
	}
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
