package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CamuPos/app/database"
	"CamuPos/app/services"
)

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrUnknownProduct),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidQRIS),
		errors.Is(err, services.ErrNoRecipient),
		errors.Is(err, services.ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrRemoteDisabled),
		errors.Is(err, services.ErrQRISNotConfigured),
		errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondApplied answers a mutation. An action applied locally whose remote
// leg failed is 202 with syncError set; the local change stands.
func respondApplied(c *gin.Context, status int, body gin.H, err error) {
	var syncErr *services.SyncError
	switch {
	case err == nil:
		c.JSON(status, body)
	case errors.As(err, &syncErr):
		body["syncError"] = syncErr.Error()
		c.JSON(http.StatusAccepted, body)
	default:
		respondError(c, err)
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// wantsWait reports ?wait=true: the response waits for remote replication
func wantsWait(c *gin.Context) bool {
	wait, _ := strconv.ParseBool(c.Query("wait"))
	return wait
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
