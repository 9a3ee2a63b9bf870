package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, r Reader, metrics http.Handler) {
	router.GET("/healthz", handleHealth())
	router.GET("/metrics", gin.WrapH(metrics))

	api := router.Group("/api")
	api.GET("/summary", handleSummary(r))
	api.GET("/submissions", handleSubmissions(r))
	api.GET("/events", handleSSE(r, ssePollInterval))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleSummary(r Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := r.CountByStatus("")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, NewSummary(counts))
	}
}

func handleSubmissions(r Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.Status(c.DefaultQuery("status", string(models.StatusUploaded)))
		if !validStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + strconv.Quote(string(status))})
			return
		}
		limit := defaultLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxLimit)})
				return
			}
			limit = n
		}

		subs, err := r.FindSubmissions(store.SubmissionQuery{
			Status: status,
			Sort:   moderation.SortNewest,
			Limit:  limit,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      status,
			"submissions": SubmissionRows(subs),
		})
	}
}

func validStatus(s models.Status) bool {
	for _, st := range models.AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}
