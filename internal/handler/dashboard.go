package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/store"
)

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := store.Dashboard(c.Request.Context(), h.db)
	if err != nil {
		h.logUnexpected("Dashboard", err)
		view(c, "dashboard", gin.H{"error": errorMessage(err)})
		return
	}

	view(c, "dashboard", gin.H{"stats": stats})
}
