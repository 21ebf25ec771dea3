package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/chainlog/internal/chainlog"
	"go.uber.org/zap"
)

// EntryHandler exposes the chain log over HTTP.
type EntryHandler struct {
	store  *chainlog.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(store *chainlog.Store, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{store: store, now: time.Now, logger: logger}
}

// SetClock replaces the clock used to timestamp new entries.
func (h *EntryHandler) SetClock(now func() time.Time) {
	h.now = now
}

// Register mounts the entry routes on the given router group.
func (h *EntryHandler) Register(rg *gin.RouterGroup) {
	e := rg.Group("/entries")
	{
		e.GET("", h.List)
		e.POST("", h.Create)
		e.GET("/:seq", h.Get)
	}
}

// appendRequest is the body of POST /entries.
type appendRequest struct {
	Text   string `json:"text"`
	Amount string `json:"amount"`
}

// List handles GET /entries?q= — returns matching entries oldest first.
func (h *EntryHandler) List(c *gin.Context) {
	entries := h.store.Query(c.Query("q"))
	RecordQuery()

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
		"total":   chainlog.Total(entries).String(),
		"head":    h.store.Head(),
	})
}

// Create handles POST /entries — appends a new entry to the chain.
func (h *EntryHandler) Create(c *gin.Context) {
	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.store.Append(c.Request.Context(), req.Text, req.Amount, h.now())
	switch {
	case err == nil:
	case errors.Is(err, chainlog.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		h.logger.Error("append entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist entry"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Get handles GET /entries/:seq — returns a single entry.
func (h *EntryHandler) Get(c *gin.Context) {
	seq, err := strconv.ParseUint(c.Param("seq"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seq must be a non-negative integer"})
		return
	}

	entry, ok := h.store.Get(seq)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
