package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/middleware"
)

func (h *Handler) listAvailableTasks(c *gin.Context) {
	actor, ok := ownerFrom(c, c.Query("actorId"))
	if !ok {
		return
	}

	f := domain.TaskFilter{ActorID: actor}
	if p := c.Query("platform"); p != "" {
		platform, err := domain.ParsePlatform(p)
		if err != nil {
			respondError(c, err)
			return
		}
		f.Platform = platform
	}
	if t := c.Query("type"); t != "" {
		f.Type = domain.TaskType(t)
		if !f.Type.Valid() {
			badRequest(c, "unknown task type "+strconv.Quote(t))
			return
		}
	}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	tasks, err := h.tasks.ListAvailable(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	out := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = newTaskResponse(t, now)
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (h *Handler) executeTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid task id")
		return
	}

	res, err := h.tasks.Execute(c.Request.Context(), id, middleware.GetOwner(c))
	if err != nil {
		respondError(c, err, "success", false)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           res.Success,
		"creditedAmount":    money(res.CreditedAmount),
		"remainingQuantity": res.Task.RemainingQuantity,
		"orderCompleted":    res.OrderCompleted,
	})
}
