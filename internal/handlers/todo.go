package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ya55en/pact-showcase/internal/dto"
	"github.com/ya55en/pact-showcase/internal/logger"
	"github.com/ya55en/pact-showcase/internal/model"
	"github.com/ya55en/pact-showcase/internal/service"

	"github.com/gin-gonic/gin"
)

// Detail messages that never carry internal state.
const (
	MsgNotFound = "Not Found"
	MsgInternal = "Internal server error"
)

type TodoHandler struct {
	svc *service.TodoService
	log *slog.Logger
}

func NewTodoHandler(svc *service.TodoService, log *slog.Logger) *TodoHandler {
	if log == nil {
		log = logger.L()
	}
	return &TodoHandler{svc: svc, log: log}
}

// ListItems godoc
// @Summary      List all todo items
// @Tags         todos
// @Produce      json
// @Success      200  {array}   dto.TodoItemResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos [get]
func (h *TodoHandler) ListItems(c *gin.Context) {
	list, err := h.svc.Items(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]dto.Record, len(list))
	for i, t := range list {
		out[i] = record(t)
	}
	c.JSON(http.StatusOK, out)
}

// GetItem godoc
// @Summary      Get a todo item by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  dto.TodoItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [get]
func (h *TodoHandler) GetItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Item(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record(t))
}

// ListGroups godoc
// @Summary      List all todo groups
// @Tags         groups
// @Produce      json
// @Success      200  {array}   dto.TodoGroupResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /groups [get]
func (h *TodoHandler) ListGroups(c *gin.Context) {
	list, err := h.svc.Groups(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]dto.Record, len(list))
	for i, g := range list {
		out[i] = record(g)
	}
	c.JSON(http.StatusOK, out)
}

// GetGroup godoc
// @Summary      Get a todo group by ID
// @Tags         groups
// @Produce      json
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  dto.TodoGroupResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /groups/{id} [get]
func (h *TodoHandler) GetGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	g, err := h.svc.Group(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record(g))
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.ErrorResponse{Detail: MsgNotFound})
}

// Recovery turns a panic into a 500 without leaking its value.
func Recovery(log *slog.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		log.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: MsgInternal})
	}
}

func (h *TodoHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Detail: err.Error()})
		return
	}
	h.log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: MsgInternal})
}

// parseID reads a positive integer path parameter. Anything else does not
// name a resource and answers 404.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		NotFound(c)
		return 0, false
	}
	return id, true
}

// record keeps the scalar fields of e.
func record(e model.Entity) dto.Record {
	s := model.SchemaOf(e)
	out := dto.Record{}
	for name, v := range model.AsDict(e) {
		if f, ok := s.Field(name); ok && f.Relation {
			continue
		}
		out[name] = v
	}
	return out
}
