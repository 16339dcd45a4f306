package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/dreamworld-backend/internal/http/request"
	"github.com/yungbote/dreamworld-backend/internal/http/response"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

type DreamHandler struct {
	dreams services.DreamService
}

func NewDreamHandler(dreams services.DreamService) *DreamHandler {
	return &DreamHandler{dreams: dreams}
}

// POST /api/dreams
func (h *DreamHandler) CreateDream(c *gin.Context) {
	var req request.CreateDream
	if err := request.BindJSON(c, "create dream", &req); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	d, job, err := h.dreams.Create(dbctx.Of(c.Request.Context()), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Header("X-Job-Id", job.ID.String())
	response.RespondCreated(c, d)
}

// GET /api/dreams?skip=&limit=
func (h *DreamHandler) ListDreams(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", services.DefaultPageSize)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out, err := h.dreams.List(dbctx.Of(c.Request.Context()), skip, limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/dreams/:id
func (h *DreamHandler) GetDream(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	d, err := h.dreams.Get(dbctx.Of(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, d)
}
