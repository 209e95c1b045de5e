package http

import (
	"github.com/gin-gonic/gin"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (h *handlers) listCompanies(c *gin.Context) {
	items, err := h.Catalog.ListCompanies(c.Request.Context())
	if err != nil {
		writeError(c, h.Log, "list companies", err)
		return
	}
	success(c, items)
}

func (h *handlers) createCompany(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.Catalog.CreateCompany(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, h.Log, "create company", err)
		return
	}
	created(c, item)
}

func (h *handlers) listMaterialTypes(c *gin.Context) {
	items, err := h.Catalog.ListMaterialTypes(c.Request.Context())
	if err != nil {
		writeError(c, h.Log, "list material types", err)
		return
	}
	success(c, items)
}

func (h *handlers) createMaterialType(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.Catalog.CreateMaterialType(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, h.Log, "create material type", err)
		return
	}
	created(c, item)
}
