package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createLotsRequest struct {
	Company      string             `json:"company"`
	MaterialType string             `json:"material_type"`
	PaperSize    string             `json:"paper_size"`
	Rack         string             `json:"rack"`
	Date         string             `json:"date"`
	Rows         []materials.LotRow `json:"rows"`
}

type updateLotRequest struct {
	MaterialType string  `json:"material_type"`
	RunningMeter float64 `json:"running_meter"`
	Rolls        float64 `json:"rolls"`
	Date         string  `json:"date"`
}

func (h *handlers) listLots(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	res, err := h.Ledger.ListLots(c.Request.Context(), materials.ListQuery{
		Search: c.Query("search"),
		Page:   page,
	})
	if err != nil {
		writeError(c, h.Log, "list lots", err)
		return
	}
	success(c, res)
}

func (h *handlers) createLots(c *gin.Context) {
	var req createLotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	day, err := parseDay(req.Date, h.Location)
	if err != nil {
		badRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}
	hdr := materials.LotHeader{
		Company:      req.Company,
		MaterialType: req.MaterialType,
		PaperSize:    req.PaperSize,
		Rack:         req.Rack,
	}
	if day != nil {
		hdr.Date = *day
	}
	lots, err := h.Ledger.CreateLots(c.Request.Context(), hdr, req.Rows)
	if err != nil {
		writeError(c, h.Log, "create lots", err)
		return
	}
	created(c, lots)
}

func (h *handlers) importLots(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	res, err := h.Ledger.ImportLots(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.Log, "import lots", err)
		return
	}
	success(c, res)
}

func (h *handlers) importTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := materials.WriteImportTemplate(&buf); err != nil {
		writeError(c, h.Log, "import template", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="lots-import-template.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *handlers) registerOutput(c *gin.Context) {
	var req materials.NewOutput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if cat, ok := materials.ParseCategory(string(req.Category)); ok {
		req.Category = cat
	}
	lot, err := h.Ledger.RegisterOutput(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.Log, "register output", err)
		return
	}
	created(c, lot)
}

func (h *handlers) getLot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lot, err := h.Ledger.GetLot(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Log, "get lot", err)
		return
	}
	success(c, lot)
}

func (h *handlers) updateLot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	day, err := parseDay(req.Date, h.Location)
	if err != nil {
		badRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}
	corr := materials.LotCorrection{
		MaterialType: req.MaterialType,
		RunningMeter: req.RunningMeter,
		Rolls:        req.Rolls,
	}
	if day != nil {
		corr.Date = *day
	}
	lot, err := h.Ledger.UpdateLot(c.Request.Context(), id, corr)
	if err != nil {
		writeError(c, h.Log, "update lot", err)
		return
	}
	success(c, lot)
}

func (h *handlers) deleteLot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeleteLot(c.Request.Context(), id); err != nil {
		writeError(c, h.Log, "delete lot", err)
		return
	}
	success(c, gin.H{"id": id})
}
