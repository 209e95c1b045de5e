package http

import (
	"strings"

	"github.com/Spok95/paperstock/internal/domain/issuance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createRequestBody struct {
	JobCardNo         string  `json:"job_card_no"`
	JobName           string  `json:"job_name"`
	PaperSize         string  `json:"paper_size"`
	RequestedMaterial string  `json:"requested_material"`
	MaterialType      string  `json:"material_type"`
	Company           string  `json:"company"`
	RequestType       string  `json:"request_type"`
	RequiredQty       float64 `json:"required_qty"`
	RequestDate       string  `json:"request_date"`
	AllotDate         string  `json:"allot_date"`
}

type openDraftBody struct {
	RequestID *int64 `json:"request_id"`
	issuance.Header
}

type toggleBody struct {
	LotID int64 `json:"lot_id"`
}

type qtyBody struct {
	Qty *float64 `json:"qty"`
}

func (h *handlers) listRequests(c *gin.Context) {
	from, err := parseDay(c.Query("from"), h.Location)
	if err != nil {
		badRequest(c, "invalid from date")
		return
	}
	to, err := parseDay(c.Query("to"), h.Location)
	if err != nil {
		badRequest(c, "invalid to date")
		return
	}
	items, err := h.Issuance.ListRequests(c.Request.Context(), issuance.RequestQuery{
		Search: c.Query("search"),
		From:   from,
		To:     to,
	})
	if err != nil {
		writeError(c, h.Log, "list requests", err)
		return
	}
	success(c, items)
}

func (h *handlers) createRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	reqDate, err := parseDay(body.RequestDate, h.Location)
	if err != nil {
		badRequest(c, "invalid request_date")
		return
	}
	allot, err := parseDay(body.AllotDate, h.Location)
	if err != nil {
		badRequest(c, "invalid allot_date")
		return
	}
	r, err := h.Issuance.CreateRequest(c.Request.Context(), issuance.Request{
		JobCardNo:         body.JobCardNo,
		JobName:           strings.TrimSpace(body.JobName),
		PaperSize:         strings.TrimSpace(body.PaperSize),
		RequestedMaterial: strings.TrimSpace(body.RequestedMaterial),
		MaterialType:      strings.TrimSpace(body.MaterialType),
		Company:           strings.TrimSpace(body.Company),
		RequestType:       strings.TrimSpace(body.RequestType),
		RequiredQty:       body.RequiredQty,
		RequestDate:       reqDate,
		AllotDate:         allot,
	})
	if err != nil {
		writeError(c, h.Log, "create request", err)
		return
	}
	created(c, r)
}

func (h *handlers) getRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.Issuance.GetRequest(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Log, "get request", err)
		return
	}
	success(c, r)
}

func (h *handlers) matchLots(c *gin.Context) {
	hdr := issuance.Header{
		Company:      c.Query("company"),
		MaterialType: c.Query("material_type"),
		PaperSize:    c.Query("paper_size"),
	}
	if hdr.Company == "" {
		badRequest(c, "company is required")
		return
	}
	pools, err := h.Issuance.MatchLots(c.Request.Context(), hdr)
	if err != nil {
		writeError(c, h.Log, "match lots", err)
		return
	}
	success(c, pools)
}

func draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid draft id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) openDraft(c *gin.Context) {
	var body openDraftBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := h.Issuance.OpenDraft(c.Request.Context(), body.RequestID, body.Header)
	if err != nil {
		writeError(c, h.Log, "open draft", err)
		return
	}
	created(c, d)
}

func (h *handlers) getDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.Issuance.GetDraft(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Log, "get draft", err)
		return
	}
	success(c, d)
}

func (h *handlers) toggleLot(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var body toggleBody
	if err := c.ShouldBindJSON(&body); err != nil || body.LotID <= 0 {
		badRequest(c, "lot_id is required")
		return
	}
	d, err := h.Issuance.ToggleLot(c.Request.Context(), id, body.LotID)
	if err != nil {
		writeError(c, h.Log, "toggle lot", err)
		return
	}
	success(c, d)
}

func (h *handlers) setQty(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	lotID, ok := paramID(c, "lot_id")
	if !ok {
		return
	}
	var body qtyBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Qty == nil {
		badRequest(c, "qty is required")
		return
	}
	d, err := h.Issuance.SetQty(c.Request.Context(), id, lotID, *body.Qty)
	if err != nil {
		writeError(c, h.Log, "set qty", err)
		return
	}
	success(c, d)
}

func (h *handlers) commitDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var out issuance.Outputs
	// тело необязательно: без него отходов нет
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&out); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	rc, err := h.Issuance.CommitDraft(c.Request.Context(), id, out)
	if err != nil {
		writeError(c, h.Log, "commit draft", err)
		return
	}
	success(c, rc)
}

func (h *handlers) discardDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	if err := h.Issuance.DiscardDraft(c.Request.Context(), id); err != nil {
		writeError(c, h.Log, "discard draft", err)
		return
	}
	success(c, gin.H{"id": id})
}
