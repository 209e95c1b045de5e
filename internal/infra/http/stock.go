package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/stock"
	"github.com/gin-gonic/gin"
)

func (h *handlers) stockFilter(c *gin.Context) (stock.Filter, bool) {
	from, err := parseDay(c.Query("from"), h.Location)
	if err != nil {
		badRequest(c, "invalid from date")
		return stock.Filter{}, false
	}
	to, err := parseDay(c.Query("to"), h.Location)
	if err != nil {
		badRequest(c, "invalid to date")
		return stock.Filter{}, false
	}
	return stock.Filter{
		Search:   c.Query("search"),
		Category: c.DefaultQuery("category", stock.CategoryAll),
		From:     from,
		To:       to,
	}, true
}

func (h *handlers) stockReport(c *gin.Context) {
	f, ok := h.stockFilter(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	p, err := h.Stock.Report(c.Request.Context(), f, page)
	if err != nil {
		writeError(c, h.Log, "stock report", err)
		return
	}
	success(c, p)
}

func attachment(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, body)
}

func (h *handlers) exportCSV(c *gin.Context) {
	f, ok := h.stockFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	name, err := h.Stock.ExportCSV(c.Request.Context(), &buf, f)
	if err != nil {
		writeError(c, h.Log, "export csv", err)
		return
	}
	attachment(c, name, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *handlers) exportXLSX(c *gin.Context) {
	f, ok := h.stockFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	name, err := h.Stock.ExportXLSX(c.Request.Context(), &buf, f)
	if err != nil {
		writeError(c, h.Log, "export xlsx", err)
		return
	}
	attachment(c, name, xlsxContentType, buf.Bytes())
}

// listTransactions — журнал выдач; ?code= оставляет записи с этим кодом лота.
func (h *handlers) listTransactions(c *gin.Context) {
	txs, err := h.Transactions.List(c.Request.Context())
	if err != nil {
		writeError(c, h.Log, "list transactions", err)
		return
	}
	if code := c.Query("code"); code != "" {
		out := make([]consumption.Transaction, 0, len(txs))
		for _, t := range txs {
			if t.Mentions(code) {
				out = append(out, t)
			}
		}
		txs = out
	}
	success(c, txs)
}
