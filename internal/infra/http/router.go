package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Spok95/paperstock/internal/domain/catalog"
	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/issuance"
	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/Spok95/paperstock/internal/domain/stock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CatalogStore interface {
	CreateCompany(ctx context.Context, name string) (*catalog.Company, error)
	ListCompanies(ctx context.Context) ([]catalog.Company, error)
	CreateMaterialType(ctx context.Context, name string) (*catalog.MaterialType, error)
	ListMaterialTypes(ctx context.Context) ([]catalog.MaterialType, error)
}

type TransactionLister interface {
	List(ctx context.Context) ([]consumption.Transaction, error)
}

// Deps — всё, что нужно обработчикам.
type Deps struct {
	Catalog       CatalogStore
	Ledger        *materials.Ledger
	Issuance      *issuance.Engine
	Stock         *stock.Service
	Transactions  TransactionLister
	Log           *slog.Logger
	Location      *time.Location
	ExposeMetrics bool
}

type handlers struct {
	Deps
}

func NewRouter(d Deps) *gin.Engine {
	if d.Location == nil {
		d.Location = time.UTC
	}
	h := &handlers{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if d.ExposeMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")

	cat := api.Group("/catalog")
	cat.GET("/companies", h.listCompanies)
	cat.POST("/companies", h.createCompany)
	cat.GET("/material-types", h.listMaterialTypes)
	cat.POST("/material-types", h.createMaterialType)

	lots := api.Group("/lots")
	lots.GET("", h.listLots)
	lots.POST("", h.createLots)
	lots.POST("/import", h.importLots)
	lots.GET("/import/template", h.importTemplate)
	lots.POST("/outputs", h.registerOutput)
	lots.GET("/:id", h.getLot)
	lots.PUT("/:id", h.updateLot)
	lots.DELETE("/:id", h.deleteLot)

	reqs := api.Group("/issue-requests")
	reqs.GET("", h.listRequests)
	reqs.POST("", h.createRequest)
	reqs.GET("/:id", h.getRequest)

	iss := api.Group("/issuance")
	iss.GET("/match", h.matchLots)
	iss.POST("/drafts", h.openDraft)
	iss.GET("/drafts/:id", h.getDraft)
	iss.POST("/drafts/:id/toggle", h.toggleLot)
	iss.PUT("/drafts/:id/lots/:lot_id", h.setQty)
	iss.POST("/drafts/:id/commit", h.commitDraft)
	iss.DELETE("/drafts/:id", h.discardDraft)

	api.GET("/transactions", h.listTransactions)

	api.GET("/stock", h.stockReport)
	api.GET("/stock/export.csv", h.exportCSV)
	api.GET("/stock/export.xlsx", h.exportXLSX)

	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
