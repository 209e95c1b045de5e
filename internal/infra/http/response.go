package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Spok95/paperstock/internal/domain/catalog"
	"github.com/Spok95/paperstock/internal/domain/issuance"
	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/Spok95/paperstock/internal/domain/stock"
	"github.com/gin-gonic/gin"
)

// Response — общий конверт ответа API.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Code: status * 100, Message: message})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

var (
	badRequestErrs = []error{
		materials.ErrCompanyRequired,
		materials.ErrUnknownCompany,
		materials.ErrInvalidQuantity,
		materials.ErrInvalidCategory,
		materials.ErrNoRows,
		catalog.ErrEmptyName,
		issuance.ErrJobCardRequired,
		issuance.ErrNotSelected,
		issuance.ErrEmptySelection,
		issuance.ErrInvalidQty,
		issuance.ErrDuplicateLot,
		issuance.ErrLotMismatch,
		issuance.ErrHeaderRequired,
		stock.ErrInvalidFilter,
	}
	notFoundErrs = []error{
		materials.ErrNotFound,
		issuance.ErrRequestNotFound,
		issuance.ErrDraftNotFound,
		issuance.ErrLotNotFound,
	}
	conflictErrs = []error{
		materials.ErrInvalidCorrection,
		issuance.ErrOverIssue,
		issuance.ErrAlreadyIssued,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeError: ошибки валидации отдаются как есть, сбои хранилища
// логируются и превращаются в общее сообщение.
func writeError(c *gin.Context, log *slog.Logger, op string, err error) {
	switch {
	case isAny(err, badRequestErrs):
		fail(c, http.StatusBadRequest, err.Error())
	case isAny(err, notFoundErrs):
		fail(c, http.StatusNotFound, err.Error())
	case isAny(err, conflictErrs):
		fail(c, http.StatusConflict, err.Error())
	default:
		log.Error(op+" failed", "path", c.FullPath(), "err", err)
		fail(c, http.StatusInternalServerError, "operation failed, please try again")
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// parseDay разбирает YYYY-MM-DD в часовом поясе склада; пусто — nil.
func parseDay(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
