package duplicates

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/juniper/pkg/matching"
	"github.com/Ramsey-B/juniper/pkg/models"
)

var validate = validator.New()

// Register registers duplicate detection routes
func Register(g *echo.Group) {
	g.POST("/scan", ScanDuplicates)
	g.POST("/populate", PopulateCandidates)
	g.GET("/stats", GetDuplicateStats)
}

// ScanDuplicates runs a read-only duplicate scan and returns the scored
// pairs without touching the candidate store
func ScanDuplicates(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ScanRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := svc.FindDuplicateCandidates(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// PopulateCandidates scans and upserts the results into the candidate store
func PopulateCandidates(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.PopulateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := svc.PopulateDuplicateCandidates(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// GetDuplicateStats returns aggregate counts over locations and candidates
func GetDuplicateStats(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	stats, err := svc.GetDuplicateStats(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
