package candidate

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/juniper/internal/repositories/duplicatecandidate"
	"github.com/Ramsey-B/juniper/pkg/merging"
	"github.com/Ramsey-B/juniper/pkg/models"
)

var validate = validator.New()

// Register registers duplicate candidate routes
func Register(g *echo.Group) {
	g.GET("", ListCandidates)
	g.GET("/:id", GetCandidate)
	g.PUT("/:id/confirm", ConfirmCandidate)
	g.PUT("/:id/reject", RejectCandidate)
	g.POST("/:id/merge", MergeCandidate)
}

// ListCandidates lists candidates, optionally filtered by status, newest first
func ListCandidates(c echo.Context) error {
	ctx := c.Request().Context()

	status := c.QueryParam("status")
	switch status {
	case "", models.CandidateStatusPending, models.CandidateStatusConfirmed,
		models.CandidateStatusRejected, models.CandidateStatusMerged:
	default:
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
		}
		page = parsed
	}

	pageSize := 50
	if raw := c.QueryParam("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			return httperror.NewHTTPError(http.StatusBadRequest, "page_size must be between 1 and 500")
		}
		pageSize = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*duplicatecandidate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, total, err := repo.List(ctx, status, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.CandidateListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// GetCandidate gets a candidate by ID
func GetCandidate(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*duplicatecandidate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	candidate, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, candidate)
}

// ConfirmCandidate marks a pending candidate as a confirmed duplicate
func ConfirmCandidate(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	var req models.ResolveCandidateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := engine.Confirm(ctx, id, req.ResolvedBy); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": models.CandidateStatusConfirmed})
}

// RejectCandidate marks a pending candidate as not a duplicate. Rejected
// pairs keep their row so rescans cannot resurface them as pending.
func RejectCandidate(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	var req models.ResolveCandidateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := engine.Reject(ctx, id, req.ResolvedBy); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": models.CandidateStatusRejected})
}

// MergeCandidate executes the merge for a confirmed candidate
func MergeCandidate(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	var req models.MergeCandidateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := engine.Merge(ctx, id, req.WinnerID, req.MergedBy)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"candidate_id": id,
			"winner_id":    result.Winner.ID,
			"loser_id":     result.LoserID,
		}).Info("Merged duplicate candidate")
	}

	return c.JSON(http.StatusOK, result)
}
