package location

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/juniper/internal/repositories/location"
	"github.com/Ramsey-B/juniper/internal/repositories/mergehistory"
	"github.com/Ramsey-B/juniper/internal/repositories/sourcemapping"
	"github.com/Ramsey-B/juniper/pkg/models"
)

// Register registers location routes. Resolve must come before the :id
// routes so echo does not treat "resolve" as an id.
func Register(g *echo.Group) {
	g.GET("/resolve", ResolveBySource)
	g.GET("/:id", GetLocation)
	g.GET("/:id/canonical", ResolveCanonical)
	g.GET("/:id/history", GetMergeHistory)
}

// GetLocation gets a location by ID, canonical or merged-away
func GetLocation(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*location.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	loc, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loc)
}

// ResolveCanonical follows a merged-away location to its canonical record
func ResolveCanonical(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*location.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	canonical, redirected, err := repo.ResolveCanonical(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ResolveLocationResponse{
		RequestedID: id,
		Canonical:   canonical,
		Redirected:  redirected,
	})
}

// ResolveBySource resolves an external (source, external_id) pair to the
// canonical location it maps to
func ResolveBySource(c echo.Context) error {
	ctx := c.Request().Context()

	source := c.QueryParam("source")
	externalID := c.QueryParam("external_id")

	if source == "" || externalID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "source and external_id query parameters are required")
	}

	ctx, mappingRepo, err := ectoinject.GetContext[*sourcemapping.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	mapping, err := mappingRepo.GetByExternalID(ctx, externalID, models.LocationSource(source))
	if err != nil {
		return err
	}
	if mapping == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no location mapped to the given source record")
	}

	ctx, locationRepo, err := ectoinject.GetContext[*location.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	canonical, redirected, err := locationRepo.ResolveCanonical(ctx, mapping.LocationID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ResolveLocationResponse{
		RequestedID: mapping.LocationID,
		Canonical:   canonical,
		Redirected:  redirected,
	})
}

// GetMergeHistory lists the merges recorded into a canonical location
func GetMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*mergehistory.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entries, err := repo.ListByCanonical(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}
