package bed

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "doctor", "staff"))

	g.POST("/beds", h.CreateBed)
	g.GET("/beds", h.ListBeds)
	g.GET("/beds/available", h.AvailableBeds)
	g.GET("/beds/stats", h.Stats)
	g.GET("/beds/:id", h.GetBedDetails)
	g.PUT("/beds/:id", h.UpdateBed)
	g.DELETE("/beds/:id", h.DeleteBed)
	g.POST("/beds/:id/allocate", h.Allocate)

	g.GET("/occupancies", h.OccupancyHistory)
	g.GET("/occupancies/:id", h.GetOccupancy)
	g.PUT("/occupancies/:id", h.UpdateOccupancy)
	g.POST("/occupancies/:id/discharge", h.Discharge)
	g.POST("/occupancies/:id/transfer", h.Transfer)
}

func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
}

func (h *Handler) CreateBed(c echo.Context) error {
	var b BedSpace
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBed(c.Request().Context(), &b); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	pg := pagination.FromContext(c)

	f := ListFilter{
		Type:   c.QueryParam("type"),
		Status: c.QueryParam("status"),
		Ward:   c.QueryParam("ward"),
		Search: c.QueryParam("search"),
	}
	if dep := c.QueryParam("department_id"); dep != "" {
		id, err := uuid.Parse(dep)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		f.DepartmentID = &id
	}

	beds, total, err := h.svc.ListBeds(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(beds, total, pg.Limit, pg.Offset))
}

func (h *Handler) AvailableBeds(c echo.Context) error {
	f := ListFilter{
		Type: c.QueryParam("type"),
		Ward: c.QueryParam("ward"),
	}
	if dep := c.QueryParam("department_id"); dep != "" {
		id, err := uuid.Parse(dep)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		f.DepartmentID = &id
	}

	beds, err := h.svc.AvailableBeds(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetBedDetails(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	details, err := h.svc.GetBedDetails(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, details)
}

func (h *Handler) UpdateBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd BedUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.UpdateBed(c.Request().Context(), id, &upd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteBed(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Allocate(c echo.Context) error {
	bedID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req AllocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	occ, err := h.svc.Allocate(c.Request().Context(), bedID, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, occ)
}

func (h *Handler) OccupancyHistory(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f HistoryFilter
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if bid := c.QueryParam("bed_id"); bid != "" {
		id, err := uuid.Parse(bid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid bed_id")
		}
		f.BedID = &id
	}

	occs, total, err := h.svc.OccupancyHistory(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(occs, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetOccupancy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	occ, err := h.svc.GetOccupancy(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, occ)
}

func (h *Handler) UpdateOccupancy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd OccupancyUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	occ, err := h.svc.UpdateOccupancy(c.Request().Context(), id, &upd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, occ)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	occ, err := h.svc.Discharge(c.Request().Context(), id, body.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, occ)
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		NewBedID uuid.UUID `json:"new_bed_id"`
		Reason   string    `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.NewBedID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "new_bed_id is required")
	}
	occ, err := h.svc.Transfer(c.Request().Context(), id, body.NewBedID, body.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, occ)
}
