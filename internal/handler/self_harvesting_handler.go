package handler

import (
	"net/http"
	"strconv"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 収穫体験
type SelfHarvestingHandler struct {
	uc *usecase.SelfHarvestingUsecase
}

func NewSelfHarvestingHandler(uc *usecase.SelfHarvestingUsecase) *SelfHarvestingHandler {
	return &SelfHarvestingHandler{uc: uc}
}

func (h *SelfHarvestingHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	auth := authChain(cfg, userRepo)

	e.GET("/self-harvestings", h.list)
	e.GET("/self-harvestings/:id", h.get)
	e.POST("/self-harvestings", h.create, authChain(cfg, userRepo, model.RoleFarmer)...)
	e.PUT("/self-harvestings/:id", h.update, auth...)
	e.DELETE("/self-harvestings/:id", h.delete, auth...)

	e.POST("/self-harvestings/:id/visit", h.visit, auth...)
	e.DELETE("/self-harvestings/:id/visit", h.unvisit, auth...)
	e.GET("/self-harvestings/:id/visitors", h.visitors, auth...)
	e.GET("/me/self-harvestings", h.mine, auth...)
}

func (h *SelfHarvestingHandler) list(c echo.Context) error {
	farmerID, ok := queryInt64Ptr(c, "farmer_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid farmer_id"})
	}
	productID, ok := queryInt64Ptr(c, "product_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	upcoming := false
	if v := c.QueryParam("upcoming"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid upcoming"})
		}
		upcoming = b
	}

	out, err := h.uc.List(c.Request().Context(), usecase.ListSelfHarvestingsInput{
		FarmerID:  farmerID,
		ProductID: productID,
		Upcoming:  upcoming,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SelfHarvestingHandler) get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SelfHarvestingHandler) create(c echo.Context) error {
	var req usecase.SelfHarvestingInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	out, err := h.uc.Create(c.Request().Context(), actorFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *SelfHarvestingHandler) update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	var req usecase.SelfHarvestingInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	out, err := h.uc.Update(c.Request().Context(), actorFrom(c), id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SelfHarvestingHandler) delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	if err := h.uc.Delete(c.Request().Context(), actorFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SelfHarvestingHandler) visit(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	if err := h.uc.Visit(c.Request().Context(), actorFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SelfHarvestingHandler) unvisit(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	if err := h.uc.Unvisit(c.Request().Context(), actorFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SelfHarvestingHandler) visitors(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	out, err := h.uc.Visitors(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SelfHarvestingHandler) mine(c echo.Context) error {
	out, err := h.uc.ListMine(c.Request().Context(), actorFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
