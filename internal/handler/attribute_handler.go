package handler

import (
	"net/http"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /attributes と属性値
type AttributeHandler struct {
	uc *usecase.AttributeUsecase
}

func NewAttributeHandler(uc *usecase.AttributeUsecase) *AttributeHandler {
	return &AttributeHandler{uc: uc}
}

type updateValueRequest struct {
	Value string `json:"value"`
}

func (h *AttributeHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	moderator := authChain(cfg, userRepo, model.RoleModerator, model.RoleAdmin)

	e.GET("/attributes", h.list)
	e.GET("/attributes/:id", h.get)
	e.POST("/attributes", h.create, moderator...)
	e.PUT("/attributes/:id", h.update, moderator...)
	e.DELETE("/attributes/:id", h.delete, moderator...)

	e.GET("/products/:id/attribute-values", h.productValues)
	e.PUT("/attribute-values/:id", h.updateValue, authChain(cfg, userRepo, model.RoleFarmer)...)
}

func (h *AttributeHandler) list(c echo.Context) error {
	categoryID, ok := queryInt64Ptr(c, "category_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid category_id"})
	}
	productID, ok := queryInt64Ptr(c, "product_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	out, err := h.uc.List(c.Request().Context(), categoryID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AttributeHandler) get(c echo.Context) error {
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

func (h *AttributeHandler) create(c echo.Context) error {
	var req usecase.AttributeInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	out, err := h.uc.Create(c.Request().Context(), actorFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AttributeHandler) update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	var req usecase.AttributeInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	out, err := h.uc.Update(c.Request().Context(), actorFrom(c), id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AttributeHandler) delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	if err := h.uc.Delete(c.Request().Context(), actorFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AttributeHandler) productValues(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	out, err := h.uc.ProductValues(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AttributeHandler) updateValue(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	var req updateValueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	out, err := h.uc.UpdateValue(c.Request().Context(), actorFrom(c), id, req.Value)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
