package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meetlog/meetlog/internal/auth"
	"github.com/meetlog/meetlog/internal/contacts"
)

// ContactsHandler serves the interactive contact CRUD, export, and claim API.
type ContactsHandler struct {
	service *contacts.Service
}

// HiddenRequest is the body for PATCH /contacts/:id/hidden.
type HiddenRequest struct {
	IsHidden bool `json:"is_hidden"`
}

func NewContactsHandler(service *contacts.Service) *ContactsHandler {
	return &ContactsHandler{service: service}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	group := e.Group("/contacts")
	group.GET("", h.List)
	group.GET("/export", h.Export)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.PATCH("/:id", h.Update)
	group.PATCH("/:id/hidden", h.SetHidden)
	group.POST("/:id/claim", h.Claim)
	group.DELETE("/:id", h.Delete)
}

func (h *ContactsHandler) List(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	includeHidden := c.QueryParam("include_hidden") == "true"
	items, err := h.service.List(c.Request().Context(), userID, includeHidden)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ContactsHandler) Get(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	item, err := h.loadOwned(c, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ContactsHandler) Create(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req contacts.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Interactive creates always belong to the calling account.
	req.Owner = contacts.AccountOwner(userID)
	item, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return contactError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *ContactsHandler) Update(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	if _, err := h.loadOwned(c, userID); err != nil {
		return err
	}
	var req contacts.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Update(c.Request().Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		return contactError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ContactsHandler) SetHidden(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	if _, err := h.loadOwned(c, userID); err != nil {
		return err
	}
	var req HiddenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.SetHidden(c.Request().Context(), strings.TrimSpace(c.Param("id")), req.IsHidden)
	if err != nil {
		return contactError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// Claim moves an unclaimed channel contact into the calling account.
func (h *ContactsHandler) Claim(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	item, err := h.service.Claim(c.Request().Context(), id, userID)
	if err != nil {
		if errors.Is(err, contacts.ErrNotClaimable) {
			return echo.NewHTTPError(http.StatusConflict, "contact is not claimable")
		}
		return contactError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ContactsHandler) Delete(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	if _, err := h.loadOwned(c, userID); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		return contactError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Export streams the account's visible contacts as a CSV download.
func (h *ContactsHandler) Export(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	items, err := h.service.List(c.Request().Context(), userID, false)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	filename := fmt.Sprintf("contacts-%s.csv", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	return contacts.WriteCSV(c.Response(), items)
}

// loadOwned fetches the contact on :id and checks the caller may touch it:
// their own account-owned contacts plus any unclaimed channel contact.
func (h *ContactsHandler) loadOwned(c echo.Context, userID string) (contacts.Contact, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return contacts.Contact{}, echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	item, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return contacts.Contact{}, contactError(err)
	}
	switch item.Owner.Kind {
	case contacts.OwnerChannel:
		return item, nil
	case contacts.OwnerAccount:
		if item.Owner.Ref == userID {
			return item, nil
		}
	}
	// Hide the existence of other accounts' contacts.
	return contacts.Contact{}, echo.NewHTTPError(http.StatusNotFound, "contact not found")
}

func contactError(err error) error {
	var fieldErr *contacts.FieldError
	switch {
	case errors.Is(err, contacts.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "contact not found")
	case errors.As(err, &fieldErr):
		return echo.NewHTTPError(http.StatusBadRequest, fieldErr.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
