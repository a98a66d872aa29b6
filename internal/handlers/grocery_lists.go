package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/foxxcyber/household/internal/database"
	"github.com/foxxcyber/household/internal/middleware"
	"github.com/foxxcyber/household/internal/models"
)

// listError maps catalog errors to responses
func (h *Handler) listError(c *fiber.Ctx, op string, err error) error {
	if errors.Is(err, database.ErrListNotFound) {
		return Error(c, fiber.StatusNotFound, "Grocery list not found.")
	}
	if errors.Is(err, database.ErrNotListOwner) {
		return Error(c, fiber.StatusForbidden, "Forbidden.")
	}

	h.log.WithError(err).WithFields(logrus.Fields{
		"operation": op,
		"user_id":   middleware.GetUserID(c),
	}).Error("Grocery list operation failed")
	return Error(c, fiber.StatusInternalServerError, "Failed to "+op+" grocery list.")
}

func listID(c *fiber.Ctx) (int, bool) {
	id, err := strconv.Atoi(c.Params("id"))
	return id, err == nil && id > 0
}

// ListGroceryLists returns all grocery lists for the current user
func (h *Handler) ListGroceryLists(c *fiber.Ctx) error {
	lists, err := h.catalog.ListGroceryLists(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return h.listError(c, "list", err)
	}
	return Success(c, "", lists)
}

// PaginateGroceryLists returns one page of the current user's lists
func (h *Handler) PaginateGroceryLists(c *fiber.Ctx) error {
	var params models.ListListParams
	if err := parseBody(c, &params); err != nil {
		return Error(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if ok, err := h.validate(c, &params); !ok {
		return err
	}
	params.UserID = middleware.GetUserID(c)
	if params.PerPage == 0 {
		params.PerPage = 10
	}
	if params.Page == 0 {
		params.Page = 1
	}

	lists, total, err := h.catalog.PaginateGroceryLists(c.Context(), &params)
	if err != nil {
		return h.listError(c, "paginate", err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"data":         lists,
			"current_page": params.Page,
			"per_page":     params.PerPage,
		},
		"total": total,
	})
}

// GetGroceryList returns a single grocery list with items
func (h *Handler) GetGroceryList(c *fiber.Ctx) error {
	id, ok := listID(c)
	if !ok {
		return Error(c, fiber.StatusNotFound, "Grocery list not found.")
	}

	list, err := h.catalog.GetGroceryListByID(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return h.listError(c, "load", err)
	}
	return Success(c, "", list)
}

// CreateGroceryList creates a grocery list together with its items
func (h *Handler) CreateGroceryList(c *fiber.Ctx) error {
	var req models.CreateListRequest
	if err := parseBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	list, err := h.catalog.CreateGroceryList(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return h.listError(c, "create", err)
	}

	return c.Status(fiber.StatusCreated).JSON(Response{
		Message: "Grocery list created.",
		Data:    list,
	})
}

// UpdateGroceryList updates a grocery list
func (h *Handler) UpdateGroceryList(c *fiber.Ctx) error {
	id, ok := listID(c)
	if !ok {
		return Error(c, fiber.StatusNotFound, "Grocery list not found.")
	}

	var req models.UpdateListRequest
	if err := parseBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	list, err := h.catalog.UpdateGroceryList(c.Context(), id, middleware.GetUserID(c), &req)
	if err != nil {
		return h.listError(c, "update", err)
	}
	return Success(c, "Grocery list updated.", list)
}

// DeleteGroceryList soft-deletes a grocery list
func (h *Handler) DeleteGroceryList(c *fiber.Ctx) error {
	id, ok := listID(c)
	if !ok {
		return Error(c, fiber.StatusNotFound, "Grocery list not found.")
	}

	if err := h.catalog.DeleteGroceryList(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return h.listError(c, "delete", err)
	}
	return Success(c, "Grocery list deleted.", nil)
}

// ReorderGroceryListItems applies new sort orders to the items of one list
func (h *Handler) ReorderGroceryListItems(c *fiber.Ctx) error {
	id, ok := listID(c)
	if !ok {
		return Error(c, fiber.StatusNotFound, "Grocery list not found.")
	}

	var req models.ReorderRequest
	if err := parseBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ids := make([]int, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.ID
	}
	existing, err := h.catalog.ExistingListItemIDs(c.Context(), ids)
	if err != nil {
		return h.listError(c, "reorder", err)
	}
	present := make(map[int]bool, len(existing))
	for _, e := range existing {
		present[e] = true
	}
	for i, it := range req.Items {
		if !present[it.ID] {
			field := fmt.Sprintf("items.%d.id", i)
			return ValidationFailed(c, map[string][]string{field: {"The selected " + field + " is invalid."}}, []string{field})
		}
	}

	list, err := h.catalog.ReorderGroceryListItems(c.Context(), id, middleware.GetUserID(c), req.Orders())
	if err != nil {
		return h.listError(c, "reorder", err)
	}
	return Success(c, "Items order updated.", list)
}
