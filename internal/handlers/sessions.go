package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/foxxcyber/household/internal/middleware"
	"github.com/foxxcyber/household/internal/models"
	"github.com/foxxcyber/household/internal/session"
)

// sessionError maps manager errors to responses. notFound is the message for
// ErrNoSession, which differs between endpoints.
func (h *Handler) sessionError(c *fiber.Ctx, op string, err error, notFound string) error {
	var ve *session.ValidationError
	switch {
	case errors.As(err, &ve):
		return validationError(c, ve)
	case errors.Is(err, session.ErrForbidden):
		return Error(c, fiber.StatusForbidden, "Forbidden.")
	case errors.Is(err, session.ErrNoSession):
		return Error(c, fiber.StatusNotFound, notFound)
	case errors.Is(err, session.ErrItemNotFound):
		return Error(c, fiber.StatusNotFound, "Shopping item not found.")
	case errors.Is(err, session.ErrSessionExists):
		h.log.WithField("user_id", middleware.GetUserID(c)).Warn("Concurrent shopping session save lost the race")
		return Error(c, fiber.StatusConflict, "Another shopping session was saved at the same time. Please try again.")
	}

	h.log.WithError(err).WithFields(logrus.Fields{
		"operation": op,
		"user_id":   middleware.GetUserID(c),
	}).Error("Shopping session operation failed")
	return Error(c, fiber.StatusInternalServerError, "Failed to "+op+" shopping session.")
}

// SaveShoppingSession replaces the caller's session with a snapshot of the given lists
func (h *Handler) SaveShoppingSession(c *fiber.Ctx) error {
	var req models.CreateSessionRequest
	if err := parseBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	sess, err := h.sessions.Create(c.Context(), middleware.GetUserID(c), req.GroceryListIDs)
	if err != nil {
		return h.sessionError(c, "save", err, "No shopping session found!")
	}

	return Success(c, "Shopping session saved.", fiber.Map{
		"id":               sess.ID,
		"grocery_list_ids": sess.GroceryListIDs,
	})
}

// GetShoppingSession returns the caller's session or a message if there is none
func (h *Handler) GetShoppingSession(c *fiber.Ctx) error {
	view, found, err := h.sessions.Get(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return h.sessionError(c, "load", err, "No shopping session found!")
	}
	if !found {
		return Success(c, "No shopping session found!", nil)
	}

	return Success(c, "", view)
}

// FinishShoppingSession writes purchases back onto the source lists and ends the session
func (h *Handler) FinishShoppingSession(c *fiber.Ctx) error {
	res, err := h.sessions.Finish(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return h.sessionError(c, "finish", err, "No shopping session found!")
	}

	return Success(c, "Shopping session finished. Original lists updated.", res)
}

// DeleteShoppingSession discards the caller's session without touching the lists
func (h *Handler) DeleteShoppingSession(c *fiber.Ctx) error {
	if err := h.sessions.Discard(c.Context(), middleware.GetUserID(c)); err != nil {
		return h.sessionError(c, "delete", err, "No shopping session found!")
	}

	return Success(c, "Shopping session deleted.", nil)
}

// UpdateShoppingItem edits one item of the caller's session
func (h *Handler) UpdateShoppingItem(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return Error(c, fiber.StatusNotFound, "Shopping item not found.")
	}

	var req models.UpdateShoppingItemRequest
	if err := parseBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	item, err := h.sessions.UpdateItem(c.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		return h.sessionError(c, "update", err, "No shopping session found!")
	}

	return Success(c, "Shopping item updated.", item)
}

// ReorderShoppingItems applies new sort orders to items of the caller's session.
// A missing session is reported before the body is validated.
func (h *Handler) ReorderShoppingItems(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if err := h.sessions.Active(c.Context(), userID); err != nil {
		return h.sessionError(c, "reorder", err, "No shopping session found.")
	}

	var req models.ReorderRequest
	if err := parseBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	items, err := h.sessions.Reorder(c.Context(), userID, req.Orders())
	if err != nil {
		return h.sessionError(c, "reorder", err, "No shopping session found.")
	}

	return Success(c, "Order updated.", items)
}
