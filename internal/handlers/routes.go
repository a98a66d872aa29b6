package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the authenticated API on api
func (h *Handler) RegisterRoutes(api fiber.Router) {
	// Grocery lists
	api.Get("/grocery-lists", h.ListGroceryLists)
	api.Get("/grocery-lists/:id", h.GetGroceryList)
	api.Patch("/grocery-lists/:id", h.UpdateGroceryList)
	api.Put("/grocery-lists/:id", h.UpdateGroceryList)
	api.Delete("/grocery-lists/:id", h.DeleteGroceryList)
	api.Post("/grocery-lists/:id/items", h.ReorderGroceryListItems)
	api.Post("/get-grocery-lists", h.PaginateGroceryLists)
	api.Post("/save-grocery-list-data", h.CreateGroceryList)

	// Shopping session
	api.Post("/save-shopping-session", h.SaveShoppingSession)
	api.Get("/get-shopping-session", h.GetShoppingSession)
	api.Post("/get-shopping-session", h.GetShoppingSession)
	api.Post("/finish-shopping-session", h.FinishShoppingSession)
	api.Post("/delete-shopping-session", h.DeleteShoppingSession)
	api.Delete("/delete-shopping-session", h.DeleteShoppingSession)

	// Shopping items
	api.Post("/shopping-items/reorder", h.ReorderShoppingItems)
	api.Patch("/shopping-items/:id", h.UpdateShoppingItem)
	api.Put("/shopping-items/:id", h.UpdateShoppingItem)
}
