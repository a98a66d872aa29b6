package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/foxxcyber/household/internal/models"
	"github.com/foxxcyber/household/internal/session"
)

// Catalog is the grocery list storage the handlers use. *database.DB implements it.
type Catalog interface {
	ListGroceryLists(ctx context.Context, userID int) ([]models.GroceryList, error)
	PaginateGroceryLists(ctx context.Context, params *models.ListListParams) ([]models.GroceryList, int, error)
	GetGroceryListByID(ctx context.Context, id, userID int) (*models.GroceryListWithItems, error)
	CreateGroceryList(ctx context.Context, userID int, req *models.CreateListRequest) (*models.GroceryListWithItems, error)
	UpdateGroceryList(ctx context.Context, id, userID int, req *models.UpdateListRequest) (*models.GroceryListWithItems, error)
	DeleteGroceryList(ctx context.Context, id, userID int) error
	ExistingListItemIDs(ctx context.Context, ids []int) ([]int, error)
	ReorderGroceryListItems(ctx context.Context, id, userID int, orders []models.ItemOrder) (*models.GroceryListWithItems, error)
}

// Handler holds all handler dependencies
type Handler struct {
	catalog   Catalog
	sessions  *session.Manager
	log       *logrus.Logger
	validator *validator.Validate
}

// New creates a new Handler instance
func New(catalog Catalog, sessions *session.Manager, log *logrus.Logger) *Handler {
	return &Handler{
		catalog:   catalog,
		sessions:  sessions,
		log:       log,
		validator: newValidator(),
	}
}

// newValidator reports fields by their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(nullableValue, models.Nullable[float64]{}, models.Nullable[string]{})
	return v
}

// nullableValue validates the wrapped value. Absent and null validate as empty.
func nullableValue(field reflect.Value) interface{} {
	switch n := field.Interface().(type) {
	case models.Nullable[float64]:
		if n.Value != nil {
			return *n.Value
		}
	case models.Nullable[string]:
		if n.Value != nil {
			return *n.Value
		}
	}
	return nil
}

// ErrorHandler renders stray errors with the same {message} body as the handlers
func ErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			log.WithError(err).WithField("path", c.Path()).Error("Unhandled request error")
		}

		return Error(c, code, message)
	}
}

// Response is the body of every API response
type Response struct {
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{Message: message, Data: data})
}

// Error returns an error response
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{Message: message})
}

// ValidationFailed returns 422 with per-field messages. The top-level message
// is the first field's first message.
func ValidationFailed(c *fiber.Ctx, fields map[string][]string, order []string) error {
	message := "The given data was invalid."
	if len(order) > 0 {
		message = fields[order[0]][0]
		if extra := len(order) - 1; extra > 0 {
			noun := "errors"
			if extra == 1 {
				noun = "error"
			}
			message = fmt.Sprintf("%s (and %d more %s)", message, extra, noun)
		}
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(Response{Message: message, Errors: fields})
}

// validate runs struct validation. It returns false after writing a 422.
func (h *Handler) validate(c *fiber.Ctx, req interface{}) (bool, error) {
	err := h.validator.Struct(req)
	if err == nil {
		return true, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false, Error(c, fiber.StatusUnprocessableEntity, "The given data was invalid.")
	}

	fields := map[string][]string{}
	var order []string
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		if _, seen := fields[field]; !seen {
			order = append(order, field)
		}
		fields[field] = append(fields[field], fieldMessage(field, fe))
	}
	return false, ValidationFailed(c, fields, order)
}

func validationError(c *fiber.Ctx, ve *session.ValidationError) error {
	return ValidationFailed(c, map[string][]string{ve.Field: {ve.Message}}, []string{ve.Field})
}

// fieldPath turns "CreateSessionRequest.grocery_list_ids[1]" into "grocery_list_ids.1"
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}

func fieldMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "min":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("The %s field must have at least %s items.", label, fe.Param())
		case reflect.String:
			return fmt.Sprintf("The %s field must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", label, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}

// parseBody decodes the request body. An empty body leaves req untouched.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(req)
}
