package handler

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/ttacon/libphonenumber"
)

func redirect(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}

func flash(c *gin.Context, category, message string) {
	session.FromContext(c).AddFlash(category, message)
}

// view renders data for the template layer together with the pending flashes
// and the identities on the session.
func view(c *gin.Context, name string, data gin.H) {
	sess := session.FromContext(c)
	if data == nil {
		data = gin.H{}
	}
	data["view"] = name
	data["flashes"] = sess.PopFlashes()
	if sess.Has(session.ScopeStaff) {
		data["staff"] = gin.H{"id": sess.StaffID, "name": sess.StaffName, "role": sess.StaffRole}
	}
	if sess.Has(session.ScopeCustomer) {
		data["customer"] = gin.H{"id": sess.CustomerID, "name": sess.CustomerName, "email": sess.CustomerEmail}
	}
	c.JSON(http.StatusOK, data)
}

// errorMessage turns a domain error into the text shown to the user.
func errorMessage(err error) string {
	var outOfStock *database.OutOfStockError
	switch {
	case errors.As(err, &outOfStock):
		return fmt.Sprintf("Stock insuficiente para %s (disponible: %d)", outOfStock.Title, outOfStock.Available)
	case errors.Is(err, database.ErrInsufficientStock):
		return "Stock insuficiente"
	case errors.Is(err, database.ErrDuplicateEmail):
		return "El email ya está registrado"
	case errors.Is(err, database.ErrBookNotFound):
		return "Libro no encontrado"
	case errors.Is(err, database.ErrCustomerNotFound):
		return "Cliente no encontrado"
	case errors.Is(err, database.ErrAccountNotFound):
		return "Usuario no encontrado"
	case errors.Is(err, database.ErrSaleNotFound):
		return "Venta no encontrada"
	case errors.Is(err, database.ErrSelfDeactivation):
		return "No puedes eliminar tu propio usuario"
	case errors.Is(err, database.ErrInvalidQuantity):
		return "La cantidad debe ser mayor a 0"
	case errors.Is(err, database.ErrEmptyCart):
		return "El carrito está vacío"
	case errors.Is(err, database.ErrEmptySale):
		return "Agrega al menos un libro a la venta"
	case errors.Is(err, database.ErrOptimisticLockFailed):
		return "El registro fue modificado por otra persona, recarga e intenta de nuevo"
	case errors.Is(err, database.ErrInvalidCredentials):
		return "Credenciales incorrectas"
	case errors.Is(err, database.ErrUnauthenticated):
		return "Por favor inicia sesión para continuar"
	case errors.Is(err, database.ErrInvalidInput):
		return "Datos inválidos: " + err.Error()
	}
	return "Ocurrió un error interno, intenta más tarde"
}

// statusFor maps a domain error onto an HTTP status for JSON replies.
func statusFor(err error) int {
	switch {
	case database.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, database.ErrInsufficientStock), errors.Is(err, database.ErrOptimisticLockFailed),
		errors.Is(err, database.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrInvalidCredentials), errors.Is(err, database.ErrUnauthenticated):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// fail flashes the error and redirects. Unexpected errors are logged.
func (h *Handler) fail(c *gin.Context, funcName string, err error, path string) {
	h.logUnexpected(funcName, err)
	flash(c, session.FlashError, errorMessage(err))
	redirect(c, path)
}

// failJSON answers an asynchronous request with {success: false}.
func (h *Handler) failJSON(c *gin.Context, funcName string, err error) {
	h.logUnexpected(funcName, err)
	c.JSON(statusFor(err), gin.H{"success": false, "message": errorMessage(err)})
}

func (h *Handler) logUnexpected(funcName string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		config.LogError(h.logger, moduleName, funcName, "request failed", nil, err)
	}
}

var fieldLabels = map[string]string{
	"Email":      "email",
	"Password":   "contraseña",
	"Name":       "nombre",
	"Phone":      "teléfono",
	"Title":      "título",
	"Price":      "precio",
	"Stock":      "stock",
	"Year":       "año de publicación",
	"Role":       "rol",
	"CustomerID": "cliente",
	"BookID":     "libro",
	"Quantity":   "cantidad",
}

// validationMessages renders binding failures as one sentence per field.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Datos inválidos en el formulario"}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("El campo %s es obligatorio", label))
		case "email":
			messages = append(messages, "El email no tiene un formato válido")
		case "min", "gte":
			messages = append(messages, fmt.Sprintf("El campo %s debe ser al menos %s", label, fe.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("El campo %s no tiene un valor permitido", label))
		case "numeric":
			messages = append(messages, fmt.Sprintf("El campo %s debe ser numérico", label))
		default:
			messages = append(messages, fmt.Sprintf("El campo %s no es válido", label))
		}
	}
	sort.Strings(messages)
	return messages
}

// bind decodes the form into obj, flashing every validation failure and
// redirecting to path when it does not pass.
func bind(c *gin.Context, obj any, path string) bool {
	if err := c.ShouldBind(obj); err != nil {
		flash(c, session.FlashError, strings.Join(validationMessages(err), ". "))
		redirect(c, path)
		return false
	}
	return true
}

// normalizePhone checks a phone number against the configured region and
// returns it in international format. An empty phone stays empty.
func normalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}

	p, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return "", fmt.Errorf("%w: phone: %w", database.ErrInvalidInput, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("%w: phone number is not valid", database.ErrInvalidInput)
	}
	return libphonenumber.Format(p, libphonenumber.INTERNATIONAL), nil
}

// pathID parses the :id route parameter. On failure it flashes and redirects.
func pathID(c *gin.Context, path string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		flash(c, session.FlashError, "Identificador inválido")
		redirect(c, path)
		return uuid.Nil, false
	}
	return id, true
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}
