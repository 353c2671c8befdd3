package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/safar/go-bookstore/internal/store"
)

const accountsPath = "/usuarios"

type accountForm struct {
	Name     string `form:"nombre" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password"`
	Role     string `form:"rol" binding:"omitempty,oneof=administrador empleado administrator employee"`
}

// role accepts both the Spanish labels used by the forms and the stored values.
func (f accountForm) role() models.Role {
	switch f.Role {
	case "administrador", string(models.RoleAdministrator):
		return models.RoleAdministrator
	}
	return models.RoleEmployee
}

func (f accountForm) input() store.AccountInput {
	return store.AccountInput{
		Name:     f.Name,
		Email:    f.Email,
		Password: f.Password,
		Role:     f.role(),
	}
}

func (h *Handler) ListAccounts(c *gin.Context) {
	page, pageSize := store.NormalizePage(queryPage(c), 0)

	result, err := store.ListAccounts(c.Request.Context(), h.db, page, pageSize)
	if err != nil {
		h.fail(c, "ListAccounts", err, "/dashboard")
		return
	}

	view(c, "usuarios", gin.H{"accounts": result})
}

func (h *Handler) CreateAccount(c *gin.Context) {
	var form accountForm
	if !bind(c, &form, accountsPath) {
		return
	}

	account, err := store.CreateAccount(c.Request.Context(), h.db, form.input())
	if err != nil {
		h.fail(c, "CreateAccount", err, accountsPath)
		return
	}

	flash(c, session.FlashSuccess, "Usuario "+account.Name+" creado exitosamente")
	redirect(c, accountsPath)
}

func (h *Handler) EditAccountPage(c *gin.Context) {
	id, ok := pathID(c, accountsPath)
	if !ok {
		return
	}

	account, err := store.GetAccount(c.Request.Context(), h.db, id)
	if err != nil {
		h.fail(c, "EditAccountPage", err, accountsPath)
		return
	}

	view(c, "editar_usuario", gin.H{"account": account})
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	id, ok := pathID(c, accountsPath)
	if !ok {
		return
	}
	editPath := accountsPath + "/editar/" + id.String()

	var form accountForm
	if !bind(c, &form, editPath) {
		return
	}

	if _, err := store.UpdateAccount(c.Request.Context(), h.db, id, form.input()); err != nil {
		h.fail(c, "UpdateAccount", err, editPath)
		return
	}

	flash(c, session.FlashSuccess, "Usuario actualizado exitosamente")
	redirect(c, accountsPath)
}

func (h *Handler) DeactivateAccount(c *gin.Context) {
	id, ok := pathID(c, accountsPath)
	if !ok {
		return
	}

	acting := session.FromContext(c).StaffID
	if err := store.DeactivateAccount(c.Request.Context(), h.db, id, *acting); err != nil {
		h.fail(c, "DeactivateAccount", err, accountsPath)
		return
	}

	flash(c, session.FlashSuccess, "Usuario eliminado exitosamente")
	redirect(c, accountsPath)
}
