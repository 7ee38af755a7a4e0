package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zuricore/identity-service/app/dto"
	"github.com/zuricore/identity-service/app/errors"
	idmw "github.com/zuricore/identity-service/app/middleware"
	"github.com/zuricore/identity-service/app/models"
)

func userIDParam(r *http.Request) (int64, *errors.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewBadRequest("invalid user id")
	}
	return id, nil
}

// canTouchUser allows the account owner and admins.
func canTouchUser(r *http.Request, targetID int64) bool {
	userID, ok := idmw.UserIDFromContext(r.Context())
	if !ok {
		return false
	}
	if userID == targetID {
		return true
	}
	roleID, _ := idmw.RoleIDFromContext(r.Context())
	return roleID == models.RoleAdmin
}

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, appErr := app.identity.ListUsers(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accounts := make([]dto.AccountResponse, 0, len(users))
	for i := range users {
		accounts = append(accounts, dto.NewAccountResponse(&users[i]))
	}
	writeSuccess(w, http.StatusOK, "users listed", accounts)
}

func (app *application) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idmw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewUnauthorized("user not found in context"))
		return
	}

	user, appErr := app.identity.GetUser(r.Context(), userID)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "user found", dto.NewAccountResponse(user))
}

func (app *application) getUserHandler(w http.ResponseWriter, r *http.Request) {
	id, appErr := userIDParam(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	if !canTouchUser(r, id) {
		writeError(w, errors.NewForbidden("insufficient permissions"))
		return
	}

	user, appErr := app.identity.GetUser(r.Context(), id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "user found", dto.NewAccountResponse(user))
}

func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, appErr := userIDParam(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	if !canTouchUser(r, id) {
		writeError(w, errors.NewForbidden("insufficient permissions"))
		return
	}

	var req dto.UpdateUserRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.FirstName = sanitizeName(req.FirstName, 100)
	req.LastName = sanitizeName(req.LastName, 100)
	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	user, appErr := app.identity.UpdateUser(r.Context(), id, req.FirstName, req.LastName)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "user updated", dto.NewAccountResponse(user))
}

func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, appErr := userIDParam(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if appErr := app.identity.DeleteUser(r.Context(), id); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "user deleted", nil)
}

func (app *application) listRolesHandler(w http.ResponseWriter, r *http.Request) {
	roles, appErr := app.identity.ListRoles(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	out := make([]dto.RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, dto.RoleResponse{ID: role.ID, Name: role.Name})
	}
	writeSuccess(w, http.StatusOK, "roles listed", out)
}
