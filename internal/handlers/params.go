package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"lancebill-backend/internal/middleware"
)

var errNoAccount = errors.New("no account in context")

func ownerID(r *http.Request) (int, error) {
	id, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		return 0, errNoAccount
	}
	return id, nil
}

func pathParam(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}
