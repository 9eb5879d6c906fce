package handlers

import (
	"net/http"

	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/gorilla/mux"
)

type SearchHandler struct {
	Service *services.SearchService
}

func NewSearchHandler(service *services.SearchService) *SearchHandler {
	return &SearchHandler{Service: service}
}

// SearchHandler GET /search?query=&type=&limit=
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Service.Search(r.Context(), q.Get("query"), q.Get("type"), middleware.ViewerAddress(r.Context()), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SearchUsersHandler GET /search/users?query=
func (h *SearchHandler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.SearchUsers(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// TagPostsHandler GET /search/tags/{tag}
func (h *SearchHandler) TagPostsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.PostsByTag(r.Context(), mux.Vars(r)["tag"], middleware.ViewerAddress(r.Context()), pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
