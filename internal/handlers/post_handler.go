package handlers

import (
	"net/http"
	"strings"

	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// PostHandler handles HTTP requests related to posts, likes and saves.
type PostHandler struct {
	Service     *services.PostService
	MaxFileSize int64
}

func NewPostHandler(service *services.PostService, maxFileSize int64) *PostHandler {
	return &PostHandler{Service: service, MaxFileSize: maxFileSize}
}

// splitList accepts a JSON-style array field sent as repeated values or one
// comma separated value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// CreatePostHandler accepts JSON or a multipart form with media files. POST /posts
func (h *PostHandler) CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var (
		in    services.PostInput
		files []services.Upload
	)
	if isMultipart(r) {
		if err := parseMultipart(w, r, h.MaxFileSize); err != nil {
			writeError(w, r, err)
			return
		}
		in.Content, _ = formValue(r, "content")
		in.Tags = splitList(r.MultipartForm.Value["tags"])
		in.Mentions = splitList(r.MultipartForm.Value["mentions"])

		var closer func()
		var err error
		files, closer, err = uploads(r, "media", h.MaxFileSize)
		defer closer()
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.Service.CreatePost(r.Context(), claims.Address, in, files)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"author": claims.Address,
		"postID": post.ID.Hex(),
	}).Info("Post successfully created")
	writeJSON(w, http.StatusCreated, post)
}

// GetPostHandler returns one post and counts the view. GET /posts/{id}
func (h *PostHandler) GetPostHandler(w http.ResponseWriter, r *http.Request) {
	post, err := h.Service.GetPost(r.Context(), mux.Vars(r)["id"], middleware.ViewerAddress(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePostHandler soft-deletes the caller's post. DELETE /posts/{id}
func (h *PostHandler) DeletePostHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeletePost(r.Context(), mux.Vars(r)["id"], claims.Address); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Post deleted successfully")
}

// ListPostsHandler lists posts, filtered by ?author= or ?tag= when given. GET /posts
func (h *PostHandler) ListPostsHandler(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.ViewerAddress(r.Context())
	page := pageFromRequest(r)

	var (
		list *services.PostList
		err  error
	)
	q := r.URL.Query()
	switch {
	case q.Get("author") != "":
		list, err = h.Service.ListByAuthor(r.Context(), q.Get("author"), viewer, page)
	case q.Get("tag") != "":
		list, err = h.Service.ListByTag(r.Context(), q.Get("tag"), viewer, page)
	default:
		list, err = h.Service.ListPosts(r.Context(), viewer, page)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PostHandler) TrendingHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Trending(r.Context(), middleware.ViewerAddress(r.Context()), pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// FeedHandler lists posts of followed accounts. GET /posts/feed
func (h *PostHandler) FeedHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.Service.Feed(r.Context(), claims.Address, pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PostHandler) SavedHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.Service.SavedPosts(r.Context(), claims.Address, pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// postAction runs a like/save style toggle and answers with message on success.
func (h *PostHandler) postAction(action func(r *http.Request, user, id string) error, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}
		if err := action(r, claims.Address, mux.Vars(r)["id"]); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, message)
	}
}

func (h *PostHandler) LikeHandler() http.HandlerFunc {
	return h.postAction(func(r *http.Request, user, id string) error {
		return h.Service.LikePost(r.Context(), user, id)
	}, "Post liked successfully")
}

func (h *PostHandler) UnlikeHandler() http.HandlerFunc {
	return h.postAction(func(r *http.Request, user, id string) error {
		return h.Service.UnlikePost(r.Context(), user, id)
	}, "Post unliked successfully")
}

func (h *PostHandler) SaveHandler() http.HandlerFunc {
	return h.postAction(func(r *http.Request, user, id string) error {
		return h.Service.SavePost(r.Context(), user, id)
	}, "Post saved successfully")
}

func (h *PostHandler) UnsaveHandler() http.HandlerFunc {
	return h.postAction(func(r *http.Request, user, id string) error {
		return h.Service.UnsavePost(r.Context(), user, id)
	}, "Post removed from saved")
}
