package handlers

import (
	"net/http"

	"github.com/dxsocial/backend/internal/services"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type CommentHandler struct {
	Service     *services.CommentService
	MaxFileSize int64
}

func NewCommentHandler(service *services.CommentService, maxFileSize int64) *CommentHandler {
	return &CommentHandler{Service: service, MaxFileSize: maxFileSize}
}

// CreateCommentHandler adds a comment or reply to a post. POST /posts/{id}/comments
func (h *CommentHandler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var (
		in    services.CommentInput
		files []services.Upload
	)
	if isMultipart(r) {
		if err := parseMultipart(w, r, h.MaxFileSize); err != nil {
			writeError(w, r, err)
			return
		}
		in.Content, _ = formValue(r, "content")
		in.ParentID, _ = formValue(r, "parentId")
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

	comment, err := h.Service.CreateComment(r.Context(), claims.Address, mux.Vars(r)["id"], in, files)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"author":    claims.Address,
		"commentID": comment.ID.Hex(),
	}).Info("Comment created")
	writeJSON(w, http.StatusCreated, comment)
}

// ListCommentsHandler lists top-level comments of a post. GET /posts/{id}/comments
func (h *CommentHandler) ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListComments(r.Context(), mux.Vars(r)["id"], pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListRepliesHandler lists replies to a comment. GET /comments/{id}/replies
func (h *CommentHandler) ListRepliesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListReplies(r.Context(), mux.Vars(r)["id"], pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CommentHandler) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteComment(r.Context(), mux.Vars(r)["id"], claims.Address); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Comment deleted successfully")
}
