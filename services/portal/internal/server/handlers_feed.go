package server

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nemsutalks/pkg/domain"
)

type postSentimentRequest struct {
	Content  string          `json:"content"`
	Category domain.Category `json:"category"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func postIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Feed())
}

func (s *Server) handlePostSentiment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.studentOnly(w, r)
	if !ok {
		return
	}
	var req postSentimentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.app.PostSentiment(r.Context(), req.Content, req.Category)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "portal.sentiment.post", "success", "user_id", p.User.ID, "record_id", res.Record.ID)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	p, ok := s.studentOnly(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	post, found := s.app.ToggleLike(postID, p.User.ID)
	if !found {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"post":  post,
		"liked": slices.Contains(post.LikedBy, p.User.ID),
	})
}

func (s *Server) handleIsLiked(w http.ResponseWriter, r *http.Request) {
	p, ok := s.studentOnly(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	if _, found := s.app.Post(postID); !found {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": s.app.IsLiked(postID, p.User.ID)})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.studentOnly(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	comment, found, err := s.app.AddComment(postID, p.User, req.Content)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	if err := s.app.DeleteComment(postID, chi.URLParam(r, "commentID"), principalFrom(r.Context())); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Announcements(principalFrom(r.Context()).Admin))
}

func (s *Server) handleAnnouncementsUnread(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.app.UnreadAnnouncements()})
}

func (s *Server) handleAnnouncementRead(w http.ResponseWriter, r *http.Request) {
	s.app.MarkAnnouncementRead(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type analyzeRequest struct {
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.app.AnalyzeSentiment(r.Context(), req.Content)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := s.app.Chat(r.Context(), req.Messages)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
