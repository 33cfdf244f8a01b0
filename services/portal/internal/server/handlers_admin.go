package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nemsutalks/pkg/domain"
)

func (s *Server) handleAdminAnnouncements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Announcements(true))
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req domain.NewAnnouncement
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := s.app.CreateAnnouncement(req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	s.app.DeleteAnnouncement(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublishAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, ok := s.app.PublishAnnouncement(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "announcement not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSentiments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Sentiments())
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	item, ok := s.app.Sentiment(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "sentiment not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type statusRequest struct {
	Status domain.SentimentStatus `json:"status"`
}

func (s *Server) handleSentimentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := chi.URLParam(r, "id")
	found, err := s.app.UpdateSentimentStatus(id, req.Status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "sentiment not found")
		return
	}
	item, _ := s.app.Sentiment(id)
	s.audit(r, "portal.sentiment.status", "success", "record_id", id, "status", string(req.Status))
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Stats())
}

func (s *Server) handleTrend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Trend())
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Notifications())
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, _ *http.Request) {
	s.app.ClearNotifications()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotificationsUnread(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.app.UnreadNotifications()})
}

func (s *Server) handleNotificationsReadAll(w http.ResponseWriter, _ *http.Request) {
	s.app.MarkAllNotificationsRead()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	s.app.MarkNotificationRead(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	s.app.DeleteNotification(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Settings

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.app.UpdateSettings(req))
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.SaveSettings())
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	s.audit(r, "portal.settings.reset", "success")
	writeJSON(w, http.StatusOK, s.app.ResetSettings())
}

func (s *Server) handleClearSettings(w http.ResponseWriter, r *http.Request) {
	s.audit(r, "portal.settings.clear", "success")
	writeJSON(w, http.StatusOK, s.app.ClearSettings())
}

func (s *Server) handleExportSettings(w http.ResponseWriter, r *http.Request) {
	body, err := s.app.ExportSettings()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="nemsu-settings.json"`)
	_, _ = w.Write(body)
}

func (s *Server) handleImportSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.app.ImportSettings(raw); err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "portal.settings.import", "success")
	writeJSON(w, http.StatusOK, s.app.Settings())
}

type backupRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	// An empty body means a default backup name.
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.app.CreateSettingsBackup(req.Name))
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	if !s.app.RestoreSettingsBackup(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}
	writeJSON(w, http.StatusOK, s.app.Settings())
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	s.app.DeleteSettingsBackup(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
