package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// listNotifications takes the viewer from ?username=.
func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Notifications.List(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type seenRequest struct {
	Username string `json:"username"`
}

func (s *Server) markNotificationSeen(w http.ResponseWriter, r *http.Request) {
	var req seenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Notifications.MarkSeen(r.Context(), chi.URLParam(r, "notificationID"), req.Username); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
