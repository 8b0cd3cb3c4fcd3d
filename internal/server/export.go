package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) exportVersion(w http.ResponseWriter, r *http.Request) {
	regID, versionID := chi.URLParam(r, "regID"), chi.URLParam(r, "versionID")
	b, err := s.svc.Export.ExportVersionXLSX(r.Context(), regID, versionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("changes_%s_%s.xlsx", regID, versionID)))
	_, _ = w.Write(b)
}
