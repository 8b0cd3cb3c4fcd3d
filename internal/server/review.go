package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/review"
)

func changeParams(r *http.Request) (regID, versionID, changeID string) {
	return chi.URLParam(r, "regID"), chi.URLParam(r, "versionID"), chi.URLParam(r, "changeID")
}

func (s *Server) setChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	regID, versionID, changeID := changeParams(r)
	c, err := s.svc.Review.SetChangeStatus(r.Context(), regID, versionID, changeID, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type editChangeRequest struct {
	Summary        *string `json:"summary"`
	Analysis       *string `json:"analysis"`
	Change         *string `json:"change"`
	BeforeQuote    *string `json:"before_quote"`
	AfterQuote     *string `json:"after_quote"`
	Classification *string `json:"classification"`
}

func (s *Server) editChange(w http.ResponseWriter, r *http.Request) {
	var req editChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	regID, versionID, changeID := changeParams(r)
	c, err := s.svc.Review.EditChange(r.Context(), regID, versionID, changeID, review.ChangeEdit(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) addChangeComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	regID, versionID, changeID := changeParams(r)
	ctx := common.WithUsername(r.Context(), req.Username)
	c, err := s.svc.Review.AddChangeComment(ctx, regID, versionID, changeID, req.Username, req.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
