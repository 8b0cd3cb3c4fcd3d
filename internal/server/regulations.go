package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/regulations"
)

func (s *Server) listRegulations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.svc.Regulations.ListRegulations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// createRegulation takes multipart fields title, version and file.
func (s *Server) createRegulation(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reg, err := s.svc.Regulations.IngestFirstVersion(r.Context(), r.FormValue("title"), r.FormValue("version"), up)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// addVersion takes multipart fields version and file.
func (s *Server) addVersion(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.svc.Regulations.IngestNextVersion(r.Context(), chi.URLParam(r, "regID"), r.FormValue("version"), up)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) getRegulation(w http.ResponseWriter, r *http.Request) {
	reg, err := s.svc.Regulations.GetRegulation(r.Context(), chi.URLParam(r, "regID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) deleteRegulation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Regulations.DeleteRegulation(r.Context(), chi.URLParam(r, "regID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) setRegulationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	reg, err := s.svc.Regulations.SetRegulationStatus(r.Context(), chi.URLParam(r, "regID"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type commentRequest struct {
	Username string `json:"username"`
	Comment  string `json:"comment"`
}

func (s *Server) addRegulationComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := common.WithUsername(r.Context(), req.Username)
	c, err := s.svc.Regulations.AddRegulationComment(ctx, chi.URLParam(r, "regID"), req.Username, req.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Regulations.GetVersion(r.Context(), chi.URLParam(r, "regID"), chi.URLParam(r, "versionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteVersion(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Regulations.DeleteVersion(r.Context(), chi.URLParam(r, "regID"), chi.URLParam(r, "versionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) downloadVersion(w http.ResponseWriter, r *http.Request) {
	v, data, err := s.svc.Regulations.GetVersionFile(r.Context(), chi.URLParam(r, "regID"), chi.URLParam(r, "versionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.FileName))
	_, _ = w.Write(data)
}

// readUpload pulls the "file" part out of a bounded multipart body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (regulations.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return regulations.Upload{}, err
		}
		return regulations.Upload{}, common.InvalidInputError("expected a multipart form with a file field")
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return regulations.Upload{}, common.InvalidInputError("file is required")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return regulations.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return regulations.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
