package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

// maxRawOutput bounds how much oracle output is echoed back in an error body.
const maxRawOutput = 4096

// HTTPStatus maps a typed failure to its status code. Untyped errors are 500.
func HTTPStatus(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrInternal):
		return http.StatusInternalServerError
	case errors.Is(err, common.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, common.ErrDocumentFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrAnalysisOutput):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	Kind      string `json:"kind,omitempty"`
	ID        string `json:"id,omitempty"`
	RawOutput string `json:"raw_output,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	body := errorBody{Code: "INTERNAL", Message: "internal error", RequestID: common.RequestIDFromContext(r.Context())}

	var (
		app *common.AppError
		nf  *common.NotFoundError
		aoe *common.AnalysisOutputError
	)
	switch {
	case errors.As(err, &nf):
		body.Code, body.Message, body.Kind, body.ID = common.CodeNotFound, err.Error(), nf.Kind, nf.ID
	case errors.As(err, &aoe):
		body.Code, body.Message = common.CodeAnalysisOutput, aoe.Reason
		raw := aoe.Raw
		if len(raw) > maxRawOutput {
			raw = raw[:maxRawOutput]
		}
		body.RawOutput = string(raw)
	case errors.As(err, &app):
		body.Code, body.Message = app.Code, app.Message
	case status == http.StatusRequestEntityTooLarge:
		body.Code, body.Message = "TOO_LARGE", "upload exceeds the size limit"
	}

	log := s.logger
	if rid := body.RequestID; rid != "" {
		log = log.With("req_id", rid)
	}
	if status >= 500 {
		log.Error("http.error", "status", status, "error", err)
	} else {
		log.Debug("http.error", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return common.InvalidInputError("malformed JSON body: " + err.Error())
	}
	return nil
}
