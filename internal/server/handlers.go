package server

import (
	"net/http"

	"github.com/corvohq/perch/pkg/queue"
)

type pushRequest struct {
	Ref string `json:"ref"`
}

type popResponse struct {
	Ref string `json:"ref"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return
	}
	if err := s.queue.Push(r.Context(), req.Ref); err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "queued"})
}

func (s *Server) handlePop(w http.ResponseWriter, r *http.Request) {
	ref, ok, err := s.queue.Pop(r.Context())
	if err != nil {
		writeQueueError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, popResponse{Ref: ref})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.queue.Size(r.Context())
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeQueueError(w http.ResponseWriter, err error) {
	if queue.IsInvalidInput(err) {
		writeError(w, http.StatusBadRequest, err.Error(), string(queue.ErrorCodeInvalidInput))
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error(), string(queue.ErrorCodeStorage))
}
