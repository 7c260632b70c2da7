package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/go-chi/chi/v5"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type depositRequest struct {
	LockerID *int `json:"locker_id"`
}

type lockerDTO struct {
	ID           int    `json:"id"`
	Status       string `json:"status"`
	Occupied     bool   `json:"occupied"`
	Closed       bool   `json:"closed"`
	SensorClosed bool   `json:"sensor_closed"`
	OwnerID      *int64 `json:"owner_id"`
	Phase        string `json:"phase"`
}

type actionResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	LockerID *int   `json:"locker_id,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "expect JSON")
		return
	}

	u, err := s.users.Register(r.Context(), in.Username, in.Password, in.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info(r.Context(), "Registered", "username", u.UserName)
	writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "expect JSON")
		return
	}

	token, err := s.users.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleListLockers(w http.ResponseWriter, r *http.Request) {
	views := s.lockers.ListLockers(r.Context())
	out := make([]lockerDTO, 0, len(views))
	for _, v := range views {
		out = append(out, lockerDTO{
			ID:           v.ID,
			Status:       v.Status.String(),
			Occupied:     v.Occupied,
			Closed:       v.Closed,
			SensorClosed: v.DoorClosed,
			OwnerID:      v.OwnerID,
			Phase:        v.Phase.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"lockers": out})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var in depositRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "expect JSON")
		return
	}
	if in.LockerID == nil {
		writeError(w, http.StatusBadRequest, "no locker_id")
		return
	}

	id := *in.LockerID
	if err := s.lockers.ReserveAndOpen(r.Context(), tokenFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Success:  true,
		Message:  fmt.Sprintf("Locker %d reserved & open", id+1),
		LockerID: &id,
	})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerID(w, r)
	if !ok {
		return
	}
	if err := s.lockers.Unlock(r.Context(), tokenFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "Opened"})
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerID(w, r)
	if !ok {
		return
	}
	if err := s.lockers.ReturnLocker(r.Context(), tokenFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: fmt.Sprintf("Locker %d returned and free", id+1)})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerID(w, r)
	if !ok {
		return
	}
	if err := s.lockers.LockAnyone(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "Closed"})
}

func lockerID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad locker id")
		return 0, false
	}
	return id, true
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrHardwareFault):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = common.ErrInternal.Error()
	} else {
		s.log.Info(r.Context(), "request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	writeError(w, code, msg)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
