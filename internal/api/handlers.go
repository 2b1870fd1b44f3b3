package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tms/internal/models"
	"tms/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Auth.Logout(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (s *HTTPServer) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Ledger.Equipment(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if status := models.EquipmentStatus(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported status filter %q", status))
			return
		}
		filtered := make([]models.Equipment, 0, len(items))
		for _, it := range items {
			if it.Status == status {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": items})
}

func (s *HTTPServer) handleRegisterEquipment(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterEquipmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	eq, err := s.deps.Ledger.RegisterEquipment(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eq)
}

func (s *HTTPServer) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	eq, err := s.deps.Ledger.GetEquipment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *HTTPServer) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateEquipmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	eq, err := s.deps.Ledger.UpdateEquipment(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *HTTPServer) handleSetEquipmentStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.EquipmentStatus `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	eq, err := s.deps.Ledger.SetEquipmentStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *HTTPServer) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.deps.Ledger.People(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("active") == "true" {
		active := make([]models.Person, 0, len(people))
		for _, p := range people {
			if p.IsActive {
				active = append(active, p)
			}
		}
		people = active
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": people})
}

func (s *HTTPServer) handleRegisterPerson(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterPersonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.deps.Ledger.RegisterPerson(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *HTTPServer) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Ledger.GetPerson(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeletePerson(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handlePersonOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.deps.Ledger.PersonOrders(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *HTTPServer) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []models.Order
		err    error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "":
		orders, err = s.deps.Ledger.Orders(r.Context())
	case string(models.OrderActive):
		orders, err = s.deps.Ledger.ActiveOrders(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported status filter %q", status))
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *HTTPServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(w, r)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.CreatedBy = user.Username

	order, err := s.deps.Ledger.CreateOrder(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *HTTPServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.deps.Ledger.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(w, r); !ok {
		return
	}

	var req models.CompleteOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.OrderID = r.PathValue("id")
	if req.ReturnDate.IsZero() {
		req.ReturnDate = time.Now()
	}

	order, err := s.deps.Ledger.CompleteOrder(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Ledger.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Exporter.WriteLedger(r.Context(), &buf); err != nil {
		s.logger.Error().Err(err).Msg("ledger export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeXLSX(w, "ledger.xlsx", buf.Bytes())
}

func (s *HTTPServer) handlePersonReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.deps.Ledger.GetPerson(r.Context(), id); err != nil {
		history, herr := s.deps.Ledger.PersonOrders(r.Context(), id)
		if herr != nil || len(history) == 0 {
			s.writeServiceError(w, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := s.deps.Exporter.WritePersonReport(r.Context(), id, &buf); err != nil {
		s.logger.Error().Err(err).Str("person_id", id).Msg("person report failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeXLSX(w, fmt.Sprintf("report_%s.xlsx", id), buf.Bytes())
}

// sessionUser writes 401 when nobody is logged in.
func (s *HTTPServer) sessionUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := s.deps.Auth.CurrentUser(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return nil, false
	}
	return user, true
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.FieldErrors,
		})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEquipmentUnavailable),
		errors.Is(err, service.ErrEquipmentCheckedOut),
		errors.Is(err, service.ErrOrderAlreadyCompleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func userResponse(u *models.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"full_name":  u.FullName,
		"role":       u.Role,
		"role_label": u.Role.Label(),
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(filename, `"`, "")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
