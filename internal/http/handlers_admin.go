package http

import (
	"net/http"
	"strconv"
)

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	lease, ok := leaseFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	students, err := s.store.ListStudents(r.Context(), lease.Querier(), listLimit(r))
	if err != nil {
		s.writeStoreError(w, tenant, err)
		return
	}
	writeData(w, http.StatusOK, students)
}

func (s *Server) handleListTeachers(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	lease, ok := leaseFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	teachers, err := s.store.ListTeachers(r.Context(), lease.Querier(), listLimit(r))
	if err != nil {
		s.writeStoreError(w, tenant, err)
		return
	}
	writeData(w, http.StatusOK, teachers)
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}
