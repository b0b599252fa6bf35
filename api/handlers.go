package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"procurement-engine/decision/catalog"
	"procurement-engine/decision/negotiation"
	"procurement-engine/decision/procurement"
)

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"name":    "Procurement Agent API",
		"version": Version,
		"status":  "operational",
		"endpoints": map[string]string{
			"procurement":        "/api/procurement",
			"catalog":            "/api/catalog",
			"negotiate":          "/api/negotiate",
			"optimize":           "/api/optimize",
			"vendor_constraints": "/api/vendor-constraints",
			"metrics":            "/metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"catalog_loaded": s.catalog.Len() > 0,
		"catalog_items":  s.catalog.Len(),
		"version":        Version,
		"uptime":         time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.catalog.Len() == 0 {
		s.jsonError(w, http.StatusServiceUnavailable, "catalog is empty")
		return
	}
	if err := s.ready(r.Context()); err != nil {
		s.jsonError(w, http.StatusServiceUnavailable, "not ready: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"version": Version,
		"service": "procurement-api",
	})
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	summaries := s.catalog.Components()
	names := make([]string, len(summaries))
	details := make(map[string]catalog.ComponentSummary, len(summaries))
	for i, c := range summaries {
		names[i] = c.Component
		details[c.Component] = c
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"components":  names,
		"details":     details,
		"total_items": s.catalog.Len(),
	})
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	summaries := s.catalog.VendorSummaries()
	details := make(map[string]catalog.VendorSummary, len(summaries))
	for _, v := range summaries {
		details[v.Vendor] = v
	}
	vendors := s.catalog.ListVendors()

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"vendors":       vendors,
		"details":       details,
		"total_vendors": len(vendors),
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	items := s.catalog.Items()
	if component := r.URL.Query().Get("component"); component != "" {
		items = s.catalog.ByComponent(component)
	}
	if items == nil {
		items = []catalog.Item{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.jsonError(w, http.StatusBadRequest, "q is required")
		return
	}

	topK := 5
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.jsonError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		topK = n
	}

	matches := s.catalog.SearchSimilar(query, topK)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": matches,
		"count":   len(matches),
	})
}

// =============================================================================
// PROCUREMENT ENDPOINTS
// =============================================================================

func (s *Server) handleProcurement(w http.ResponseWriter, r *http.Request) {
	var req ProcurementRequest
	if !s.decode(w, r, &req) {
		return
	}

	planReq, opts := req.plan()
	result, err := s.engine.Plan(r.Context(), planReq, opts)
	if err != nil {
		s.planError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	var req NegotiationRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.jsonResponse(w, http.StatusOK, negotiation.Negotiate(*req.SelectedItem, req.Request))
}

func (s *Server) handleVendorNegotiation(w http.ResponseWriter, r *http.Request) {
	var req VendorNegotiationRequest
	if !s.decode(w, r, &req) {
		return
	}

	gen, err := s.vendors(req.LLMProvider, req.APIKey)
	if err != nil {
		s.jsonError(w, procurement.StatusOf(err), err.Error())
		return
	}
	agent := negotiation.NewVendorAgent(gen)

	var reply negotiation.Message
	conversation := req.Conversation
	if req.Message == "" {
		reply, err = agent.Open(r.Context(), *req.SelectedItem, req.Request)
	} else {
		reply, err = agent.Respond(r.Context(), *req.SelectedItem, req.Message, conversation)
		conversation = append(conversation, negotiation.Message{
			Role:      negotiation.RoleBuyer,
			Message:   req.Message,
			Timestamp: time.Now(),
		})
	}
	if err != nil {
		s.jsonError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, VendorReply{
		Reply:        reply,
		Conversation: append(conversation, reply),
	})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req NegotiationRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.jsonResponse(w, http.StatusOK, s.optimizer.Optimize(*req.SelectedItem, req.Request))
}

// =============================================================================
// VENDOR CONSTRAINT ENDPOINTS
// =============================================================================

func (s *Server) handlePostConstraints(w http.ResponseWriter, r *http.Request) {
	var req ConstraintsRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.jsonResponse(w, http.StatusOK, s.constraints.Post(req.RequestID, req.Candidates, req.Constraints))
}

func (s *Server) handleBulkConstraints(w http.ResponseWriter, r *http.Request) {
	var req BulkConstraintsRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.jsonResponse(w, http.StatusOK, s.constraints.Bulk(req.Requests))
}

func (s *Server) handleGetConstraints(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	c, ok := s.constraints.Get(requestID)
	if !ok {
		s.jsonError(w, http.StatusNotFound, fmt.Sprintf("no constraints recorded for request %s", requestID))
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"request_id":  requestID,
		"constraints": c,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. It writes the error response and
// returns false when the body is unusable.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		s.jsonError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gte", "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func (s *Server) planError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Error:  err.Error(),
		Status: procurement.StatusOf(err),
	}

	var pe *procurement.Error
	if errors.As(err, &pe) {
		if pe.Message != "" {
			resp.Error = pe.Message
		}
		resp.Trace = pe.Trace
		resp.Metrics = pe.Metrics
		if errors.Is(err, procurement.ErrNoCandidates) {
			resp.Searched = &pe.Searched
			resp.Filtered = &pe.Filtered
		}
	}
	if resp.Status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("procurement failed")
	}

	s.jsonResponse(w, resp.Status, resp)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{
		Error:  message,
		Status: status,
	})
}
