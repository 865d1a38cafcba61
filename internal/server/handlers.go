package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/veiltext/veiltext/internal/audit"
	"github.com/veiltext/veiltext/internal/cache"
	"github.com/veiltext/veiltext/internal/pii"
	"github.com/veiltext/veiltext/internal/websocket"
)

// processingFailureMessage is returned verbatim in place of the rewritten text
// when the engine fails. Clients see no internal detail.
const processingFailureMessage = "Error processing PII request. Please check your input and try again."

// scrubRequest is the body of POST /v1/scrub.
type scrubRequest struct {
	Text       string   `json:"text"`
	Fields     []string `json:"fields"`
	PrivPolicy string   `json:"priv_policy"`
}

// scrubResponse is the reply: the rewritten text and one [kind, original,
// replacement] triple per substitution, in application order.
type scrubResponse struct {
	Redacted string      `json:"redacted"`
	Map      [][3]string `json:"map"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleScrub runs the detection-and-transformation pipeline for one request.
func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	defaults := s.currentEngineDefaults()
	r.Body = http.MaxBytesReader(w, r.Body, defaults.MaxTextBytes)

	var req scrubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			log.Warn("Request body too large", zap.Int64("limit", maxBytesErr.Limit))
			writeJSON(w, http.StatusRequestEntityTooLarge,
				errorResponse{Error: "request body too large"})
			return
		}
		log.Warn("Malformed request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = defaults.DefaultFields
	}
	policyName := req.PrivPolicy
	if policyName == "" {
		policyName = defaults.DefaultPolicy
	}

	policy, err := pii.ParsePolicy(policyName)
	if err != nil {
		log.Warn("Invalid privacy policy", zap.String("priv_policy", policyName))
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Error: fmt.Sprintf("invalid privacy policy: %s", policyName)})
		return
	}

	atomic.AddInt64(&s.totalRequests, 1)

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(req.Text, fields, policy.String())
		if cached, _ := s.cache.Get(r.Context(), cacheKey); cached != nil {
			writeJSON(w, http.StatusOK, scrubResponse{
				Redacted: cached.Redacted,
				Map:      cached.Map,
			})
			return
		}
	}

	result, err := s.engine.Transform(req.Text, fields, policy)
	if err != nil {
		log.Error("Transformation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, scrubResponse{
			Redacted: processingFailureMessage,
			Map:      [][3]string{},
		})
		return
	}

	resp := scrubResponse{
		Redacted: result.Text,
		Map:      make([][3]string, 0, len(result.Records)),
	}
	for _, record := range result.Records {
		resp.Map = append(resp.Map, [3]string{record.Kind, record.Original, record.Replacement})
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), cacheKey, &cache.CachedResponse{
			Redacted: resp.Redacted,
			Map:      resp.Map,
		}); err != nil {
			log.Warn("Failed to cache response", zap.Error(err))
		}
	}

	s.reportFindings(requestID, policy, result, time.Since(start))

	writeJSON(w, http.StatusOK, resp)
}

// reportFindings fans detection aggregates out to the log, the event stream,
// and the audit store. Only kind counts leave the handler; matched values stay
// in the response.
func (s *Server) reportFindings(requestID string, policy pii.Policy, result *pii.Result, duration time.Duration) {
	if len(result.Records) == 0 && len(result.Unknown) == 0 {
		return
	}

	atomic.AddInt64(&s.totalDetections, int64(len(result.Records)))

	kindCounts := make(map[string]int)
	for _, record := range result.Records {
		kindCounts[record.Kind]++
	}

	s.logger.WithRequestID(requestID).Info("PII detected",
		zap.String("policy", policy.String()),
		zap.Int("findings", len(result.Records)),
		zap.Any("kind_counts", kindCounts),
		zap.Strings("unknown_fields", result.Unknown),
	)

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeDetection,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.DetectionEvent{
			RequestID:     requestID,
			Policy:        policy.String(),
			KindCounts:    kindCounts,
			TotalFindings: len(result.Records),
			UnknownFields: result.Unknown,
			ProcessingMS:  float64(duration.Nanoseconds()) / 1e6,
		},
	})

	if s.auditStore != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.auditStore.Record(ctx, &audit.Event{
				RequestID:  requestID,
				Policy:     policy.String(),
				KindCounts: kindCounts,
				Unknown:    len(result.Unknown),
				Duration:   duration,
			}); err != nil {
				s.logger.Error("Audit record failed", zap.Error(err))
			}
		}()
	}
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, len(pii.AllKinds()))
	for _, kind := range pii.AllKinds() {
		kinds = append(kinds, kind.String())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":           "veiltext",
		"version":        Version,
		"default_policy": s.config.Engine.DefaultPolicy,
		"kinds":          kinds,
		"cache_enabled":  s.config.Cache.Enabled,
		"audit_enabled":  s.config.Audit.Enabled,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
