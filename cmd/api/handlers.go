package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/engine/rag"
	"github.com/YorumAI/yorum-engine/engine/semantic"
	"github.com/YorumAI/yorum-engine/engine/sites"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the failure wire shape: {"success": false, "error": {...}}.
type errorResponse struct {
	Success bool            `json:"success"`
	Error   domain.Envelope `json:"error"`
}

// writeError maps the error taxonomy to an HTTP status and envelope.
// Validation and site errors are client faults; everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var ve *domain.ValidationError
	var se *domain.SiteError
	switch {
	case errors.As(err, &ve), errors.As(err, &se):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Success: false, Error: domain.NewEnvelope(err)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, domain.NewValidationError("body", "", errors.New("invalid JSON body")))
		return false
	}
	return true
}

// version is stamped via -ldflags at release time.
var version = "dev"

var startTime = time.Now()

func handleHealth(holder *semantic.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":    "healthy",
			"version":   version,
			"uptime":    time.Since(startTime).Round(time.Second).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"indexed":   false,
		}
		if ix := holder.Current(); ix != nil {
			resp["indexed"] = true
			resp["index_version"] = ix.Version
			resp["chunk_count"] = ix.ChunkCount()
			resp["review_count"] = ix.ReviewCount
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleValidateURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	// Invalid URLs are a well-formed 200 response here, not an error:
	// the endpoint's job is to report validity.
	res, err := sites.Resolve(req.URL)
	resp := map[string]any{"valid": res.Valid}
	if res.SiteName != "" {
		resp["site"] = res.SiteName
	}
	if res.Reason != "" {
		resp["reason"] = res.Reason
	}
	var se *domain.SiteError
	if errors.As(err, &se) {
		resp["supported_sites"] = se.SupportedSites
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleSites(w http.ResponseWriter, r *http.Request) {
	type siteInfo struct {
		Name       string   `json:"name"`
		Domain     string   `json:"domain"`
		Domains    []string `json:"domains"`
		ExampleURL string   `json:"example_url"`
	}
	all := sites.All()
	out := make([]siteInfo, len(all))
	for i, s := range all {
		out[i] = siteInfo{
			Name:       s.Name,
			Domain:     s.Domains[0],
			Domains:    s.Domains,
			ExampleURL: s.ExampleURL,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"supported_sites": out,
		"total":           len(out),
	})
}

func handleQuery(svc *rag.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q domain.Query
		if !decodeBody(w, r, &q) {
			return
		}
		result, err := svc.Answer(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleBatch(svc *rag.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Questions  []string `json:"questions"`
			ProductURL string   `json:"product_url"`
			MaxReviews int      `json:"max_reviews"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		result, err := svc.AnswerBatch(r.Context(), req.Questions, req.ProductURL, req.MaxReviews)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleSuggestions(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("partial_question")
	matches, total := rag.Suggest(partial)
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions":       matches,
		"total_suggestions": total,
	})
}
