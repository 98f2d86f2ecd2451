package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/rag"

	"github.com/gorilla/mux"
)

type RAGHandler struct {
	service *rag.Service
}

func NewRAGHandler(service *rag.Service) *RAGHandler {
	return &RAGHandler{service: service}
}

func (h *RAGHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/rag/query", h.Query).Methods("POST")
}

// Query answers a question from the product knowledge base alone, without
// running the agent loop.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received RAG query request")

	var req models.RAGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode RAG request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.Question == "" {
		log.Printf("[ERROR] No question provided in RAG request")
		h.writeErrorResponse(w, http.StatusBadRequest, "A question is required")
		return
	}

	result, err := h.service.Answer(r.Context(), req.Question)
	if err != nil {
		log.Printf("[ERROR] RAG query failed: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[INFO] RAG query completed with %d context passages", len(result.Context))
	h.writeJSONResponse(w, http.StatusOK, result)
}

func (h *RAGHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *RAGHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
