package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jaxonc/AIE7-Certification-Challenge/db"
	"github.com/jaxonc/AIE7-Certification-Challenge/models"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/upc"

	"github.com/gorilla/mux"
)

type DocumentHandler struct {
	repo db.ProductDocumentRepository
}

func NewDocumentHandler(repo db.ProductDocumentRepository) *DocumentHandler {
	return &DocumentHandler{repo: repo}
}

func (h *DocumentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/documents", h.CreateDocument).Methods("POST")
	router.HandleFunc("/api/documents", h.GetAllDocuments).Methods("GET")
	router.HandleFunc("/api/documents/upc/{upc}", h.GetDocumentsByUPC).Methods("GET")
}

// CreateDocument stores a product fact sheet. The document is only picked up
// by retrieval after the next cmd/indexdocs run.
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received create document request")

	var req models.CreateProductDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode document request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.Title == "" || req.Content == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	digits := upc.Normalize(req.UPC)
	if req.UPC != "" && !upc.Validate(digits) {
		h.writeErrorResponse(w, http.StatusBadRequest, "UPC failed checksum validation")
		return
	}

	doc := &models.ProductDocument{
		UPC:     digits,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := h.repo.CreateProductDocument(doc); err != nil {
		log.Printf("[ERROR] Failed to create product document: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[INFO] Created product document ID %d", doc.ID)
	h.writeJSONResponse(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) GetAllDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.repo.GetAllProductDocuments()
	if err != nil {
		log.Printf("[ERROR] Failed to list product documents: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSONResponse(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetDocumentsByUPC(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	digits := upc.Normalize(vars["upc"])

	docs, err := h.repo.GetProductDocumentByUPC(digits)
	if err != nil {
		log.Printf("[ERROR] Failed to get product documents for UPC %s: %v", digits, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if len(docs) == 0 {
		h.writeErrorResponse(w, http.StatusNotFound, "No documents for that UPC")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, docs)
}

func (h *DocumentHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *DocumentHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
