package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/agent"

	"github.com/gorilla/mux"
)

type AgentHandler struct {
	service      *agent.Service
	capabilities []models.Capability
}

// NewAgentHandler wires the agent service to the HTTP boundary. The
// capability list is assembled at startup and may include tools that are
// not registered because their provider credentials are missing.
func NewAgentHandler(service *agent.Service, capabilities []models.Capability) *AgentHandler {
	return &AgentHandler{service: service, capabilities: capabilities}
}

func (h *AgentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/agent/chat", h.ProcessMessage).Methods("POST")
	router.HandleFunc("/api/agent/chat/stream", h.ProcessMessageStream).Methods("POST")
	router.HandleFunc("/api/agent/capabilities", h.GetCapabilities).Methods("GET")
}

func (h *AgentHandler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received agent chat request")

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.ProcessMessage(r.Context(), req.Messages)
	if err != nil {
		log.Printf("[ERROR] Agent message processing failed: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[INFO] Agent message processing completed (partial=%v)", result.Partial)
	h.writeJSONResponse(w, http.StatusOK, result)
}

// ProcessMessageStream answers over Server-Sent Events: each text chunk is
// sent as a data event as the answer is generated, followed by a final
// [DONE] marker. Tool execution happens between chunks without any
// client-visible events.
func (h *AgentHandler) ProcessMessageStream(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received streaming agent chat request")

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Printf("[ERROR] Response writer does not support streaming")
		h.writeErrorResponse(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, err := h.service.ProcessMessageStream(r.Context(), req.Messages, func(text string) error {
		payload, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; report the failure in-stream.
		log.Printf("[ERROR] Streaming agent message processing failed: %v", err)
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		w.Write([]byte("data: " + string(payload) + "\n\n"))
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
	log.Printf("[INFO] Streaming agent chat request finished")
}

func (h *AgentHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, models.CapabilitiesResponse{
		Capabilities: h.capabilities,
		Status:       "ok",
	})
}

func (h *AgentHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*models.AgentRequest, bool) {
	var req models.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode agent request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return nil, false
	}

	if len(req.Messages) == 0 {
		log.Printf("[ERROR] No messages provided in agent request")
		h.writeErrorResponse(w, http.StatusBadRequest, "At least one message is required")
		return nil, false
	}

	return &req, true
}

func (h *AgentHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *AgentHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
