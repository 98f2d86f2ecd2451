package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/jaxonc/AIE7-Certification-Challenge/config"
	"github.com/jaxonc/AIE7-Certification-Challenge/db"
	"github.com/jaxonc/AIE7-Certification-Challenge/handlers"
	"github.com/jaxonc/AIE7-Certification-Challenge/models"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/agent"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/docindex"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/rag"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/tavily"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/usda"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// The UPC tools are pure computation and always available. Provider-backed
	// tools are only registered when their credentials are present; missing
	// ones still show up in the capability listing as unavailable.
	tools := []agent.AgentTool{
		agent.NewUPCExtractionTool(),
		agent.NewUPCValidatorTool(),
		agent.NewUPCCheckDigitTool(),
	}
	var unavailable []models.Capability

	usdaTool := agent.NewUSDALookupTool(usda.NewService(cfg.USDAAPIKey))
	if cfg.USDAAPIKey != "" {
		tools = append(tools, usdaTool)
	} else {
		log.Printf("[WARN] USDA_API_KEY not set, usda_food_lookup disabled")
		unavailable = append(unavailable, unavailableCapability(usdaTool))
	}

	var ragHandler *handlers.RAGHandler
	knowledgeTool := agent.NewProductKnowledgeTool(nil)
	if cfg.PineconeAPIKey != "" && cfg.OpenAIAPIKey != "" {
		docindexService, err := docindex.NewService(cfg.PineconeAPIKey, cfg.OpenAIAPIKey, cfg.PineconeIndexName)
		if err != nil {
			log.Fatalf("Failed to initialize document index service: %v", err)
		}
		tools = append(tools, agent.NewProductKnowledgeTool(docindexService))

		ragService, err := rag.NewService(docindexService, cfg.OpenAIAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize RAG service: %v", err)
		}
		ragHandler = handlers.NewRAGHandler(ragService)
	} else {
		log.Printf("[WARN] PINECONE_API_KEY or OPENAI_API_KEY not set, product_knowledge_search disabled")
		unavailable = append(unavailable, unavailableCapability(knowledgeTool))
	}

	webTool := agent.NewWebSearchTool(tavily.NewService(cfg.TavilyAPIKey))
	if cfg.TavilyAPIKey != "" {
		tools = append(tools, webTool)
	} else {
		log.Printf("[WARN] TAVILY_API_KEY not set, tavily_web_search disabled")
		unavailable = append(unavailable, unavailableCapability(webTool))
	}

	var documentHandler *handlers.DocumentHandler
	if cfg.DatabaseURL != "" {
		docRepo, err := db.NewPostgresProductDocumentRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize product document database: %v", err)
		}
		defer docRepo.Close()
		documentHandler = handlers.NewDocumentHandler(docRepo)
	} else {
		log.Printf("[WARN] DB_URL not set, document endpoints disabled")
	}

	registry, err := agent.NewRegistry(tools...)
	if err != nil {
		log.Fatalf("Failed to build tool registry: %v", err)
	}

	reasoner := agent.NewAnthropicReasoner(cfg.AnthropicAPIKey, cfg.AgentModel, agent.SystemPrompt)
	agentService := agent.NewService(reasoner, registry, agent.Config{
		MaxIterations: cfg.MaxIterations,
		ToolTimeout:   cfg.ToolTimeout,
		TurnTimeout:   cfg.TurnTimeout,
	})

	capabilities := append(agentService.Capabilities(), unavailable...)
	agentHandler := handlers.NewAgentHandler(agentService, capabilities)

	router := mux.NewRouter()

	router.Use(corsMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	agentHandler.RegisterRoutes(router)
	if ragHandler != nil {
		ragHandler.RegisterRoutes(router)
	}
	if documentHandler != nil {
		documentHandler.RegisterRoutes(router)
	}

	router.HandleFunc("/health", healthCheckHandler(cfg)).Methods("GET")

	addr := ":" + cfg.Port
	fmt.Printf("Server starting on port %s\n", cfg.Port)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func unavailableCapability(tool agent.AgentTool) models.Capability {
	return models.Capability{
		Name:        tool.Name(),
		Description: tool.Description(),
		Available:   false,
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status": "healthy",
			"providers": map[string]bool{
				"anthropic": cfg.AnthropicAPIKey != "",
				"openai":    cfg.OpenAIAPIKey != "",
				"pinecone":  cfg.PineconeAPIKey != "",
				"tavily":    cfg.TavilyAPIKey != "",
				"usda":      cfg.USDAAPIKey != "",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}
