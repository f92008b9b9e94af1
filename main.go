package main

import (
	"context"
	"log"
	"os"
	"time"

	"convorag/internal/api"
	"convorag/internal/config"
	"convorag/internal/embedding"
	"convorag/internal/memory"
	"convorag/internal/redis"
	"convorag/internal/service/ai"
	"convorag/internal/service/booking"
	"convorag/internal/service/ingest"
	"convorag/internal/service/rag"
	"convorag/internal/service/records"
	"convorag/internal/storage"
	"convorag/internal/vectorstore/pinecone"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("CONVORAG_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("CONVORAG_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: documents, chunks, bookings
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	rdb, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatalf("create redis client: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()

	embedder, err := embedding.NewOpenAIEmbedder(ctx, cfg.Embedding)
	if err != nil {
		log.Fatalf("init embedder: %v", err)
	}
	index, err := pinecone.NewIndex(pinecone.Config{
		IndexHost: cfg.Pinecone.IndexHost,
		APIKey:    cfg.Pinecone.APIKey,
		Namespace: cfg.Pinecone.Namespace,
	})
	if err != nil {
		log.Fatalf("init vector index: %v", err)
	}
	chatModel, err := ai.NewService(ctx, cfg)
	if err != nil {
		log.Fatalf("init chat model: %v", err)
	}

	recordsSvc := records.NewService(db)
	historyTTL := time.Duration(cfg.BasicConfig.HistoryTTLHours) * time.Hour
	memoryStore := memory.NewStore(rdb, historyTTL)
	ragSvc := rag.NewService(embedder, index, chatModel, cfg.BasicConfig.TopK, cfg.BasicConfig.HistoryWindow)
	extractor := booking.NewExtractor(chatModel)
	ingestSvc, err := ingest.NewService(ctx, recordsSvc, embedder, index, cfg.BasicConfig.FileBaseDir)
	if err != nil {
		log.Fatalf("init ingest service: %v", err)
	}

	handler := api.NewHandler(ingestSvc, recordsSvc, ragSvc, memoryStore, extractor, cfg.BasicConfig.MaxUploadSize)

	router := gin.Default()
	handler.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8080"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
