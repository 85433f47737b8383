package main

import (
	"context"
	"log"
	"os"
	"time"

	"varshgpt/internal/api"
	"varshgpt/internal/config"
	"varshgpt/internal/kv"
	"varshgpt/internal/orchestrator"
	"varshgpt/internal/service/ai"
	"varshgpt/internal/service/conversation"
	"varshgpt/internal/speech"
	"varshgpt/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("VARSHGPT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("VARSHGPT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: chats, messages, settings, temp_files
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// Preferences live in Redis when one is reachable; otherwise an
	// in-process store keeps the app usable with defaults.
	var store kv.Store
	redisStore, err := kv.NewRedisStore(cfg)
	if err != nil {
		log.Printf("redis unavailable, preferences kept in memory: %v", err)
		store = kv.NewMemoryStore()
	} else {
		defer redisStore.Close()
		store = redisStore
	}
	prefs := kv.NewPreferences(store)

	convService := conversation.NewService(db)
	cleanCtx, cleanCancel := context.WithCancel(context.Background())
	defer cleanCancel()
	cleanInterval := time.Duration(cfg.BasicConfig.TempCleanInterval) * time.Minute
	if cleanInterval <= 0 {
		cleanInterval = conversation.DefaultTempFileCleanupInterval
	}
	convService.StartTempFileCleaner(cleanCtx, cleanInterval)

	aiService := ai.NewService(cfg)
	voice := speech.NewController(nil, prefs.TTSEnabled(context.Background()))
	dictation := speech.NewDictation(nil)
	sender := orchestrator.New(convService, aiService, voice, prefs)

	fileBase := cfg.BasicConfig.FileBaseDir
	if fileBase == "" {
		fileBase = "./data/uploads"
	}
	tempTTL := time.Duration(cfg.BasicConfig.TempFileTTL) * time.Minute
	if tempTTL <= 0 {
		tempTTL = conversation.DefaultTempFileTTL
	}
	handlers := api.NewHandler(convService, sender, voice, dictation, prefs, fileBase, tempTTL)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
