package main

import (
	"log"
	"net/http"

	"idle-lite/apps/server/internal/api"
	"idle-lite/apps/server/internal/config"
	"idle-lite/apps/server/internal/game"
	"idle-lite/apps/server/internal/gateway"
	"idle-lite/apps/server/internal/ledger"
	"idle-lite/apps/server/internal/store"
	"idle-lite/catalog"
	"idle-lite/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Server] Failed to load config: %v", err)
	}

	tmpl := profile.LoadTemplateOrDefault(cfg.TemplatePath)
	seeds, err := game.LoadSeeds(cfg.InitProfilesPath)
	if err != nil {
		log.Printf("[Server] Ignoring init profiles: %v", err)
	}

	profileStore, storeMode, err := store.Open(cfg.StoreOptions(), tmpl)
	if err != nil {
		log.Fatalf("[Server] Failed to init profile store: %v", err)
	}
	defer profileStore.Close()
	ledgerService, ledgerMode, err := ledger.Open(cfg.LedgerOptions())
	if err != nil {
		log.Fatalf("[Server] Failed to init ledger service: %v", err)
	}
	defer ledgerService.Close()

	content, err := catalog.Load(cfg.ContentDir)
	if err != nil {
		log.Printf("[Server] Content unavailable: %v", err)
		content = catalog.Empty()
	}

	feed := gateway.New()
	svc := game.NewService(tmpl, profileStore, profileStore,
		game.WithLedger(ledgerService),
		game.WithSeeds(seeds),
		game.WithPublisher(feed.Publish),
	)
	feed.SetSource(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", feed.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	ledger.NewHTTPHandler(svc, ledgerService).RegisterRoutes(mux)
	api.NewHTTPHandler(svc, content, api.Options{
		StaticDir:  cfg.StaticDir,
		LegacyPath: cfg.LegacyDatabasePath,
	}).RegisterRoutes(mux)

	addr := cfg.ListenAddr()
	log.Printf("[Server] Store mode: %s", storeMode)
	log.Printf("[Server] Ledger mode: %s", ledgerMode)
	log.Printf("[Server] Template: %d skills, %d items", len(tmpl.Skills), len(tmpl.Items))
	log.Printf("[Server] Starting server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}
