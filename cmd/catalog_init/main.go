package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"what-to-do/internal/config"
	"what-to-do/internal/logger"
	"what-to-do/internal/service"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

func main() {
	configFile := flag.String("config", "etc/config-dev.yaml", "config file")
	flag.Parse()

	logger.Init(config.LogConfig{Level: "info", Console: true})

	cfg := config.Load(*configFile)
	client, err := cfg.NewRawClient()
	if err != nil {
		log.Fatal(err)
	}
	if client == nil {
		log.Fatal("moi.api_key is not set")
	}
	ctx := context.Background()
	catalogID := sdk.CatalogID(cfg.MOI.CatalogID)
	if catalogID == 0 {
		catalogID = 1
	}

	dbID, err := initCatalog(ctx, client, catalogID, service.CatalogDBName)
	if err != nil {
		log.Fatal("catalog init failed:", err)
	}
	if err := initKnowledge(ctx, client); err != nil {
		log.Fatal("knowledge init failed:", err)
	}

	fmt.Println("moi:")
	fmt.Printf("  database_id: %d\n", dbID)
	logger.Info("catalog_init.done")
}
