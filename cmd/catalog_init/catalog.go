package main

import (
	"context"
	"fmt"

	"what-to-do/internal/logger"
	"what-to-do/internal/service"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// initCatalog creates the diary database, reusing it if it exists. The
// per-user tables are created by the server on first sync.
func initCatalog(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, error) {
	dbResp, err := client.CreateDatabase(ctx, &sdk.DatabaseCreateRequest{
		CatalogID:    catalogID,
		DatabaseName: dbName,
		Comment:      "what-to-do activity and mood diary",
	})
	switch {
	case err == nil:
		logger.Info("catalog.database_created", "id", dbResp.DatabaseID)
		return dbResp.DatabaseID, nil
	case service.IsDuplicate(err):
		logger.Info("catalog.database_exists", "name", dbName)
		return discoverDatabaseID(ctx, client, catalogID, dbName)
	default:
		return 0, fmt.Errorf("create database: %w", err)
	}
}

func discoverDatabaseID(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, error) {
	resp, err := client.ListDatabases(ctx, &sdk.DatabaseListRequest{CatalogID: catalogID})
	if err != nil {
		return 0, fmt.Errorf("list databases: %w", err)
	}
	for _, db := range resp.List {
		if db.DatabaseName == dbName {
			logger.Info("catalog.database_discovered", "id", db.DatabaseID)
			return db.DatabaseID, nil
		}
	}
	return 0, fmt.Errorf("database %s not found in catalog %d", dbName, catalogID)
}
