// File path: cmd/sprintforge/main.go
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mdpstudio/sprintforge/internal/api"
	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/llm"
	"github.com/mdpstudio/sprintforge/internal/mirror"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("sprintforge: .env file not loaded", "error", err)
	} else {
		logger.Info("sprintforge: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite database")
	flag.Parse()

	logger.Info("sprintforge: startup initiated", "addr", *addr, "db", *dbPath)

	storeCfg, err := sqlite.LoadConfig()
	if err != nil {
		logger.Error("sprintforge: store config load failed", "error", err)
		fmt.Println("store config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*dbPath); trimmed != "" {
		storeCfg.Path = trimmed
	}
	store, err := sqlite.OpenWithConfig(storeCfg)
	if err != nil {
		logger.Error("sprintforge: store open failed", "error", err)
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer store.Close()

	provider := llm.NewProvider()
	logger.Info("sprintforge: completion provider selected", "provider", provider.Name())

	mirrorCfg, err := mirror.LoadConfig()
	if err != nil {
		logger.Error("sprintforge: mirror config load failed", "error", err)
		fmt.Println("mirror config error:", err)
		os.Exit(1)
	}
	mirrorClient := mirror.NewClient(mirrorCfg)
	if !mirrorClient.Enabled() {
		logger.Warn("sprintforge: artifact mirror disabled, versions will save without URLs")
	}

	srv, err := api.NewServer(store, provider, mirrorClient)
	if err != nil {
		logger.Error("sprintforge: server init failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("sprintforge: listening", "addr", *addr)
	fmt.Printf("sprintforge listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, srv); err != nil {
		logger.Error("sprintforge: server stopped", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}
}

func defaultDBPath() string {
	if env := strings.TrimSpace(os.Getenv("SQLITE_PATH")); env != "" {
		return env
	}
	return filepath.Join("data", "sprintforge.db")
}
