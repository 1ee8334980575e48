package api

import (
	"fmt"
	"log"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/database"
)

// Serve opens the database, wires the app and blocks serving HTTP on cfg.Port
func Serve(cfg *config.Config) error {
	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath, Migrate: true}); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	app, err := NewApp(cfg, database.GetDB())
	if err != nil {
		return fmt.Errorf("failed to wire application: %w", err)
	}
	defer app.Close()

	// 启动服务器
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Router.Run(cfg.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
