package main

import (
	"log"

	"livescore-service/config"
	"livescore-service/database"
)

// 独立的迁移工具, 部署时在服务启动前执行
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, dialect, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to %s database successfully", dialect)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to execute migration: %v", err)
	}

	log.Println("✅ Migration completed successfully")
}
