package main

import (
	"log"

	"github.com/jengzang/itinerary-backend-go/internal/api"
	"github.com/jengzang/itinerary-backend-go/internal/config"
)

func main() {
	// 加载配置
	cfg := config.Load()

	if err := api.Serve(cfg); err != nil {
		log.Fatal(err)
	}
}
