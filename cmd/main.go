package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/klhlearn/peerlearn-backend/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	a, err := app.New()
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}
	defer a.Close()

	a.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := a.Run(":" + port); err != nil {
		a.Log.Fatal("server exited", "error", err)
	}
}
