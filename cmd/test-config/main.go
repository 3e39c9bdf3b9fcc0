package main

import (
	"fmt"
	"log"

	"farmhand/internal/config"
)

func main() {
	// Test loading config
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("Configuration loaded successfully!")
	fmt.Printf("Server Port: %d\n", cfg.Server.Port)
	fmt.Printf("Server Bind Address: %s\n", cfg.Server.BindAddress)
	fmt.Printf("Log Level: %s\n", cfg.Logging.Level)
	fmt.Printf("Weather Provider Keyed: %v\n", cfg.Weather.APIKey != "")
	fmt.Printf("Plant Provider Keyed: %v\n", cfg.Plant.APIKey != "")
	fmt.Printf("Assistant Provider Keyed: %v\n", cfg.Assistant.GenerativeKey != "")
	fmt.Printf("Voice Transcription Keyed: %v\n", cfg.Voice.TranscribeKey != "")
	fmt.Printf("Auth Enabled: %v\n", cfg.Auth.Enabled)
	fmt.Printf("Database Path: %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("Watched Guide Folders: %d\n", len(cfg.Knowledge.Folders))
	fmt.Printf("Max Guide File Size: %d MB\n", cfg.Knowledge.MaxFileSizeMB)
}
