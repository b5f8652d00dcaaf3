package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the consoles need to reach the backend. All of it
// comes from the environment; an optional .env file fills the gaps for local
// development.
type Config struct {
	APIBaseURL string
	WSBaseURL  string

	CredentialsFile string

	RoutingBaseURL string
	RoutingAPIKey  string

	// Command the geolocator shells out to for a one-shot fix. Empty means
	// the device has no geolocation capability.
	GeolocateCommand string

	RetryDelay   time.Duration
	MaxAttempts  int
	DebugAddr    string
	SceneOutFile string
}

func Load() Config {
	loadEnv()

	return Config{
		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8080"),
		WSBaseURL:        getEnv("WS_BASE_URL", "ws://localhost:8080"),
		CredentialsFile:  getEnv("CREDENTIALS_FILE", defaultCredentialsFile()),
		RoutingBaseURL:   getEnv("ROUTING_BASE_URL", "https://router.project-osrm.org"),
		RoutingAPIKey:    os.Getenv("ROUTING_API_KEY"),
		GeolocateCommand: os.Getenv("GEOLOCATE_COMMAND"),
		RetryDelay:       getEnvDuration("WS_RETRY_DELAY", 3*time.Second),
		MaxAttempts:      getEnvInt("WS_MAX_ATTEMPTS", 5),
		DebugAddr:        getEnv("DEBUG_ADDR", ":9100"),
		SceneOutFile:     getEnv("SCENE_OUT_FILE", "route.geojson"),
	}
}

func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Println("Error getting working directory:", err)
		return
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("Loaded environment variables from %s", envPath)
			return
		}
	}

	log.Println("No .env file found, using system environment variables")
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shopsync-credentials.json"
	}
	return filepath.Join(home, ".shopsync-credentials.json")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value %q for %s, using default %d", v, key, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid value %q for %s, using default %s", v, key, fallback)
		return fallback
	}
	return d
}
