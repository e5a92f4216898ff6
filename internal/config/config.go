// Package config assemble la configuration: défauts, fichier TOML optionnel,
// variables d'environnement TUBECAST_*, puis flags côté binaire.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// Addr est l'adresse d'écoute du serveur web.
	Addr string `toml:"addr"`
	// DBPath est le chemin de la base sqlite du mode multi-user.
	DBPath string `toml:"db_path"`
	// EpisodesDir est le répertoire parent des artefacts audio,
	// un sous-dossier par owner.
	EpisodesDir string `toml:"episodes_dir"`
	// BaseURL préfixe les URLs publiques (feed, enclosures).
	BaseURL string `toml:"base_url"`
	// Workers dimensionne le pool d'ingestion en arrière-plan.
	Workers int `toml:"workers"`
	// MaxConcurrentDownloads borne les acquisitions simultanées pour ne pas
	// saturer l'extracteur ni le réseau.
	MaxConcurrentDownloads int `toml:"max_concurrent_downloads"`
	// YtdlpBinary permet de pointer un binaire yt-dlp alternatif.
	YtdlpBinary string `toml:"ytdlp_binary"`
}

func Default() Config {
	return Config{
		Addr:                   envOr("TUBECAST_ADDR", "127.0.0.1:8080"),
		DBPath:                 envOr("TUBECAST_DB_PATH", "tubecast.db"),
		EpisodesDir:            envOr("TUBECAST_EPISODES_DIR", "user_episodes"),
		BaseURL:                envOr("TUBECAST_BASE_URL", "http://127.0.0.1:8080"),
		Workers:                envIntOr("TUBECAST_WORKERS", 4),
		MaxConcurrentDownloads: envIntOr("TUBECAST_MAX_CONCURRENT_DOWNLOADS", 4),
		YtdlpBinary:            envOr("TUBECAST_YTDLP_BINARY", "yt-dlp"),
	}
}

// Load part des défauts et applique le fichier TOML s'il existe.
// Un chemin explicite absent est une erreur; le chemin par défaut absent
// est ignoré.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if path == "" {
		path = envOr("TUBECAST_CONFIG", "tubecast.toml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
