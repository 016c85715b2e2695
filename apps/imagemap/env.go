package main

import (
	"os"
	"strconv"

	"github.com/PhantomInTheWire/imagemap/pkg/storage"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func s3ConfigFromEnv() storage.Config {
	return storage.Config{
		Endpoint:  getEnv("IMAGEMAP_S3_ENDPOINT", ""),
		Region:    getEnv("IMAGEMAP_S3_REGION", "us-east-1"),
		AccessKey: getEnv("IMAGEMAP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("IMAGEMAP_S3_SECRET_KEY", ""),
	}
}

// maxTiles caps how many maps one import may produce.
func maxTiles() int {
	return getEnvInt("IMAGEMAP_MAX_TILES", 1024)
}
