package properties

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultSentinelHubURL = "https://sh.dataspace.copernicus.eu"

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

// DataPath joins parts under <ROOT_PATH>/data.
func DataPath(parts ...string) string {
	return filepath.Join(append([]string{RootPath(), "data"}, parts...)...)
}

func SentinelHubURL() string {
	return getEnv("SH_BASE_URL", defaultSentinelHubURL)
}

// CopernicusClientIDs and CopernicusClientSecrets are comma separated lists,
// tried in order when a credential pair is rejected.
func CopernicusClientIDs() []string {
	return splitList(os.Getenv("COPERNICUS_CLIENT_ID"))
}

func CopernicusClientSecrets() []string {
	return splitList(os.Getenv("COPERNICUS_CLIENT_SECRET"))
}

func CopernicusTokenURL() string {
	return os.Getenv("COPERNICUS_TOKEN_URL")
}

func MaxRetries() int {
	return getEnvInt("MAX_RETRIES", 3)
}

func SceneConcurrency() int {
	return getEnvInt("SCENE_CONCURRENCY", 4)
}

func ExportWorkers() int {
	return getEnvInt("EXPORT_WORKERS", 2)
}

func PostgresDSN() string {
	return os.Getenv("POSTGRES_DSN")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
