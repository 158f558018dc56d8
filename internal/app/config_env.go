package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding variables are set. Env takes precedence over the config file;
// flags, applied afterwards, remain highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
			}
		}
	}
	setInt := func(dst *int, key string) {
		s := strings.TrimSpace(os.Getenv(key))
		if s == "" {
			return
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			log.Warn().Str("key", key).Str("value", s).Msg("ignoring non-integer environment value")
			return
		}
		*dst = n
	}
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		s := strings.TrimSpace(os.Getenv(key))
		if s == "" {
			return
		}
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
			return
		}
		log.Warn().Str("key", key).Str("value", s).Msg("ignoring invalid duration")
	}

	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.LogDir, "LOG_DIR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setBool(&cfg.Verbose, "VERBOSE")

	// DOWNLOAD_TIMEOUT is whole seconds.
	var timeoutSecs int
	setInt(&timeoutSecs, "DOWNLOAD_TIMEOUT")
	if timeoutSecs != 0 {
		cfg.DownloadTimeout = time.Duration(timeoutSecs) * time.Second
	}
	setInt(&cfg.MaxRetries, "MAX_RETRIES")
	setString(&cfg.UserAgent, "USER_AGENT")
	setBool(&cfg.ValidateLinks, "VALIDATE_LINKS")
	setBool(&cfg.RespectRobots, "RESPECT_ROBOTS")

	setInt(&cfg.OCRDPI, "OCR_DPI")
	setInt(&cfg.MinTextLength, "MIN_TEXT_LENGTH")
	setString(&cfg.OCREngine, "OCR_ENGINE")
	setString(&cfg.OCRLang, "OCR_LANG")
	setString(&cfg.TessdataPrefix, "TESSDATA_PREFIX")
	setString(&cfg.Rasterizer, "RASTERIZER")

	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")

	setString(&cfg.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&cfg.GoogleCSEID, "GOOGLE_CSE_ID")
	// SEARXNG_* wins over SEARX_* when both are set.
	setString(&cfg.SearxURL, "SEARX_URL", "SEARXNG_URL")
	setString(&cfg.SearxKey, "SEARX_KEY", "SEARXNG_KEY")
	setString(&cfg.SearchFile, "SEARCH_FILE")

	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.CacheRefresh, "CACHE_REFRESH")

	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
