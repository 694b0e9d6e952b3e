package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kInt64
	kBool
	kDuration
	kIDList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "telegram.token", typ: kString, env: "SHELFBOT_TELEGRAM_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Telegram.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Telegram.Token },
	},
	{
		key: "telegram.admin_ids", typ: kIDList, env: "SHELFBOT_TELEGRAM_ADMIN_IDS",
		apply:   func(cfg *Config, v any) { cfg.Telegram.AdminIDs = v.([]int64) },
		extract: func(cfg Config) any { return formatIDs(cfg.Telegram.AdminIDs) },
	},
	{
		key: "telegram.probe_chat_id", typ: kInt64, env: "SHELFBOT_TELEGRAM_PROBE_CHAT_ID",
		apply:   func(cfg *Config, v any) { cfg.Telegram.ProbeChatID = v.(int64) },
		extract: func(cfg Config) any { return cfg.Telegram.ProbeChatID },
	},
	{
		key: "telegram.poll_timeout", typ: kDuration, env: "SHELFBOT_TELEGRAM_POLL_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Telegram.PollTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Telegram.PollTimeout },
	},
	{
		key: "telegram.search_on_text", typ: kBool, env: "SHELFBOT_TELEGRAM_SEARCH_ON_TEXT",
		apply:   func(cfg *Config, v any) { cfg.Telegram.SearchOnText = v.(bool) },
		extract: func(cfg Config) any { return cfg.Telegram.SearchOnText },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SHELFBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "search.page_size", typ: kInt, env: "SHELFBOT_SEARCH_PAGE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Search.PageSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.PageSize },
	},
	{
		key: "search.ad_limit", typ: kInt, env: "SHELFBOT_SEARCH_AD_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Search.AdLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.AdLimit },
	},
	{
		key: "cleanup.delay", typ: kDuration, env: "SHELFBOT_CLEANUP_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Cleanup.Delay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Cleanup.Delay },
	},
	{
		key: "cleanup.poll_interval", typ: kDuration, env: "SHELFBOT_CLEANUP_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Cleanup.PollInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Cleanup.PollInterval },
	},
	{
		key: "server.port", typ: kInt, env: "SHELFBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "api.token", typ: kString, env: "SHELFBOT_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
	{
		key: "log.level", typ: kString, env: "SHELFBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.pretty", typ: kBool, env: "SHELFBOT_LOG_PRETTY",
		apply:   func(cfg *Config, v any) { cfg.Log.Pretty = v.(bool) },
		extract: func(cfg Config) any { return cfg.Log.Pretty },
	},
	{
		key: "help.default", typ: kString, env: "SHELFBOT_HELP_DEFAULT",
		apply:   func(cfg *Config, v any) { cfg.Help.Default = v.(string) },
		extract: func(cfg Config) any { return cfg.Help.Default },
	},
}

// parse converts a raw string into the Go value for typ.
func parse(typ keyType, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch typ {
	case kString:
		return raw, nil
	case kInt:
		return strconv.Atoi(raw)
	case kInt64:
		return strconv.ParseInt(raw, 10, 64)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		return time.ParseDuration(raw)
	case kIDList:
		return parseIDs(raw)
	default:
		return nil, fmt.Errorf("unsupported key type %d", typ)
	}
}

// parseIDs reads a comma or whitespace separated list of numeric ids.
func parseIDs(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parse(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parse(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
