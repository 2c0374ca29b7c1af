package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ChangefeedCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr             string
	LogLevel         string
	RedisAddr        string
	AutosaveInterval time.Duration
	HistoryCapacity  int
	GatewayCacheSize int
	NearbyH3Res      int
	NearbyRingK      int
	Changefeed       ChangefeedCfg
	MetricsEnabled   bool
	MetricsPath      string
}

func FromEnv() Config {
	return Config{
		Addr:             getenv("ADDR", ":8080"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		AutosaveInterval: getduration("AUTOSAVE_INTERVAL", 10*time.Second),
		HistoryCapacity:  getint("HISTORY_CAPACITY", 50),
		GatewayCacheSize: getint("GATEWAY_CACHE_SIZE", 128),
		NearbyH3Res:      getint("NEARBY_H3_RES", 6),
		NearbyRingK:      getint("NEARBY_RING_K", 2),
		Changefeed: ChangefeedCfg{
			Enabled: getbool("CHANGEFEED_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "course-changes"),
			GroupID: getenv("KAFKA_GROUP_ID", "coursemapper"),
		},
		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),
	}
}

func (c ChangefeedCfg) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
