package config

import (
	"os"
	"strconv"
	"strings"
)

// Config 应用配置
type Config struct {
	Port         string
	DBPath       string
	JWTSecret    string
	AuthEnabled  bool
	RateLimit    int // 每分钟每个客户端的请求数
	StrategyFile string
	OpenAIAPIKey string
	InsightModel string
	ACOSeed      int64
}

// Load 加载配置
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/itinerary.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-in-production"
	}

	insightModel := os.Getenv("INSIGHT_MODEL")
	if insightModel == "" {
		insightModel = "gpt-4o-mini"
	}

	return &Config{
		Port:         port,
		DBPath:       dbPath,
		JWTSecret:    jwtSecret,
		AuthEnabled:  envBool("AUTH_ENABLED", false),
		RateLimit:    envInt("RATE_LIMIT", 120),
		StrategyFile: os.Getenv("STRATEGY_FILE"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		InsightModel: insightModel,
		ACOSeed:      int64(envInt("ACO_SEED", 0)),
	}
}

// envBool 读取布尔环境变量，无法解析时返回默认值
func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envInt 读取整数环境变量，无法解析时返回默认值
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
