package config

import (
	"net"
	"net/url"
	"strconv"
)

const gemini3MinTemperature = 1.0

// ThinkingConfig: Gemini thinking 레벨 설정입니다.
type ThinkingConfig struct {
	LevelDefault   string
	LevelExtract   string
	LevelRecommend string
	LevelChat      string
}

// Level: 작업 유형별 thinking 레벨을 반환합니다.
func (t ThinkingConfig) Level(task string) string {
	switch task {
	case "extract":
		return t.LevelExtract
	case "recommend":
		return t.LevelRecommend
	case "chat":
		return t.LevelChat
	default:
		return t.LevelDefault
	}
}

// GeminiConfig: Gemini 모델 설정입니다.
type GeminiConfig struct {
	APIKeys         []string
	DefaultModel    string
	ExtractModel    string
	RecommendModel  string
	ChatModel       string
	Temperature     float64
	MaxOutputTokens int
	Thinking        ThinkingConfig
	TimeoutSeconds  int
}

// PrimaryKey: 기본 API 키를 반환합니다.
func (g GeminiConfig) PrimaryKey() string {
	if len(g.APIKeys) == 0 {
		return ""
	}
	return g.APIKeys[0]
}

// ModelForTask: 작업 유형별 모델을 반환합니다.
func (g GeminiConfig) ModelForTask(task string) string {
	switch task {
	case "extract":
		if g.ExtractModel != "" {
			return g.ExtractModel
		}
	case "recommend":
		if g.RecommendModel != "" {
			return g.RecommendModel
		}
	case "chat":
		if g.ChatModel != "" {
			return g.ChatModel
		}
	}
	return g.DefaultModel
}

// TemperatureForModel: 모델별 temperature를 계산합니다.
func (g GeminiConfig) TemperatureForModel(model string) float64 {
	if isGemini3(model) {
		return max(gemini3MinTemperature, g.Temperature)
	}
	return g.Temperature
}

// UploadConfig: 고지서 업로드 제한 설정입니다.
type UploadConfig struct {
	MaxSizeMB int
}

// MaxSizeBytes: 업로드 최대 크기를 바이트로 반환합니다.
func (u UploadConfig) MaxSizeBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

// SessionConfig: 세션 관련 설정입니다.
type SessionConfig struct {
	SessionTTLMinutes int
	HistoryMaxPairs   int
}

// SessionStoreConfig: 세션 저장소 연결 설정입니다.
type SessionStoreConfig struct {
	URL          string
	Enabled      bool
	Required     bool
	DisableCache bool
}

// GuardConfig: 채팅 입력 검증 설정입니다.
type GuardConfig struct {
	Enabled         bool
	Threshold       float64
	RulepacksDir    string
	CacheMaxSize    int
	CacheTTLSeconds int
}

// LoggingConfig: 로깅 설정입니다.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig: HTTP 서버 설정입니다.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
}

// CORSConfig: 교차 출처 허용 설정입니다.
// 기본값은 전체 허용으로, 개발용 구성이다. 운영 배포 전 출처 목록을 좁혀야 한다.
type CORSConfig struct {
	AllowOrigins []string
}

// AllowAll: 전체 출처 허용 여부를 반환합니다.
func (c CORSConfig) AllowAll() bool {
	for _, origin := range c.AllowOrigins {
		if origin == "*" {
			return true
		}
	}
	return len(c.AllowOrigins) == 0
}

// HTTPAuthConfig: API 키 인증 설정입니다.
type HTTPAuthConfig struct {
	APIKey string
}

// HTTPRateLimitConfig: 요청 제한 설정입니다.
type HTTPRateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTLSeconds   int
}

// DatabaseConfig: DB 연결 및 저장 설정입니다.
type DatabaseConfig struct {
	Host                                 string
	Port                                 int
	Name                                 string
	User                                 string
	Password                             string
	MinPool                              int
	MaxPool                              int
	ConnMaxLifetimeMinutes               int
	ConnMaxIdleTimeMinutes               int
	UsageBatchEnabled                    bool
	UsageBatchFlushIntervalSeconds       int
	UsageBatchFlushTimeoutSeconds        int
	UsageBatchMaxPendingRequests         int
	UsageBatchMaxBackoffSeconds          int
	UsageBatchErrorLogMaxIntervalSeconds int
}

// DSN: DB 접속 문자열을 반환합니다.
func (d DatabaseConfig) DSN() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// Config: 애플리케이션 전체 설정입니다.
type Config struct {
	Gemini        GeminiConfig
	Upload        UploadConfig
	Session       SessionConfig
	SessionStore  SessionStoreConfig
	Guard         GuardConfig
	Logging       LoggingConfig
	HTTP          HTTPConfig
	CORS          CORSConfig
	HTTPAuth      HTTPAuthConfig
	HTTPRateLimit HTTPRateLimitConfig
	Database      DatabaseConfig
}
