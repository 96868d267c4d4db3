package config

import "time"

// Migrate definition migrate_service YAML structure
type Migrate struct {
	Port string `mapstructure:"port"`
	IP   string `mapstructure:"ip"`

	Providers ProviderConfig `mapstructure:"providers"`
	Stager    StagerConfig   `mapstructure:"stager"`
	OAuth     OAuthConfig    `mapstructure:"oauth"`
	YouTube   YouTubeConfig  `mapstructure:"youtube"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	MinIO      MinIOConfig    `mapstructure:"minio"`
	RabbitMQ   RabbitConfig   `mapstructure:"rabbitmq"`
}

// ProviderConfig definition download provider cascade setting
type ProviderConfig struct {
	// 自建 yt-dlp 服務，為主要來源；留空時視為未配置
	YtdlpBaseURL string `mapstructure:"ytdlp_base_url"`

	CobaltInstances []string `mapstructure:"cobalt_instances"`
	QualityTiers    []string `mapstructure:"quality_tiers"`
	VidsSaveBaseURL string   `mapstructure:"vidssave_base_url"`

	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// 關鍵字表為配置而非寫死，供錯誤分類使用
	RestrictionKeywords []string `mapstructure:"restriction_keywords"`
	AuthKeywords        []string `mapstructure:"auth_keywords"`
}

// StagerConfig definition media stager setting
type StagerConfig struct {
	MaxBufferMB      int `mapstructure:"max_buffer_mb"`
	SignedURLTTLMins int `mapstructure:"signed_url_ttl_mins"`
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`

	// true 時來源位元組先落地 object storage 再上傳，預設直通
	DurableStaging bool `mapstructure:"durable_staging"`
}

// OAuthConfig definition google oauth client setting
type OAuthConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	StateSecret  string        `mapstructure:"state_secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

// YouTubeConfig definition youtube data api setting
type YouTubeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`

	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RabbitConfig definition rabbitmq setting
type RabbitConfig struct {
	IP       string `mapstructure:"ip"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
