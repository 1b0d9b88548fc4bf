package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	Database   Database   `envPrefix:"DATABASE_"`
	JWT        JWT        `envPrefix:"JWT_"`
	Amap       Amap       `envPrefix:"AMAP_"`
	WechatPay  WechatPay  `envPrefix:"WECHAT_"`
	Membership Membership `envPrefix:"MEMBERSHIP_"`
	Export     Export     `envPrefix:"EXPORT_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	// sqlite or mysql
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"app.db"`
}

type JWT struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"168h"`
}

type Amap struct {
	Key        string        `env:"KEY"`
	BaseURL    string        `env:"BASE_URL" envDefault:"https://restapi.amap.com/v3"`
	PageSize   int           `env:"PAGE_SIZE" envDefault:"25"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
	SearchTTL  time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"30m"`
	RegionsTTL time.Duration `env:"REGIONS_CACHE_TTL" envDefault:"24h"`
}

type WechatPay struct {
	AppID           string `env:"APP_ID"`
	MchID           string `env:"MCH_ID"`
	APIKey          string `env:"API_KEY"`
	NotifyURL       string `env:"PAY_NOTIFY_URL"`
	UnifiedOrderURL string `env:"UNIFIED_ORDER_URL" envDefault:"https://api.mch.weixin.qq.com/pay/unifiedorder"`
}

type Membership struct {
	FreeSearchCap     int `env:"FREE_SEARCH_CAP" envDefault:"20"`
	StandardSearchCap int `env:"STANDARD_SEARCH_CAP" envDefault:"200"`
	PremiumSearchCap  int `env:"PREMIUM_SEARCH_CAP" envDefault:"1000"`

	// membership prices in fen
	StandardPrice int64 `env:"STANDARD_PRICE" envDefault:"1000"`
	PremiumPrice  int64 `env:"PREMIUM_PRICE" envDefault:"10000"`

	StandardDurationDays int `env:"STANDARD_DURATION_DAYS" envDefault:"30"`
	PremiumDurationDays  int `env:"PREMIUM_DURATION_DAYS" envDefault:"365"`
}

type Export struct {
	StandardDailyLimit int `env:"STANDARD_DAILY_LIMIT" envDefault:"500"`
}
