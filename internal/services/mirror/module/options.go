package module

import (
	"time"

	"issuemirror/internal/platform/config"
)

// Options holds configuration settings for the mirror module
type Options struct {
	// github client
	BaseURL    string
	UserAgent  string
	TokensCSV  string
	MaxRetries int
	RetryBase  time.Duration

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// sync engine
	PageSize       int
	FlushThreshold int
	CursorBuffer   time.Duration
	Staleness      time.Duration

	// read path
	DefaultPageSize int
	StatTTL         time.Duration

	// background queue
	Workers    int
	QueueDepth int
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	mf := cfg.Prefix("MIRROR_")
	return Options{
		BaseURL:    mf.MayString("GITHUB_BASE_URL", ""),
		UserAgent:  mf.MayString("GITHUB_USER_AGENT", "issuemirror"),
		TokensCSV:  mf.MayString("GITHUB_TOKENS", ""),
		MaxRetries: mf.MayInt("GITHUB_MAX_RETRIES", 5),
		RetryBase:  mf.MayDuration("GITHUB_RETRY_BASE", 500*time.Millisecond),

		ConnectTimeout: mf.MayDuration("GITHUB_CONNECT_TIMEOUT", 30*time.Second),
		ReadTimeout:    mf.MayDuration("GITHUB_READ_TIMEOUT", 300*time.Second),

		PageSize:       mf.MayInt("SYNC_PAGE_SIZE", 100),
		FlushThreshold: mf.MayInt("SYNC_FLUSH_THRESHOLD", 5000),
		CursorBuffer:   mf.MayDuration("SYNC_CURSOR_BUFFER", time.Minute),
		Staleness:      mf.MayDuration("SYNC_STALENESS", 10*time.Minute),

		DefaultPageSize: mf.MayInt("READ_PAGE_SIZE", 25),
		StatTTL:         mf.MayDuration("STAT_TTL", 5*time.Minute),

		Workers:    mf.MayInt("SYNC_WORKERS", 2),
		QueueDepth: mf.MayInt("SYNC_QUEUE_DEPTH", 64),
	}
}
