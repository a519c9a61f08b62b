// doctalk/config/config.go
package config

import "time"

const (
	AppVersion = "1.2.0"

	// User field bounds
	MinUsernameLen    = 3
	MaxUsernameLen    = 50
	MinDisplayNameLen = 2
	MaxDisplayNameLen = 100
	MinPasswordLen    = 6
	MaxBioLen         = 500

	// Comment limits
	MaxCommentLen          = 2000
	DefaultCommentPageSize = 50
	MaxCommentPageSize     = 200

	// Sessions
	SessionCookieName = "session_token"
	SessionTTL        = 30 * 24 * time.Hour

	// Avatar Upload Limits
	MaxAvatarFileSize = 4 * 1024 * 1024 // 4MB
	MaxAvatarWidth    = 4000
	MaxAvatarHeight   = 4000
	AvatarSize        = 128

	// Rate Limiting Defaults
	DefaultRateLimitEvery  = "5s"
	DefaultRateLimitBurst  = 10
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"
)

// ValidReactions is the fixed set of reaction types accepted for both
// comments and sections.
var ValidReactions = map[string]bool{
	"like":  true,
	"love":  true,
	"haha":  true,
	"wow":   true,
	"sad":   true,
	"angry": true,
}
