package cache

import "time"

const (
	// resell:slug:{slug} -> 解決結果のJSON
	KeyResellSlug = "resell:slug:%s"

	// order_status:{order_id} -> {"status": "...", "tracking_number": "..."}
	KeyOrderStatus = "order_status:%d"

	// login:fail:{email} -> 失敗回数
	KeyLoginFail = "login:fail:%s"

	// chat:conv:{conversation_id} -> pub/sub チャネル
	KeyChatChannel = "chat:conv:%d"

	// dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLResellSlug  = 2 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLLoginLock   = 15 * time.Minute
	TTLDedup       = 48 * time.Hour
)
