package redisrepo

import "fmt"

const ns = "cinebook:v1"

func KeyShow(showID int64) string {
	return fmt.Sprintf("%s:show:%d", ns, showID)
}

func KeyIdemBooking(userID, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s:%s", ns, userID, idemKey)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelShowsChanged() string {
	return ns + ":shows:changed"
}
