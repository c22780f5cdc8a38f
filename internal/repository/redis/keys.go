package redis

import "fmt"

const ns = "tixclient:v1"

// KeyLocal namespaces a client-local storage key under a profile so several
// clients can share one Redis database.
func KeyLocal(profile, key string) string {
	return fmt.Sprintf("%s:local:%s:%s", ns, profile, key)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelLocalChanged(profile string) string {
	return fmt.Sprintf("%s:local:%s:changed", ns, profile)
}
