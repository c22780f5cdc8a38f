package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChangeFeed broadcasts which local storage key changed, so other clients on
// the same profile can reload it. A feed ignores its own messages.
type ChangeFeed struct {
	rdb     *redis.Client
	channel string
	origin  string
	now     func() time.Time
}

func NewChangeFeed(rdb *redis.Client, profile string) *ChangeFeed {
	if profile == "" {
		profile = "default"
	}

	return &ChangeFeed{
		rdb:     rdb,
		channel: ChannelLocalChanged(profile),
		origin:  uuid.NewString(),
		now:     time.Now,
	}
}

type localChangedMsg struct {
	Type   string `json:"type"`
	Key    string `json:"key"`
	Origin string `json:"origin"`
	TsUnix int64  `json:"ts_unix"`
}

func (f *ChangeFeed) encode(key string) string {
	b, _ := json.Marshal(localChangedMsg{
		Type:   "local_changed",
		Key:    key,
		Origin: f.origin,
		TsUnix: f.now().Unix(),
	})
	return string(b)
}

// decode returns the changed key, or "" for foreign, malformed or own messages.
func (f *ChangeFeed) decode(payload string) string {
	var m localChangedMsg
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return ""
	}
	if m.Type != "local_changed" || m.Origin == f.origin {
		return ""
	}
	return m.Key
}

func (f *ChangeFeed) Publish(ctx context.Context, key string) error {
	return f.rdb.Publish(ctx, f.channel, f.encode(key)).Err()
}

// Subscribe blocks until ctx is done, calling handler for every key changed
// by another client.
func (f *ChangeFeed) Subscribe(ctx context.Context, handler func(ctx context.Context, key string)) error {
	sub := f.rdb.Subscribe(ctx, f.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if key := f.decode(m.Payload); key != "" {
				handler(ctx, key)
			}
		}
	}
}
