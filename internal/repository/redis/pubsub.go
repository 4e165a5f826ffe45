package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ShowsPubSub fans show changes out to every instance so each can drop its
// local view of the seat map.
type ShowsPubSub struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewShowsPubSub(rdb *redis.Client) *ShowsPubSub {
	return &ShowsPubSub{
		rdb:     rdb,
		channel: ChannelShowsChanged(),
		now:     time.Now,
	}
}

type showChangedMsg struct {
	Type    string `json:"type"`
	ShowID  int64  `json:"show_id"`
	Version int64  `json:"version"`
	TsUnix  int64  `json:"ts_unix"`
}

func (p *ShowsPubSub) PublishShowChanged(ctx context.Context, showID, version int64) error {
	msg := showChangedMsg{
		Type:    "show_changed",
		ShowID:  showID,
		Version: version,
		TsUnix:  p.now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks until ctx is done, calling handler for every well-formed
// message.
func (p *ShowsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, showID, version int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
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
			if ev, ok := decodeShowChanged(m.Payload); ok {
				handler(ctx, ev.ShowID, ev.Version)
			}
		}
	}
}

func decodeShowChanged(payload string) (showChangedMsg, bool) {
	var ev showChangedMsg
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.ShowID == 0 {
		return showChangedMsg{}, false
	}

	return ev, true
}
