package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher pushes events onto per-user channels ("user:<id>") so
// other instances' hubs can deliver to their local connections. Publish
// failures are logged and dropped.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func (p *RedisPublisher) Notify(userIDs []uint, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("notify: marshal event %s: %v", ev.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, id := range userIDs {
		if err := p.rdb.Publish(ctx, UserChannel(id), payload).Err(); err != nil {
			log.Printf("notify: publish to %s: %v", UserChannel(id), err)
		}
	}
}
