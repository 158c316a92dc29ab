package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTicketNotFound = errors.New("upload ticket not found")

type RedisUploadTicketRepository struct {
	redis *redis.Client
}

func NewRedisUploadTicketRepository(redisClient *redis.Client) *RedisUploadTicketRepository {
	return &RedisUploadTicketRepository{redis: redisClient}
}

func uploadTicketKey(storageID string) string {
	return fmt.Sprintf("upload:ticket:%s", storageID)
}

func (r *RedisUploadTicketRepository) Save(ctx context.Context, ticket UploadTicket, ttl time.Duration) error {
	payload, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, uploadTicketKey(ticket.StorageID), payload, ttl).Err()
}

func (r *RedisUploadTicketRepository) Get(ctx context.Context, storageID string) (UploadTicket, error) {
	return decodeTicket(r.redis.Get(ctx, uploadTicketKey(storageID)))
}

// Take uses GETDEL so concurrent claims of one storage id see the ticket once.
func (r *RedisUploadTicketRepository) Take(ctx context.Context, storageID string) (UploadTicket, error) {
	return decodeTicket(r.redis.GetDel(ctx, uploadTicketKey(storageID)))
}

func decodeTicket(cmd *redis.StringCmd) (UploadTicket, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return UploadTicket{}, ErrTicketNotFound
		}
		return UploadTicket{}, err
	}
	var ticket UploadTicket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return UploadTicket{}, fmt.Errorf("decode upload ticket: %w", err)
	}
	return ticket, nil
}
