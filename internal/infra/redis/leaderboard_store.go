package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lingua-quiz-service/internal/domain"
)

const (
	xpKey    = "leaderboard:xp"
	namesKey = "leaderboard:names"
)

// LeaderboardStore ranks users in a Redis sorted set keyed by total XP.
// Ranking is computed entirely by Redis; the application performs no local
// aggregation.
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func (s *LeaderboardStore) Record(ctx context.Context, userID, displayName string, totalXP int) error {
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, xpKey, redis.Z{Score: float64(totalXP), Member: userID})
	if displayName != "" {
		pipe.HSet(ctx, namesKey, userID, displayName)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record leaderboard entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) List(ctx context.Context, limit int) ([]domain.RankedEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := s.client.ZRevRangeWithScores(ctx, xpKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}

	entries := make([]domain.RankedEntry, 0, len(members))
	for i, member := range members {
		userID, _ := member.Member.(string)
		name, err := s.client.HGet(ctx, namesKey, userID).Result()
		if err != nil {
			name = userID
		}
		entries = append(entries, domain.RankedEntry{
			Rank:        i + 1,
			UserID:      userID,
			DisplayName: name,
			TotalXP:     int(member.Score),
		})
	}
	return entries, nil
}

func (s *LeaderboardStore) RankOf(ctx context.Context, userID string) (int, error) {
	rank, err := s.client.ZRevRank(ctx, xpKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("rank of %s: %w", userID, err)
	}
	return int(rank) + 1, nil
}
