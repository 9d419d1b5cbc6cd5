package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "foreman:lease:" // Hash per plan: foreman:lease:{plan_id}

// Lease scripts reply {status, holder, acquired_us, expires_us}.
// Status: 1 ok, 0 held by another actor, -1 caller is not the holder.
// Instants are unix microseconds so they stay exact as Lua numbers.
var (
	acquireLeaseScript = redis.NewScript(`
local holder = redis.call('HGET', KEYS[1], 'holder')
local acquired = redis.call('HGET', KEYS[1], 'acquired_at')
local expires = redis.call('HGET', KEYS[1], 'expires_at')
local now = tonumber(ARGV[2])
local live = expires and tonumber(expires) > now
if holder and live and holder ~= ARGV[1] then
	return {0, holder, acquired, expires}
end
if not (holder == ARGV[1] and live) then
	acquired = ARGV[2]
end
redis.call('HSET', KEYS[1], 'holder', ARGV[1], 'acquired_at', acquired, 'expires_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {1, ARGV[1], acquired, ARGV[3]}
`)

	renewLeaseScript = redis.NewScript(`
local holder = redis.call('HGET', KEYS[1], 'holder')
local expires = redis.call('HGET', KEYS[1], 'expires_at')
if not holder or holder ~= ARGV[1] or tonumber(expires) <= tonumber(ARGV[2]) then
	return {-1}
end
redis.call('HSET', KEYS[1], 'expires_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {1, holder, redis.call('HGET', KEYS[1], 'acquired_at'), ARGV[3]}
`)

	releaseLeaseScript = redis.NewScript(`
local holder = redis.call('HGET', KEYS[1], 'holder')
local expires = redis.call('HGET', KEYS[1], 'expires_at')
if not holder or holder ~= ARGV[1] or tonumber(expires) <= tonumber(ARGV[2]) then
	return {-1}
end
redis.call('DEL', KEYS[1])
return {1}
`)
)

// RedisLeaseStore implements LeaseStore on a shared Redis so several foreman
// processes can coordinate without sharing one SQLite file. Each operation is
// one Lua script and therefore atomic on the server.
type RedisLeaseStore struct {
	client *redis.Client
}

// NewRedisLeaseStore creates a new RedisLeaseStore.
func NewRedisLeaseStore(client *redis.Client) *RedisLeaseStore {
	return &RedisLeaseStore{client: client}
}

func (s *RedisLeaseStore) Acquire(ctx context.Context, planID, actorID string, now time.Time, ttl time.Duration) (*domain.PlanEditLease, error) {
	reply, err := acquireLeaseScript.Run(ctx, s.client, []string{s.key(planID)},
		actorID, now.UnixMicro(), now.Add(ttl).UnixMicro(), ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("acquiring plan lease: %w", err)
	}
	lease, status, err := parseLeaseReply(planID, reply)
	if err != nil {
		return nil, err
	}
	if status == 0 {
		return nil, fmt.Errorf("plan %s held by %s until %s: %w",
			planID, lease.HolderID, lease.ExpiresAt.Format(time.RFC3339), domain.ErrLockHeld)
	}
	return lease, nil
}

func (s *RedisLeaseStore) Renew(ctx context.Context, planID, actorID string, now time.Time, ttl time.Duration) (*domain.PlanEditLease, error) {
	reply, err := renewLeaseScript.Run(ctx, s.client, []string{s.key(planID)},
		actorID, now.UnixMicro(), now.Add(ttl).UnixMicro(), ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("renewing plan lease: %w", err)
	}
	lease, status, err := parseLeaseReply(planID, reply)
	if err != nil {
		return nil, err
	}
	if status != 1 {
		return nil, fmt.Errorf("plan %s, actor %s: %w", planID, actorID, domain.ErrNotHolder)
	}
	return lease, nil
}

func (s *RedisLeaseStore) Release(ctx context.Context, planID, actorID string, now time.Time) error {
	reply, err := releaseLeaseScript.Run(ctx, s.client, []string{s.key(planID)},
		actorID, now.UnixMicro()).Slice()
	if err != nil {
		return fmt.Errorf("releasing plan lease: %w", err)
	}
	if _, status, err := parseLeaseReply(planID, reply); err != nil {
		return err
	} else if status != 1 {
		return fmt.Errorf("plan %s, actor %s: %w", planID, actorID, domain.ErrNotHolder)
	}
	return nil
}

func (s *RedisLeaseStore) Get(ctx context.Context, planID string, now time.Time) (*domain.PlanEditLease, error) {
	fields, err := s.client.HGetAll(ctx, s.key(planID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("plan %s: %w", planID, domain.ErrLeaseNotFound)
		}
		return nil, fmt.Errorf("loading plan lease: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("plan %s: %w", planID, domain.ErrLeaseNotFound)
	}
	lease, err := leaseFromStrings(planID, fields["holder"], fields["acquired_at"], fields["expires_at"])
	if err != nil {
		return nil, err
	}
	if !lease.LiveAt(now) {
		return nil, fmt.Errorf("plan %s: %w", planID, domain.ErrLeaseNotFound)
	}
	return lease, nil
}

func (s *RedisLeaseStore) key(planID string) string {
	return leaseKeyPrefix + planID
}

func parseLeaseReply(planID string, reply []any) (*domain.PlanEditLease, int64, error) {
	if len(reply) == 0 {
		return nil, 0, fmt.Errorf("empty lease script reply")
	}
	status, ok := reply[0].(int64)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected lease script status %T", reply[0])
	}
	if len(reply) < 4 {
		return nil, status, nil
	}
	holder, _ := reply[1].(string)
	acquired, _ := reply[2].(string)
	expires, _ := reply[3].(string)
	lease, err := leaseFromStrings(planID, holder, acquired, expires)
	return lease, status, err
}

func leaseFromStrings(planID, holder, acquired, expires string) (*domain.PlanEditLease, error) {
	acq, err := strconv.ParseInt(acquired, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing lease acquired_at %q: %w", acquired, err)
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing lease expires_at %q: %w", expires, err)
	}
	return &domain.PlanEditLease{
		PlanID:     planID,
		HolderID:   holder,
		AcquiredAt: time.UnixMicro(acq).UTC(),
		ExpiresAt:  time.UnixMicro(exp).UTC(),
	}, nil
}
