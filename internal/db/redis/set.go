package redis

import (
	"context"

	"github.com/kailas-cloud/docuquery/internal/db"
)

// SAdd adds members to the set at key.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Sadd().Key(key).Member(members...).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpSAdd, Key: key, Err: err}
	}
	return nil
}

// SRem removes members and returns how many were present.
func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	n, err := s.client.Do(ctx, s.client.B().Srem().Key(key).Member(members...).Build()).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSRem, Key: key, Err: err}
	}
	return n, nil
}

// SMembers lists the set at key. A missing set is empty.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.Do(ctx, s.client.B().Smembers().Key(key).Build()).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpSMembers, Key: key, Err: err}
	}
	return members, nil
}

// SIsMember reports whether member belongs to the set at key.
func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	n, err := s.client.Do(ctx, s.client.B().Sismember().Key(key).Member(member).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpSIsMember, Key: key, Err: err}
	}
	return n == 1, nil
}

// SCard returns the set size.
func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Do(ctx, s.client.B().Scard().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSCard, Key: key, Err: err}
	}
	return n, nil
}
