package db

import "errors"

// ErrKeyNotFound reports a missing key or an empty hash.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names carried by Error.
const (
	OpPing      = "PING"
	OpHSet      = "HSET"
	OpHGetAll   = "HGETALL"
	OpSAdd      = "SADD"
	OpSRem      = "SREM"
	OpSMembers  = "SMEMBERS"
	OpSIsMember = "SISMEMBER"
	OpSCard     = "SCARD"
	OpGet       = "GET"
	OpMGet      = "MGET"
	OpSet       = "SET"
	OpIncrBy    = "INCRBY"
	OpDel       = "DEL"
)

// Error is a failed Redis command. Unwrap yields the client error.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
