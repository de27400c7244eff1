package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CompletedSetKey returns the set of assessment ids finished within a browser context or user.
func (r *CacheKeyStruct) CompletedSetKey(scope string) string {
	return fmt.Sprintf("ctx:%s:completed", scope)
}

// RevokedTokenKey marks a logged-out token id until it would have expired anyway.
func (r *CacheKeyStruct) RevokedTokenKey(tokenID string) string {
	return fmt.Sprintf("token:%s:revoked", tokenID)
}

// ProctorEventsChannel is the Redis PubSub channel carrying live proctoring events.
func (r *CacheKeyStruct) ProctorEventsChannel() string {
	return "proctor:events"
}

var CacheKey = NewCacheKeyStruct()
