package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/record"
)

// redisStore keeps each partition under a handful of prefixed keys: a JSON
// array for ordered GetAll, a hash for GetByKey, one set per (index, value)
// for QueryByIndex, and a registry set naming the live index keys so a full
// replace can clean them up. Version metadata is a JSON value per table.
type redisStore struct {
	logger logger.Logger
	client *redis.Client
	prefix string

	mu      sync.RWMutex
	schemas map[string]Schema

	closed atomic.Bool
}

// NewRedis opens a Redis-backed store and verifies the connection
func NewRedis(log logger.Logger, cfg *RedisConfig) (Store, error) {
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(cfg.Options())
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, ErrOpen(err)
	}

	log.Debug("redis store connected", zap.String("addr", cfg.Addr))
	return &redisStore{
		logger:  log,
		client:  client,
		prefix:  cfg.KeyPrefix,
		schemas: make(map[string]Schema),
	}, nil
}

func (s *redisStore) docsKey(table string) string {
	return s.prefix + ":docs:" + table
}

func (s *redisStore) hashKey(table string) string {
	return s.prefix + ":bykey:" + table
}

func (s *redisStore) indexKey(table, index, value string) string {
	return s.prefix + ":ix:" + table + ":" + index + ":" + value
}

func (s *redisStore) registryKey(table string) string {
	return s.prefix + ":ixkeys:" + table
}

func (s *redisStore) versionKey(table string) string {
	return s.prefix + ":version:" + table
}

func (s *redisStore) schema(table string) (Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schemas[table]
	return sc, ok
}

func (s *redisStore) CreateTableStore(_ context.Context, schema Schema) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := schema.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema.Table] = schema
	return nil
}

func (s *redisStore) Save(ctx context.Context, table string, records []record.Record) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	schema, ok := s.schema(table)
	if !ok {
		return ErrUnknownTable(table)
	}

	type row struct {
		key string
		r   record.Record
		doc []byte
	}

	// Duplicate primary keys within a batch: the later record wins and
	// takes the later position.
	rows := make([]*row, 0, len(records))
	byKey := make(map[string]*row, len(records))
	for _, r := range records {
		key, ok := r.Key(schema.KeyPath)
		if !ok {
			s.logger.Warn("record without key field skipped",
				zap.String("table", table),
				zap.String("key_path", schema.KeyPath),
			)
			continue
		}
		doc, err := json.Marshal(r)
		if err != nil {
			return ErrEncode(err)
		}
		if prev, dup := byKey[key]; dup {
			prev.doc = nil
		}
		nr := &row{key: key, r: r, doc: doc}
		byKey[key] = nr
		rows = append(rows, nr)
	}

	ordered := make([]record.Record, 0, len(rows))
	hash := make(map[string]string, len(rows))
	indexMembers := make(map[string][]string)
	for _, rw := range rows {
		if rw.doc == nil {
			continue
		}
		ordered = append(ordered, rw.r)
		hash[rw.key] = string(rw.doc)
		for _, ix := range schema.Indexes {
			v, ok := rw.r.Value(ix.KeyPath)
			if !ok || v == nil {
				continue
			}
			ik := s.indexKey(table, ix.Name, record.String(v))
			if ix.Unique {
				indexMembers[ik] = []string{rw.key}
			} else {
				indexMembers[ik] = append(indexMembers[ik], rw.key)
			}
		}
	}

	docs, err := json.Marshal(ordered)
	if err != nil {
		return ErrEncode(err)
	}

	stale, err := s.client.SMembers(ctx, s.registryKey(table)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return ErrRead(err)
	}

	pipe := s.client.TxPipeline()
	if len(stale) > 0 {
		pipe.Del(ctx, stale...)
	}
	pipe.Del(ctx, s.docsKey(table), s.hashKey(table), s.registryKey(table))
	pipe.Set(ctx, s.docsKey(table), docs, 0)
	if len(hash) > 0 {
		pipe.HSet(ctx, s.hashKey(table), hash)
	}
	for ik, members := range indexMembers {
		args := make([]any, len(members))
		for i, m := range members {
			args[i] = m
		}
		pipe.SAdd(ctx, ik, args...)
		pipe.SAdd(ctx, s.registryKey(table), ik)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrWrite(err)
	}
	return nil
}

func (s *redisStore) GetAll(ctx context.Context, table string) ([]record.Record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if _, ok := s.schema(table); !ok {
		return nil, ErrUnknownTable(table)
	}

	raw, err := s.client.Get(ctx, s.docsKey(table)).Result()
	if errors.Is(err, redis.Nil) {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, ErrRead(err)
	}

	var out []record.Record
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, ErrEncode(err)
	}
	return out, nil
}

func (s *redisStore) GetByKey(ctx context.Context, table, key string) (record.Record, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	if _, ok := s.schema(table); !ok {
		return nil, false, ErrUnknownTable(table)
	}

	raw, err := s.client.HGet(ctx, s.hashKey(table), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrRead(err)
	}

	var r record.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, false, ErrEncode(err)
	}
	return r, true, nil
}

func (s *redisStore) QueryByIndex(ctx context.Context, table, index string, value any) ([]record.Record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	schema, ok := s.schema(table)
	if !ok {
		return nil, ErrUnknownTable(table)
	}
	if !schemaHasIndex(schema, index) {
		return nil, ErrUnknownIndex(table, index)
	}

	members, err := s.client.SMembers(ctx, s.indexKey(table, index, record.String(value))).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, ErrRead(err)
	}
	if len(members) == 0 {
		return []record.Record{}, nil
	}

	// Set members carry no order; sorting keeps repeated queries stable.
	sort.Strings(members)
	raws, err := s.client.HMGet(ctx, s.hashKey(table), members...).Result()
	if err != nil {
		return nil, ErrRead(err)
	}

	out := make([]record.Record, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var r record.Record
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, ErrEncode(err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *redisStore) SaveVersionMetadata(ctx context.Context, meta VersionMetadata) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	doc, err := json.Marshal(meta)
	if err != nil {
		return ErrEncode(err)
	}
	if err := s.client.Set(ctx, s.versionKey(meta.TableName), doc, 0).Err(); err != nil {
		return ErrWrite(err)
	}
	return nil
}

func (s *redisStore) GetVersionMetadata(ctx context.Context, table string) (VersionMetadata, bool, error) {
	if s.closed.Load() {
		return VersionMetadata{}, false, ErrStoreClosed
	}

	raw, err := s.client.Get(ctx, s.versionKey(table)).Result()
	if errors.Is(err, redis.Nil) {
		return VersionMetadata{}, false, nil
	}
	if err != nil {
		return VersionMetadata{}, false, ErrRead(err)
	}

	var meta VersionMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return VersionMetadata{}, false, ErrEncode(err)
	}
	return meta, true, nil
}

func (s *redisStore) DeleteTable(ctx context.Context, table string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, ok := s.schema(table); !ok {
		return ErrUnknownTable(table)
	}

	stale, err := s.client.SMembers(ctx, s.registryKey(table)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return ErrRead(err)
	}

	pipe := s.client.TxPipeline()
	if len(stale) > 0 {
		pipe.Del(ctx, stale...)
	}
	pipe.Del(ctx, s.docsKey(table), s.hashKey(table), s.registryKey(table))
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrWrite(err)
	}
	return nil
}

func (s *redisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}

var _ Store = (*redisStore)(nil)
