package storage

import (
	"chat-gateway/codec"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"cmp"
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
)

const groupSequenceKey = "group"

type KVOptions struct {
	// Prefix names the buckets: <prefix>_servers, <prefix>_groups and so on.
	Prefix string
	// ServerLease is the age after which a registration not renewed expires.
	ServerLease time.Duration
	// TokenMaxAge purges tokens nobody consumed. Zero keeps them.
	TokenMaxAge time.Duration
	Replicas    int
	// BindOnly fails on a missing bucket instead of creating it.
	BindOnly bool
}

// KVPresenceRepository implements contract.PresenceStore on JetStream
// key-value buckets so that every gateway instance sees the same servers,
// groups, memberships, watermarks and tokens.
//
// Buckets and keys:
//
//	<prefix>_servers    <serverID>              domain.Server, bucket TTL is the lease
//	<prefix>_groups     <groupID>               domain.Group
//	<prefix>_members    <groupID>.<b64 user>    membership
//	<prefix>_logins     <groupID>.<b64 user>    last login, unix millis
//	<prefix>_tokens     <token>                 tokenRecord
//	<prefix>_sequences  group                   last group id handed out
//
// User names are base64url encoded since KV keys only allow a small alphabet.
type KVPresenceRepository struct {
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time

	servers   nats.KeyValue
	groups    nats.KeyValue
	members   nats.KeyValue
	logins    nats.KeyValue
	tokens    nats.KeyValue
	sequences nats.KeyValue
}

type tokenRecord struct {
	Access domain.Access `cbor:"1,keyasint"`
	// ExpiresAt is zero for tokens that never expire.
	ExpiresAt time.Time `cbor:"2,keyasint"`
}

// NewKVPresenceRepository binds to the buckets, creating the missing ones.
func NewKVPresenceRepository(nc *nats.Conn, log *slog.Logger, opts KVOptions) (*KVPresenceRepository, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if opts.Prefix == "" {
		opts.Prefix = "chat"
	}
	if opts.Replicas <= 0 {
		opts.Replicas = 1
	}

	r := &KVPresenceRepository{log: log, validate: validator.New(), now: time.Now}
	buckets := []struct {
		kv   *nats.KeyValue
		name string
		ttl  time.Duration
	}{
		{&r.servers, "servers", opts.ServerLease},
		{&r.groups, "groups", 0},
		{&r.members, "members", 0},
		{&r.logins, "logins", 0},
		{&r.tokens, "tokens", opts.TokenMaxAge},
		{&r.sequences, "sequences", 0},
	}
	for _, b := range buckets {
		kv, err := bucket(js, log, &nats.KeyValueConfig{
			Bucket:   opts.Prefix + "_" + b.name,
			TTL:      b.ttl,
			Storage:  nats.FileStorage,
			Replicas: opts.Replicas,
		}, opts.BindOnly)
		if err != nil {
			return nil, err
		}
		*b.kv = kv
	}
	return r, nil
}

func bucket(js nats.JetStreamContext, log *slog.Logger, cfg *nats.KeyValueConfig, bindOnly bool) (nats.KeyValue, error) {
	kv, err := js.KeyValue(cfg.Bucket)
	if err == nil {
		if bindOnly {
			return kv, nil
		}
		if status, err := kv.Status(); err == nil && status.TTL() != cfg.TTL {
			log.Warn("Bucket TTL differs from configuration, keeping the bucket's",
				"bucket", cfg.Bucket, "ttl", status.TTL(), "configured", cfg.TTL)
		}
		return kv, nil
	}
	if bindOnly || !stderrors.Is(err, nats.ErrBucketNotFound) {
		return nil, fmt.Errorf("bind bucket %s: %w", cfg.Bucket, err)
	}
	kv, err = js.CreateKeyValue(cfg)
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
	}
	log.Info("Bucket created", "bucket", cfg.Bucket, "ttl", cfg.TTL)
	return kv, nil
}

func userKey(groupID domain.GroupID, user string) string {
	return string(groupID) + "." + base64.RawURLEncoding.EncodeToString([]byte(user))
}

func serverKVKey(id int64) string { return strconv.FormatInt(id, 10) }

func isMissing(err error) bool {
	return stderrors.Is(err, nats.ErrKeyNotFound) || stderrors.Is(err, nats.ErrKeyDeleted) ||
		stderrors.Is(err, nats.ErrInvalidKey)
}

// isConflict reports a failed compare-and-set: the key was written or
// deleted since the revision we read.
func isConflict(err error) bool {
	if stderrors.Is(err, nats.ErrKeyExists) {
		return true
	}
	var apiErr *nats.APIError
	return stderrors.As(err, &apiErr) && apiErr.ErrorCode == nats.JSErrCodeStreamWrongLastSequence
}

// create reports false when a live value already holds the key.
func create(kv nats.KeyValue, key string, value []byte) (bool, error) {
	_, err := kv.Create(key, value)
	if isConflict(err) {
		return false, nil
	}
	return err == nil, err
}

// remove deletes the key at the revision it was read at and reports whether
// this call removed it.
func remove(kv nats.KeyValue, key string) (bool, error) {
	entry, err := kv.Get(key)
	if isMissing(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = kv.Delete(key, nats.LastRevision(entry.Revision()))
	if isConflict(err) {
		return false, nil
	}
	return err == nil, err
}

func getValue(kv nats.KeyValue, key string, v any) (bool, error) {
	entry, err := kv.Get(key)
	if isMissing(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, codec.Unmarshal(entry.Value(), v)
}

// scan returns the live entries whose key matches pattern.
func scan(ctx context.Context, kv nats.KeyValue, pattern string, opts ...nats.WatchOpt) ([]nats.KeyValueEntry, error) {
	w, err := kv.Watch(pattern, append(opts, nats.IgnoreDeletes())...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = w.Stop() }()

	var entries []nats.KeyValueEntry
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry, ok := <-w.Updates():
			if !ok || entry == nil {
				return entries, nil
			}
			entries = append(entries, entry)
		}
	}
}

func (r *KVPresenceRepository) RegisterServer(_ context.Context, server domain.Server) (bool, error) {
	data, err := codec.Marshal(server)
	if err != nil {
		return false, err
	}
	return create(r.servers, serverKVKey(server.ID), data)
}

// RenewServer rewrites the registration at the revision holding the same
// StartedAt, which restarts its age in the bucket.
func (r *KVPresenceRepository) RenewServer(_ context.Context, server domain.Server) (bool, error) {
	key := serverKVKey(server.ID)
	entry, err := r.servers.Get(key)
	if isMissing(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var current domain.Server
	if err := codec.Unmarshal(entry.Value(), &current); err != nil {
		return false, err
	}
	if !current.StartedAt.Equal(server.StartedAt) {
		return false, nil
	}
	data, err := codec.Marshal(server)
	if err != nil {
		return false, err
	}
	_, err = r.servers.Update(key, data, entry.Revision())
	if isConflict(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *KVPresenceRepository) UnregisterServer(_ context.Context, serverID int64) (bool, error) {
	return remove(r.servers, serverKVKey(serverID))
}

func (r *KVPresenceRepository) ServerInfo(_ context.Context, serverID int64) (domain.Server, error) {
	var server domain.Server
	found, err := getValue(r.servers, serverKVKey(serverID), &server)
	if err != nil {
		return domain.Server{}, err
	}
	if !found {
		return domain.Server{}, errors.ErrServerNotFound
	}
	return server, nil
}

func (r *KVPresenceRepository) ListServers(ctx context.Context) ([]domain.Server, error) {
	entries, err := scan(ctx, r.servers, ">")
	if err != nil {
		return nil, err
	}
	servers := make([]domain.Server, 0, len(entries))
	for _, e := range entries {
		var server domain.Server
		if err := codec.Unmarshal(e.Value(), &server); err != nil {
			return nil, fmt.Errorf("decode server %s: %w", e.Key(), err)
		}
		servers = append(servers, server)
	}
	slices.SortFunc(servers, func(a, b domain.Server) int { return cmp.Compare(a.ID, b.ID) })
	return servers, nil
}

func (r *KVPresenceRepository) GroupInfo(_ context.Context, groupID domain.GroupID) (domain.Group, error) {
	var group domain.Group
	found, err := getValue(r.groups, string(groupID), &group)
	if err != nil {
		return domain.Group{}, err
	}
	if !found {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	return group, nil
}

// NextGroupID increments the shared sequence with compare-and-set, retrying
// when another instance won the race.
func (r *KVPresenceRepository) NextGroupID(ctx context.Context) (domain.GroupID, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		entry, err := r.sequences.Get(groupSequenceKey)
		if isMissing(err) {
			created, err := create(r.sequences, groupSequenceKey, []byte("1"))
			if err != nil {
				return "", err
			}
			if created {
				return "1", nil
			}
			continue
		}
		if err != nil {
			return "", err
		}
		last, err := strconv.ParseUint(string(entry.Value()), 10, 64)
		if err != nil {
			return "", fmt.Errorf("group sequence: %w", err)
		}
		next := strconv.FormatUint(last+1, 10)
		_, err = r.sequences.Update(groupSequenceKey, []byte(next), entry.Revision())
		if isConflict(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		return domain.GroupID(next), nil
	}
}

func (r *KVPresenceRepository) CreateGroup(_ context.Context, group domain.Group) (bool, error) {
	if _, err := group.ID.Numeric(); err != nil {
		return false, err
	}
	data, err := codec.Marshal(group)
	if err != nil {
		return false, err
	}
	return create(r.groups, string(group.ID), data)
}

// DeleteGroup removes the group, then its memberships. Login watermarks are kept.
func (r *KVPresenceRepository) DeleteGroup(ctx context.Context, groupID domain.GroupID) (bool, error) {
	deleted, err := remove(r.groups, string(groupID))
	if err != nil || !deleted {
		return deleted, err
	}
	entries, err := scan(ctx, r.members, string(groupID)+".*", nats.MetaOnly())
	if err != nil {
		return true, fmt.Errorf("list members of %s: %w", groupID, err)
	}
	var errs []error
	for _, e := range entries {
		if err := r.members.Delete(e.Key()); err != nil {
			errs = append(errs, err)
		}
	}
	return true, stderrors.Join(errs...)
}

func (r *KVPresenceRepository) JoinGroup(_ context.Context, groupID domain.GroupID, user string) (bool, error) {
	return create(r.members, userKey(groupID, user), []byte{1})
}

func (r *KVPresenceRepository) LeaveGroup(_ context.Context, groupID domain.GroupID, user string) (bool, error) {
	return remove(r.members, userKey(groupID, user))
}

func (r *KVPresenceRepository) MemberCount(ctx context.Context, groupID domain.GroupID) (int, error) {
	members, err := r.Members(ctx, groupID, 0)
	return len(members), err
}

// Members lists at most limit members in name order; limit <= 0 lists all of them.
func (r *KVPresenceRepository) Members(ctx context.Context, groupID domain.GroupID, limit int) ([]string, error) {
	entries, err := scan(ctx, r.members, string(groupID)+".*", nats.MetaOnly())
	if err != nil {
		return nil, err
	}
	prefix := len(groupID) + 1
	members := make([]string, 0, len(entries))
	for _, e := range entries {
		user, err := base64.RawURLEncoding.DecodeString(e.Key()[prefix:])
		if err != nil {
			r.log.Warn("Skipping malformed member key", "key", e.Key(), "error", err)
			continue
		}
		members = append(members, string(user))
	}
	slices.Sort(members)
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

func (r *KVPresenceRepository) GetLastLogin(_ context.Context, groupID domain.GroupID, user string) (time.Time, bool, error) {
	entry, err := r.logins.Get(userKey(groupID, user))
	if isMissing(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(string(entry.Value()), 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(millis).UTC(), true, nil
}

func (r *KVPresenceRepository) SetLastLogin(_ context.Context, groupID domain.GroupID, user string, at time.Time) error {
	_, err := r.logins.PutString(userKey(groupID, user), strconv.FormatInt(at.UnixMilli(), 10))
	return err
}

func (r *KVPresenceRepository) IssueToken(ctx context.Context, token string, access domain.Access) error {
	return r.IssueExpiringToken(ctx, token, access, 0)
}

// IssueExpiringToken stores a token resolving to access. A zero ttl never
// expires, short of the bucket max age.
func (r *KVPresenceRepository) IssueExpiringToken(_ context.Context, token string, access domain.Access, ttl time.Duration) error {
	if err := r.validate.Struct(access); err != nil {
		return fmt.Errorf("invalid access for token: %w", err)
	}
	record := tokenRecord{Access: access}
	if ttl > 0 {
		record.ExpiresAt = r.now().Add(ttl).UTC()
	}
	data, err := codec.Marshal(record)
	if err != nil {
		return err
	}
	_, err = r.tokens.Put(token, data)
	return err
}

// ConsumeTokenOnce deletes the token at the revision it was read at. When two
// callers race, the loser's delete conflicts and sees ErrTokenNotFound.
func (r *KVPresenceRepository) ConsumeTokenOnce(_ context.Context, token string) (domain.Access, error) {
	entry, err := r.tokens.Get(token)
	if isMissing(err) {
		return domain.Access{}, errors.ErrTokenNotFound
	}
	if err != nil {
		return domain.Access{}, err
	}
	var record tokenRecord
	if err := codec.Unmarshal(entry.Value(), &record); err != nil {
		return domain.Access{}, err
	}
	err = r.tokens.Delete(token, nats.LastRevision(entry.Revision()))
	if isConflict(err) {
		return domain.Access{}, errors.ErrTokenNotFound
	}
	if err != nil {
		return domain.Access{}, err
	}
	if !record.ExpiresAt.IsZero() && !r.now().Before(record.ExpiresAt) {
		return domain.Access{}, errors.ErrTokenNotFound
	}
	return record.Access, nil
}

// Close is a no-op: the connection belongs to the caller.
func (r *KVPresenceRepository) Close() error { return nil }
