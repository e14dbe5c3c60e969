package storage

import (
	"chat-gateway/codec"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
)

// PresenceRepository implements contract.PresenceStore on BadgerDB.
//
// Keys:
//
//	svr:<serverID>          domain.Server, expiring with the server lease
//	grp:<groupID>           domain.Group
//	mbr:<groupID>:<user>    membership, empty value
//	llt:<groupID>:<user>    last login, unix millis
//	tok:<token>             domain.Access, optionally expiring
//	seq:group               group id sequence
type PresenceRepository struct {
	db       *badger.DB
	log      *slog.Logger
	validate *validator.Validate
	lease    time.Duration

	seqMu sync.Mutex
	seq   *badger.Sequence
}

func NewPresenceRepository(db *badger.DB, log *slog.Logger) *PresenceRepository {
	return &PresenceRepository{db: db, log: log, validate: validator.New()}
}

// WithServerLease makes server registrations expire unless renewed within
// lease. Zero keeps them until UnregisterServer.
func (r *PresenceRepository) WithServerLease(lease time.Duration) *PresenceRepository {
	r.lease = lease
	return r
}

func (r *PresenceRepository) serverEntry(server domain.Server) (*badger.Entry, error) {
	data, err := codec.Marshal(server)
	if err != nil {
		return nil, err
	}
	e := badger.NewEntry(serverKey(server.ID), data)
	if r.lease > 0 {
		e = e.WithTTL(r.lease)
	}
	return e, nil
}

func serverKey(id int64) []byte { return []byte(fmt.Sprintf("svr:%d", id)) }

func groupKey(id domain.GroupID) []byte { return []byte("grp:" + string(id)) }

func memberPrefix(id domain.GroupID) []byte { return []byte("mbr:" + string(id) + ":") }

func memberKey(id domain.GroupID, user string) []byte {
	return append(memberPrefix(id), user...)
}

func lastLoginKey(id domain.GroupID, user string) []byte {
	return []byte("llt:" + string(id) + ":" + user)
}

func tokenKey(token string) []byte { return []byte("tok:" + token) }

// setIfAbsent reports false when the key already exists or when a concurrent
// writer created it first.
func (r *PresenceRepository) setIfAbsent(key []byte, value []byte) (bool, error) {
	created := false
	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		created = true
		return txn.Set(key, value)
	})
	if err == badger.ErrConflict {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return created, nil
}

// deleteIfPresent reports whether the key existed.
func (r *PresenceRepository) deleteIfPresent(key []byte) (bool, error) {
	deleted := false
	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		return txn.Delete(key)
	})
	if err == badger.ErrConflict {
		return false, nil
	}
	return deleted, err
}

func (r *PresenceRepository) get(key []byte, v any) error {
	return r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return codec.Unmarshal(val, v)
		})
	})
}

func (r *PresenceRepository) RegisterServer(_ context.Context, server domain.Server) (bool, error) {
	e, err := r.serverEntry(server)
	if err != nil {
		return false, err
	}
	created := false
	err = r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.Key)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		created = true
		return txn.SetEntry(e)
	})
	if err == badger.ErrConflict {
		return false, nil
	}
	return created, err
}

// RenewServer rewrites the registration only while it still carries the
// StartedAt of server.
func (r *PresenceRepository) RenewServer(_ context.Context, server domain.Server) (bool, error) {
	e, err := r.serverEntry(server)
	if err != nil {
		return false, err
	}
	renewed := false
	err = r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(e.Key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var current domain.Server
		if err := item.Value(func(v []byte) error {
			return codec.Unmarshal(v, &current)
		}); err != nil {
			return err
		}
		if !current.StartedAt.Equal(server.StartedAt) {
			return nil
		}
		renewed = true
		return txn.SetEntry(e)
	})
	if err == badger.ErrConflict {
		return false, nil
	}
	return renewed, err
}

func (r *PresenceRepository) UnregisterServer(_ context.Context, serverID int64) (bool, error) {
	return r.deleteIfPresent(serverKey(serverID))
}

func (r *PresenceRepository) ServerInfo(_ context.Context, serverID int64) (domain.Server, error) {
	var server domain.Server
	err := r.get(serverKey(serverID), &server)
	if err == badger.ErrKeyNotFound {
		return domain.Server{}, errors.ErrServerNotFound
	}
	return server, err
}

func (r *PresenceRepository) ListServers(_ context.Context) ([]domain.Server, error) {
	var servers []domain.Server
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("svr:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var server domain.Server
			if err := it.Item().Value(func(v []byte) error {
				return codec.Unmarshal(v, &server)
			}); err != nil {
				return err
			}
			servers = append(servers, server)
		}
		return nil
	})
	return servers, err
}

func (r *PresenceRepository) GroupInfo(_ context.Context, groupID domain.GroupID) (domain.Group, error) {
	var group domain.Group
	err := r.get(groupKey(groupID), &group)
	if err == badger.ErrKeyNotFound {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	return group, err
}

// NextGroupID hands out increasing numeric ids starting at 1.
func (r *PresenceRepository) NextGroupID(_ context.Context) (domain.GroupID, error) {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	if r.seq == nil {
		seq, err := r.db.GetSequence([]byte("seq:group"), 100)
		if err != nil {
			return "", err
		}
		r.seq = seq
	}
	n, err := r.seq.Next()
	if err != nil {
		return "", err
	}
	return domain.GroupID(strconv.FormatUint(n+1, 10)), nil
}

func (r *PresenceRepository) CreateGroup(_ context.Context, group domain.Group) (bool, error) {
	if _, err := group.ID.Numeric(); err != nil {
		return false, err
	}
	data, err := codec.Marshal(group)
	if err != nil {
		return false, err
	}
	return r.setIfAbsent(groupKey(group.ID), data)
}

// DeleteGroup removes the group and its memberships. Login watermarks are kept.
func (r *PresenceRepository) DeleteGroup(_ context.Context, groupID domain.GroupID) (bool, error) {
	deleted := false
	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(groupKey(groupID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		if err := txn.Delete(groupKey(groupID)); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := memberPrefix(groupID)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return deleted, err
}

func (r *PresenceRepository) JoinGroup(_ context.Context, groupID domain.GroupID, user string) (bool, error) {
	return r.setIfAbsent(memberKey(groupID, user), nil)
}

func (r *PresenceRepository) LeaveGroup(_ context.Context, groupID domain.GroupID, user string) (bool, error) {
	return r.deleteIfPresent(memberKey(groupID, user))
}

func (r *PresenceRepository) MemberCount(ctx context.Context, groupID domain.GroupID) (int, error) {
	members, err := r.Members(ctx, groupID, 0)
	return len(members), err
}

// Members lists at most limit members in key order; limit <= 0 lists all of them.
func (r *PresenceRepository) Members(_ context.Context, groupID domain.GroupID, limit int) ([]string, error) {
	var members []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := memberPrefix(groupID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(members) == limit {
				break
			}
			members = append(members, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return members, err
}

func (r *PresenceRepository) GetLastLogin(_ context.Context, groupID domain.GroupID, user string) (time.Time, bool, error) {
	var at time.Time
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastLoginKey(groupID, user))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			millis, err := strconv.ParseInt(string(v), 10, 64)
			if err != nil {
				return err
			}
			at = time.UnixMilli(millis).UTC()
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

func (r *PresenceRepository) SetLastLogin(_ context.Context, groupID domain.GroupID, user string, at time.Time) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lastLoginKey(groupID, user), []byte(strconv.FormatInt(at.UnixMilli(), 10)))
	})
}

func (r *PresenceRepository) IssueToken(ctx context.Context, token string, access domain.Access) error {
	return r.IssueExpiringToken(ctx, token, access, 0)
}

// IssueExpiringToken stores a token resolving to access. A zero ttl never expires.
func (r *PresenceRepository) IssueExpiringToken(_ context.Context, token string, access domain.Access, ttl time.Duration) error {
	if err := r.validate.Struct(access); err != nil {
		return fmt.Errorf("invalid access for token: %w", err)
	}
	data, err := codec.Marshal(access)
	if err != nil {
		return err
	}
	e := badger.NewEntry(tokenKey(token), data)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
}

// ConsumeTokenOnce resolves and deletes the token in one transaction. When two
// callers race, the losing commit conflicts and sees ErrTokenNotFound.
func (r *PresenceRepository) ConsumeTokenOnce(_ context.Context, token string) (domain.Access, error) {
	var access domain.Access
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey(token))
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error {
			return codec.Unmarshal(v, &access)
		}); err != nil {
			return err
		}
		return txn.Delete(tokenKey(token))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) || stderrors.Is(err, badger.ErrConflict) {
		return domain.Access{}, errors.ErrTokenNotFound
	}
	if err != nil {
		return domain.Access{}, err
	}
	return access, nil
}

// Close releases the group id lease. The database belongs to the caller.
func (r *PresenceRepository) Close() error {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	if r.seq == nil {
		return nil
	}
	err := r.seq.Release()
	r.seq = nil
	return err
}
