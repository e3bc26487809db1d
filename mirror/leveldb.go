package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"voting-ledger/models"
)

// LevelDBStore keeps the mirror in a local ordered key/value store. Keys are
// "<collection>/<timestamp>/<uuid>"; block timestamps are fixed width so key
// order is chain order.
type LevelDBStore struct {
	sync.Mutex
	db  *leveldb.DB
	log *logger.L
}

// OpenLevelDB opens or creates the mirror database at path.
func OpenLevelDB(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		ErrorIfMissing: false,
	})
	if err != nil {
		return nil, err
	}
	return newLevelDB(db), nil
}

// NewMemoryLevelDB returns a mirror backed by memory only.
func NewMemoryLevelDB() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newLevelDB(db), nil
}

func newLevelDB(db *leveldb.DB) *LevelDBStore {
	return &LevelDBStore{
		db:  db,
		log: logger.New("mirror"),
	}
}

func (l *LevelDBStore) Name() string {
	return "leveldb"
}

func collectionPrefix(collection string) []byte {
	return []byte(collection + "/")
}

func recordKey(collection string, timestamp string) []byte {
	return []byte(collection + "/" + timestamp + "/" + uuid.New().String())
}

func (l *LevelDBStore) Tip(ctx context.Context) (*models.ChainBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	iter := l.db.NewIterator(util.BytesPrefix(collectionPrefix(ChainCollection)), nil)
	defer iter.Release()

	if !iter.Last() {
		return nil, iter.Error()
	}

	var block models.ChainBlock
	if err := json.Unmarshal(iter.Value(), &block); err != nil {
		return nil, fmt.Errorf("decode tip %q: %w", iter.Key(), err)
	}
	block.ID = string(iter.Key())
	return &block, nil
}

func (l *LevelDBStore) AppendBlock(ctx context.Context, block *models.ChainBlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	key := recordKey(ChainCollection, block.Timestamp)
	if err := l.db.Put(key, data, nil); err != nil {
		return err
	}
	block.ID = string(key)
	l.log.Debugf("block stored: %s", key)
	return nil
}

func (l *LevelDBStore) AppendVote(ctx context.Context, vote *models.MirrorVote) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(vote)
	if err != nil {
		return err
	}
	return l.db.Put(recordKey(VoteCollection, models.FormatTimestamp(vote.Timestamp)), data, nil)
}

func (l *LevelDBStore) Chain(ctx context.Context) ([]*models.ChainBlock, error) {
	iter := l.db.NewIterator(util.BytesPrefix(collectionPrefix(ChainCollection)), nil)
	defer iter.Release()

	blocks := make([]*models.ChainBlock, 0)
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// value is only valid until the next call to Next
		var block models.ChainBlock
		if err := json.Unmarshal(iter.Value(), &block); err != nil {
			return nil, fmt.Errorf("decode block %q: %w", iter.Key(), err)
		}
		block.ID = string(iter.Key())
		blocks = append(blocks, &block)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Votes returns the mirrored vote copies in cast order.
func (l *LevelDBStore) Votes(ctx context.Context) ([]*models.MirrorVote, error) {
	iter := l.db.NewIterator(util.BytesPrefix(collectionPrefix(VoteCollection)), nil)
	defer iter.Release()

	votes := make([]*models.MirrorVote, 0)
	for iter.Next() {
		var vote models.MirrorVote
		if err := json.Unmarshal(iter.Value(), &vote); err != nil {
			return nil, fmt.Errorf("decode vote %q: %w", iter.Key(), err)
		}
		votes = append(votes, &vote)
	}
	return votes, iter.Error()
}

// Overwrite replaces the stored value of the block whose key is block.ID.
func (l *LevelDBStore) Overwrite(block *models.ChainBlock) error {
	if block.ID == "" {
		return fmt.Errorf("block has no key")
	}
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}
	return l.db.Put([]byte(block.ID), data, nil)
}

// Close releases the database. The handle is kept so that later calls
// fail with leveldb.ErrClosed; closing twice is not an error.
func (l *LevelDBStore) Close() error {
	l.Lock()
	defer l.Unlock()

	err := l.db.Close()
	if errors.Is(err, leveldb.ErrClosed) {
		return nil
	}
	return err
}
