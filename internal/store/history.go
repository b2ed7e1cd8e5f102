package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/elixxir/ekv"

	"parley/internal/domain"
)

// recordKey and indexKey shape the key space: one entry per message and
// one id list per room.
func recordKey(id string) string    { return "msg/" + id }
func indexKey(roomID string) string { return "room/" + roomID }

// storedRecord wraps HistoryRecord so it satisfies ekv's Marshaler and
// Unmarshaler.
type storedRecord struct {
	domain.HistoryRecord
}

func (r *storedRecord) Marshal() []byte {
	d, err := json.Marshal(r.HistoryRecord)
	if err != nil {
		// All fields are plain data; failing to marshal means the record
		// itself is broken.
		panic(fmt.Sprintf("marshal history record: %+v", err))
	}
	return d
}

func (r *storedRecord) Unmarshal(data []byte) error {
	return json.Unmarshal(data, &r.HistoryRecord)
}

// roomIndex is the ordered id list for one room.
type roomIndex struct {
	IDs []string `json:"ids"`
}

func (i *roomIndex) Marshal() []byte {
	d, err := json.Marshal(i)
	if err != nil {
		panic(fmt.Sprintf("marshal room index: %+v", err))
	}
	return d
}

func (i *roomIndex) Unmarshal(data []byte) error {
	return json.Unmarshal(data, i)
}

// History records envelopes per room in arrival order on top of an
// ekv.KeyValue. The mutex serializes the read-modify-write on the room
// index.
type History struct {
	mu sync.Mutex
	kv ekv.KeyValue
}

var _ domain.History = (*History)(nil)

// New wraps an existing key/value store, typically an ekv.Memstore in
// tests.
func New(kv ekv.KeyValue) *History {
	return &History{kv: kv}
}

// NewFileBacked opens (or creates) an encrypted file store under baseDir.
// The password protects the files at rest.
func NewFileBacked(baseDir, password string) (*History, error) {
	fs, err := ekv.NewFilestore(baseDir, password)
	if err != nil {
		return nil, errors.Wrapf(err, "open history store at %q", baseDir)
	}
	return New(fs), nil
}

// SaveEnvelope appends one record. Saving the same id again overwrites
// the record but does not duplicate the index entry.
func (h *History) SaveEnvelope(rec domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.kv.Set(recordKey(rec.ID), &storedRecord{rec}); err != nil {
		return errors.Wrapf(err, "store record %s", rec.ID)
	}

	idx := h.loadIndex(rec.RoomID)
	for _, id := range idx.IDs {
		if id == rec.ID {
			return nil
		}
	}
	idx.IDs = append(idx.IDs, rec.ID)
	if err := h.kv.Set(indexKey(rec.RoomID), idx); err != nil {
		return errors.Wrapf(err, "store index for room %s", rec.RoomID)
	}
	return nil
}

// LoadRoom returns the room's records in the order they were saved. A
// room with no history yields an empty slice.
func (h *History) LoadRoom(roomID string) ([]domain.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.loadIndex(roomID)
	out := make([]domain.HistoryRecord, 0, len(idx.IDs))
	for _, id := range idx.IDs {
		var rec storedRecord
		if err := h.kv.Get(recordKey(id), &rec); err != nil {
			return nil, errors.Wrapf(err, "load record %s", id)
		}
		out = append(out, rec.HistoryRecord)
	}
	return out, nil
}

// loadIndex reads the room's id list; a missing index means no history
// for that room yet.
func (h *History) loadIndex(roomID string) *roomIndex {
	idx := &roomIndex{}
	if err := h.kv.Get(indexKey(roomID), idx); err != nil {
		return &roomIndex{}
	}
	return idx
}
