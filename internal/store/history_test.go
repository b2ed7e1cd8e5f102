package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/elixxir/ekv"

	"parley/internal/domain"
)

func testRecord(i int, roomID string) domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:        fmt.Sprintf("msg-%03d", i),
		RoomID:    roomID,
		Sender:    "alice",
		Envelope:  fmt.Sprintf("b64-envelope-%03d", i),
		Timestamp: int64(1_700_000_000_000 + i),
	}
}

func TestSaveAndLoadPreservesOrder(t *testing.T) {
	h := New(ekv.MakeMemstore())

	for i := 0; i < 5; i++ {
		require.NoError(t, h.SaveEnvelope(testRecord(i, "r1")))
	}

	recs, err := h.LoadRoom("r1")
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for i, rec := range recs {
		require.Equal(t, testRecord(i, "r1"), rec)
	}
}

func TestLoadUnknownRoomIsEmpty(t *testing.T) {
	h := New(ekv.MakeMemstore())
	recs, err := h.LoadRoom("never-seen")
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestRoomsDoNotLeakIntoEachOther(t *testing.T) {
	h := New(ekv.MakeMemstore())
	require.NoError(t, h.SaveEnvelope(testRecord(0, "r1")))
	require.NoError(t, h.SaveEnvelope(testRecord(1, "r2")))

	recs, err := h.LoadRoom("r1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "r1", recs[0].RoomID)
}

func TestResaveOverwritesWithoutDuplicating(t *testing.T) {
	h := New(ekv.MakeMemstore())
	rec := testRecord(0, "r1")
	require.NoError(t, h.SaveEnvelope(rec))

	rec.Envelope = "b64-envelope-edited"
	require.NoError(t, h.SaveEnvelope(rec))

	recs, err := h.LoadRoom("r1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "b64-envelope-edited", recs[0].Envelope)
}

func TestFileBackedRoundTrip(t *testing.T) {
	dir := t.TempDir()

	h, err := NewFileBacked(dir, "hunter2")
	require.NoError(t, err)
	require.NoError(t, h.SaveEnvelope(testRecord(0, "r1")))

	// A second handle over the same directory sees the data.
	reopened, err := NewFileBacked(dir, "hunter2")
	require.NoError(t, err)
	recs, err := reopened.LoadRoom("r1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, testRecord(0, "r1"), recs[0])
}
