package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_CreatesDirsAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "record.json")

	require.NoError(t, WriteAtomic(path, []byte(`{"a":1}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteAtomic_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	require.NoError(t, WriteAtomic(path, []byte("one")))
	require.NoError(t, WriteAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

type entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func entryValid(e *entry) bool { return e.ID != "" && e.Name != "" }

func TestDecodeListLenient_Strict(t *testing.T) {
	got, err := DecodeListLenient[entry]([]byte(`[{"id":"1","name":"a"}]`), entryValid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
}

func TestDecodeListLenient_RecoversFromGarbagePrefix(t *testing.T) {
	raw := []byte("%%garbage%%[{\"id\":\"1\",\"name\":\"a\"},{\"id\":\"2\",\"name\":\"b\"}]trailing")

	got, err := DecodeListLenient[entry](raw, entryValid)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDecodeListLenient_FiltersInvalidEntries(t *testing.T) {
	raw := []byte(`x[{"id":"1","name":"a"},{"id":"","name":""},{"other":true}]`)

	got, err := DecodeListLenient[entry](raw, entryValid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestDecodeListLenient_NothingSalvageable(t *testing.T) {
	_, err := DecodeListLenient[entry]([]byte("no brackets at all"), entryValid)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = DecodeListLenient[entry]([]byte(`["broken`), entryValid)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeObjectLenient(t *testing.T) {
	got, err := DecodeObjectLenient[entry]([]byte(`junk{"id":"9","name":"z"}junk`), entryValid)
	require.NoError(t, err)
	assert.Equal(t, "9", got.ID)

	_, err = DecodeObjectLenient[entry]([]byte("nothing here"), entryValid)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestKeyLock_SerializesPerKey(t *testing.T) {
	locks := NewKeyLock()

	var n int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("stats", 7)
			defer unlock()
			n++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, n)
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	locks := NewKeyLock()

	unlockA := locks.Lock("stats", 1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("stats", 2)
		unlockB()
		close(done)
	}()
	<-done
}
