package settings_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"i4.energy/across/remoteio/settings"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected byte
	}{
		{name: "empty", input: nil, expected: 0},
		{name: "single byte", input: []byte{0x41}, expected: 0x41},
		{name: "rotation before add", input: []byte{0x80, 0x01}, expected: 0x02},
		{name: "three bytes", input: []byte{1, 2, 3}, expected: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, settings.Checksum(tt.input))
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	rec := settings.Defaults()
	rec.IP = [4]byte{10, 0, 0, 7}
	rec.UART[1].BaudRate = 57600

	image, err := settings.Encode(rec)
	require.NoError(t, err)
	require.Len(t, image, settings.Size)

	got, err := settings.Decode(image)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeRejects(t *testing.T) {
	image, err := settings.Encode(settings.Defaults())
	require.NoError(t, err)

	t.Run("Corrupted byte", func(t *testing.T) {
		bad := append([]byte(nil), image...)
		bad[3] ^= 0xFF
		_, err := settings.Decode(bad)
		assert.ErrorIs(t, err, settings.ErrChecksum)
	})

	t.Run("Version mismatch", func(t *testing.T) {
		rec := settings.Defaults()
		rec.Version = settings.Version + 1
		other, err := settings.Encode(rec)
		require.NoError(t, err)

		_, err = settings.Decode(other)
		assert.ErrorIs(t, err, settings.ErrVersion)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := settings.Decode(image[:len(image)-2])
		assert.ErrorIs(t, err, settings.ErrSize)
	})
}

func TestOpen(t *testing.T) {
	t.Run("Loads stored record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		rec := settings.Defaults()
		rec.TCPPort = 9000
		image, err := settings.Encode(rec)
		require.NoError(t, err)

		store := settings.NewMockStore(ctrl)
		store.EXPECT().Load().Return(image, nil)

		m, err := settings.Open(discardLogger(), store)
		require.NoError(t, err)
		assert.Equal(t, uint16(9000), m.Snapshot().TCPPort)
	})

	t.Run("Corrupted record falls back to defaults and is saved", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		image, err := settings.Encode(settings.Defaults())
		require.NoError(t, err)
		image[0] ^= 0x10

		store := settings.NewMockStore(ctrl)
		gomock.InOrder(
			store.EXPECT().Load().Return(image, nil),
			store.EXPECT().Save(gomock.Any()).DoAndReturn(func(p []byte) error {
				_, err := settings.Decode(p)
				return err
			}),
		)

		m, err := settings.Open(discardLogger(), store)
		require.NoError(t, err)

		got := m.Snapshot()
		want := settings.Defaults()
		assert.Equal(t, want.IP, got.IP)
		assert.Equal(t, want.UART, got.UART)
		assert.Equal(t, byte(0x02), got.MAC[0]&0x03, "restored MAC must be locally administered unicast")
	})

	t.Run("Save failure during restore", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := settings.NewMockStore(ctrl)
		store.EXPECT().Load().Return(nil, settings.ErrNotFound)
		store.EXPECT().Save(gomock.Any()).Return(errors.New("flash busy"))

		m, err := settings.Open(discardLogger(), store)
		assert.Error(t, err)
		assert.Nil(t, m)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("Write then read returns the value", func(t *testing.T) {
		m, err := settings.Open(discardLogger(), &settings.MemStore{})
		require.NoError(t, err)

		_, err = m.Update(func(r *settings.Record) error {
			r.Netmask = [4]byte{255, 255, 0, 0}
			r.UART[0].BaudRate = 4000000
			return nil
		})
		require.NoError(t, err)

		got := m.Snapshot()
		assert.Equal(t, [4]byte{255, 255, 0, 0}, got.Netmask)
		assert.Equal(t, uint32(4000000), got.UART[0].BaudRate)
	})

	t.Run("Persist failure leaves live record unchanged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := settings.NewMockStore(ctrl)
		store.EXPECT().Load().Return(nil, settings.ErrNotFound)
		store.EXPECT().Save(gomock.Any()).Return(nil)
		m, err := settings.Open(discardLogger(), store)
		require.NoError(t, err)
		before := m.Snapshot()

		store.EXPECT().Save(gomock.Any()).Return(errors.New("flash busy"))
		_, err = m.Update(func(r *settings.Record) error {
			r.TCPPort = 1234
			return nil
		})
		assert.Error(t, err)
		assert.Equal(t, before, m.Snapshot())
	})

	t.Run("Invalid value is rejected", func(t *testing.T) {
		m, err := settings.Open(discardLogger(), &settings.MemStore{})
		require.NoError(t, err)

		_, err = m.Update(func(r *settings.Record) error {
			r.UART[1].DataBits = 9
			return nil
		})
		assert.ErrorIs(t, err, settings.ErrInvalid)
		assert.Equal(t, uint8(8), m.Snapshot().UART[1].DataBits)
	})
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.bin")
	store := settings.FileStore{Path: path}

	_, err := store.Load()
	assert.ErrorIs(t, err, settings.ErrNotFound)

	m, err := settings.Open(discardLogger(), store)
	require.NoError(t, err)
	_, err = m.Update(func(r *settings.Record) error {
		r.LEDCount = 60
		return nil
	})
	require.NoError(t, err)

	reopened, err := settings.Open(discardLogger(), store)
	require.NoError(t, err)
	assert.Equal(t, m.Snapshot(), reopened.Snapshot())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}
