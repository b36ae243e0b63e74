package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func img(url, alt string) Asset {
	return Asset{Kind: KindImage, URL: url, AltText: alt}
}

func TestSessionMergeLastWriteWins(t *testing.T) {
	first := []Asset{
		img("https://example.com/1.jpg", "one"),
		img("https://example.com/2.jpg", "two"),
	}
	second := []Asset{
		img("https://example.com/2.jpg", "two (updated)"),
		img("https://example.com/1.jpg", "one (updated)"),
		img("https://example.com/3.jpg", "three"),
	}

	s := NewSession()
	assert.Equal(t, 2, s.Merge(first))
	assert.Equal(t, 1, s.Merge(second))
	require.Equal(t, 3, s.Len())

	snap := s.Snapshot()
	assets := snap.Assets()
	assert.Equal(t, "https://example.com/1.jpg", assets[0].URL, "position is kept from first discovery")
	assert.Equal(t, "one (updated)", assets[0].AltText)
	assert.Equal(t, "two (updated)", assets[1].AltText)
	assert.Equal(t, "three", assets[2].AltText)
}

func TestSessionMergeIsIdempotent(t *testing.T) {
	batch := []Asset{img("https://example.com/1.jpg", "a"), img("https://example.com/2.jpg", "b")}

	s := NewSession()
	s.Merge(batch)
	assert.Equal(t, 0, s.Merge(batch))
	assert.Equal(t, 2, s.Len())
}

func TestSnapshotIsDetached(t *testing.T) {
	s := NewSession()
	s.Merge([]Asset{img("https://example.com/1.jpg", "a")})
	snap := s.Snapshot()

	s.Merge([]Asset{img("https://example.com/2.jpg", "b")})
	assert.Equal(t, 1, snap.Len())

	assets := snap.Assets()
	assets[0].AltText = "mutated"
	assert.Equal(t, "a", snap.At(0).AltText)
}

func TestNewSnapshotDeduplicates(t *testing.T) {
	snap := NewSnapshot([]Asset{
		img("https://example.com/1.jpg", "a"),
		img("https://example.com/1.jpg", "b"),
	})
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "b", snap.At(0).AltText)
}

func TestEmptySnapshotMarshalsToArray(t *testing.T) {
	data, err := json.Marshal(NewSession().Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = json.Marshal(Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
