package bencode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripScalarValues(t *testing.T) {
	require := require.New(t)

	for _, v := range []Value{Int(0), Int(-42), Int(1 << 40), String(""), String("hello world")} {
		encoded, err := Marshal(v)
		require.NoError(err)
		decoded, err := Unmarshal(encoded)
		require.NoError(err)
		require.Equal(v, decoded)
	}
}

func TestRoundTripList(t *testing.T) {
	require := require.New(t)

	v := List(Int(1), String("two"), List(Int(3)))
	encoded, err := Marshal(v)
	require.NoError(err)
	require.Equal("li1e3:twoli3eee", string(encoded))

	decoded, err := Unmarshal(encoded)
	require.NoError(err)
	require.Equal(v, decoded)
}

func TestEncodeDictSortsKeysLexicographically(t *testing.T) {
	require := require.New(t)

	d := NewDict()
	// Inserted out of order on purpose.
	d.Set("zebra", Int(1))
	d.Set("apple", Int(2))
	d.Set("Apple", Int(3)) // uppercase sorts before lowercase in byte order

	encoded, err := Marshal(DictValue(d))
	require.NoError(err)
	require.Equal("d5:Applei3e5:applei2e5:zebrai1ee", string(encoded))
}

func TestRoundTripNestedDict(t *testing.T) {
	require := require.New(t)

	inner := NewDict()
	inner.Set("length", Int(1024))
	inner.Set("name", String("file.bin"))

	outer := NewDict()
	outer.Set("info", DictValue(inner))
	outer.Set("announce", String("udp://tracker"))

	encoded, err := Marshal(DictValue(outer))
	require.NoError(err)

	decoded, err := Unmarshal(encoded)
	require.NoError(err)
	back, err := Marshal(decoded)
	require.NoError(err)
	require.Equal(encoded, back)
}

func TestDecodeRejectsNonCanonicalIntegers(t *testing.T) {
	require := require.New(t)

	for _, bad := range []string{"i03e", "i-0e", "ie", "i-e"} {
		_, err := Unmarshal([]byte(bad))
		require.Error(err, bad)
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	require := require.New(t)

	for _, bad := range []string{"5:ab", "d3:foo", "l1:a", ""} {
		_, err := Unmarshal([]byte(bad))
		require.Error(err, bad)
	}
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	require := require.New(t)

	_, err := Unmarshal([]byte("i1eGARBAGE"))
	require.Error(err)
}

func TestDecodePreservesRawDictKeys(t *testing.T) {
	require := require.New(t)

	v, err := Unmarshal([]byte("d1:y1:q1:t2:aae"))
	require.NoError(err)
	d, ok := v.AsDict()
	require.True(ok)

	y, ok := d.GetString("y")
	require.True(ok)
	require.Equal("q", y)

	tid, ok := d.GetString("t")
	require.True(ok)
	require.Equal("aa", tid)
}

func TestScanDictReturnsOffsetPastOuterDict(t *testing.T) {
	require := require.New(t)

	header := "d8:msg_typei1e5:piecei0e10:total_sizei3ee"
	payload := "xyz"
	n, err := ScanDict([]byte(header + payload))
	require.NoError(err)
	require.Equal(len(header), n)
}

func TestScanDictRejectsMalformed(t *testing.T) {
	require := require.New(t)

	_, err := ScanDict([]byte("not a dict"))
	require.Error(err)

	_, err = ScanDict([]byte("d3:foo"))
	require.Error(err)
}

func TestScanValueHandlesAllKinds(t *testing.T) {
	require := require.New(t)

	for _, s := range []string{"i5e", "3:abc", "le", "de", "l3:abci5ee", "d1:ai1ee"} {
		n, err := ScanValue([]byte(s))
		require.NoError(err, s)
		require.Equal(len(s), n, s)
	}
}
