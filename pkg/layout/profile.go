package layout

import (
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
)

var profileSeeds = [4][]byte{
	[]byte("muepub-pagination-seed-0"),
	[]byte("muepub-pagination-seed-1"),
	[]byte("muepub-pagination-seed-2"),
	[]byte("muepub-pagination-seed-3"),
}

// ProfileID derives a 32-byte pagination profile id from cfg: cfg is
// serialized deterministically, then hashed four times with FNV-1a 64,
// each pass seeded with a distinct prefix, and the four 8-byte sums are
// concatenated. Equal configurations always yield equal ids; different
// configurations yield different ids with overwhelming probability.
func ProfileID(cfg Config) ([32]byte, error) {
	var out [32]byte
	data, err := json.Marshal(cfg)
	if err != nil {
		return out, err
	}
	for i, seed := range profileSeeds {
		h := fnv.New64a()
		h.Write(seed)
		h.Write(data)
		binary.BigEndian.PutUint64(out[i*8:(i+1)*8], h.Sum64())
	}
	return out, nil
}
