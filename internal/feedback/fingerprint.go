package feedback

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// fingerprintPayload fixes the digest layout: three id sets, each sorted, keys
// in a fixed alphabetical order. Any change here invalidates every stored
// data_hash, so the shape is frozen.
type fingerprintPayload struct {
	CheatMeals []string `json:"cheat_meals"`
	Logs       []string `json:"logs"`
	Photos     []string `json:"photos"`
}

// DataHash digests the contributing-record id sets for a week window. The
// digest is independent of input ordering: ids are sorted within each set and
// the sets are combined in a fixed order, so equal sets always produce equal
// digests regardless of how the caller assembled them.
func DataHash(logIDs, photoIDs, cheatMealIDs []uuid.UUID) string {
	payload := fingerprintPayload{
		CheatMeals: sortedIDs(cheatMealIDs),
		Logs:       sortedIDs(logIDs),
		Photos:     sortedIDs(photoIDs),
	}

	// Marshal cannot fail on a struct of string slices.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedIDs(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}
