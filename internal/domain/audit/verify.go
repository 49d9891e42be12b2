package audit

import "fmt"

// VerifyReport is the outcome of walking a chain.
type VerifyReport struct {
	Valid    bool   `json:"valid"`
	Checked  int    `json:"checked"`
	BrokenAt int    `json:"broken_at"` // index of the first bad entry, -1 when valid
	Reason   string `json:"reason,omitempty"`
}

// VerifyChain recomputes every hash of entries, oldest first, and checks
// that each entry links to its predecessor. startHash is the previous hash
// expected of entries[0]; pass GenesisHash for a full chain.
func VerifyChain(entries []*Entry, startHash string) VerifyReport {
	prev := startHash
	for i, e := range entries {
		if e.PreviousHash != prev {
			return VerifyReport{
				Checked:  i,
				BrokenAt: i,
				Reason:   fmt.Sprintf("entry %s links to %s, expected %s", e.ID, e.PreviousHash, prev),
			}
		}
		hash, err := e.computeHash()
		if err != nil {
			return VerifyReport{Checked: i, BrokenAt: i, Reason: err.Error()}
		}
		if hash != e.CurrentHash {
			return VerifyReport{
				Checked:  i,
				BrokenAt: i,
				Reason:   fmt.Sprintf("entry %s content does not match its hash", e.ID),
			}
		}
		prev = e.CurrentHash
	}
	return VerifyReport{Valid: true, Checked: len(entries), BrokenAt: -1}
}
