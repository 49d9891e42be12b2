package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// entryNamespace seeds the name-based UUIDs of ledger entries.
var entryNamespace = uuid.MustParse("4b7c2f0e-93a1-5d6e-8f24-1c0b9a7e3d55")

// ToLedgerEntries turns every payout line of calc into one ledger entry.
// It performs no I/O and is deterministic: the same calculation and reference
// always yield the same ids and idempotency keys. CreatedAt is left zero for
// the store to fill.
func ToLedgerEntries(calc *payout.Calculation, ref Reference) []Entry {
	entries := make([]Entry, 0, len(calc.Payouts))
	for _, p := range calc.Payouts {
		entry := Entry{
			TransactionType:  TransactionTypePayout,
			ReferenceType:    ref.Type,
			ReferenceID:      ref.ID,
			Role:             p.Role,
			Rank:             copyRank(p.Rank),
			GrossAmountCents: p.AmountCents,
			NetAmountCents:   p.AmountEurFloor,
			FeeCents:         p.AmountCents - p.AmountEurFloor,
			PayoutRule:       calc.RuleVersion,
			Status:           shared.LedgerStatusPending,
		}

		recipient := p.AccountID
		switch p.Role {
		case payout.RolePlatform:
			entry.TransactionType = TransactionTypePlatformResidual
			recipient = ""
		case payout.RoleTicketHolder:
			entry.TransactionType = TransactionTypeTicketRefund
		case payout.RolePointsHolder:
			entry.TransactionType = TransactionTypePointsConversion
		}
		if recipient != "" {
			id := p.AccountID
			entry.RecipientID = &id
		}

		entry.IdempotencyKey = IdempotencyKey(ref.Type, ref.ID, recipient, p.Role, p.Rank)
		entry.ID = uuid.NewSHA1(entryNamespace, []byte(entry.IdempotencyKey))
		entries = append(entries, entry)
	}
	return entries
}

// IdempotencyKey derives the deduplication key of a payout line from
// (referenceType, referenceID, recipientID, role, rank). Fields are length
// prefixed before hashing so distinct tuples never collide by concatenation.
func IdempotencyKey(referenceType, referenceID, recipientID string, role payout.Role, rank *int) string {
	rankField := ""
	if rank != nil {
		rankField = strconv.Itoa(*rank)
	}

	h := sha256.New()
	var size [4]byte
	for _, field := range []string{referenceType, referenceID, recipientID, string(role), rankField} {
		binary.BigEndian.PutUint32(size[:], uint32(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return referenceType + ":" + hex.EncodeToString(h.Sum(nil))
}

// Totals sums gross, net and fee over entries.
func Totals(entries []Entry) (gross, net, fee int64) {
	for _, e := range entries {
		gross += e.GrossAmountCents
		net += e.NetAmountCents
		fee += e.FeeCents
	}
	return gross, net, fee
}

func copyRank(rank *int) *int {
	if rank == nil {
		return nil
	}
	r := *rank
	return &r
}
