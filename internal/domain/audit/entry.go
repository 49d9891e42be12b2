// Package audit builds the append-only, hash-chained audit log of payout
// executions and policy decisions.
package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the previous hash of the first entry of every chain.
var GenesisHash = strings.Repeat("0", 64)

// Action names an audited event
type Action string

const (
	ActionPayoutExecuted  Action = "payout_executed"
	ActionCategoryClosed  Action = "category_closed"
	ActionClosureRejected Action = "closure_rejected"
	ActionPolicyUpdated   Action = "policy_updated"
)

// RecipeChainID is the chain that records payout recipe changes.
const RecipeChainID = "payout_recipe"

// ChainID returns the chain that audits closures of a reference type.
func ChainID(referenceType string) string {
	return "closure:" + referenceType
}

// Record is the content of an audit entry before it is chained.
type Record struct {
	Actor       string
	Action      Action
	SubjectType string
	SubjectID   string
	Details     any
}

// Entry is one link of an audit chain.
type Entry struct {
	ID           uuid.UUID       `json:"id"`
	ChainID      string          `json:"chain_id"`
	Actor        string          `json:"actor"`
	Action       Action          `json:"action"`
	SubjectType  string          `json:"subject_type"`
	SubjectID    string          `json:"subject_id"`
	Details      json.RawMessage `json:"details"`
	PreviousHash string          `json:"previous_hash"`
	CurrentHash  string          `json:"current_hash"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewEntry chains rec after previousHash. The caller must hold exclusive
// access to the chain tail until the entry is stored.
func NewEntry(chainID, previousHash string, rec Record) (*Entry, error) {
	details, err := Canonicalize(rec.Details)
	if err != nil {
		return nil, err
	}
	entry := &Entry{
		ID:           uuid.New(),
		ChainID:      chainID,
		Actor:        rec.Actor,
		Action:       rec.Action,
		SubjectType:  rec.SubjectType,
		SubjectID:    rec.SubjectID,
		Details:      details,
		PreviousHash: previousHash,
		Timestamp:    time.Now().UTC(),
	}
	entry.CurrentHash, err = entry.computeHash()
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// computeHash is sha256(previousHash ++ canonical content). The timestamp
// is not part of the content.
func (e *Entry) computeHash() (string, error) {
	details := e.Details
	if len(details) == 0 {
		details = json.RawMessage("null")
	}
	content, err := Canonicalize(map[string]any{
		"action":       e.Action,
		"actor":        e.Actor,
		"details":      details,
		"subject_id":   e.SubjectID,
		"subject_type": e.SubjectType,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(e.PreviousHash), content...))
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize renders v as compact JSON with sorted object keys and
// numbers kept verbatim, so equal content always hashes equally.
func Canonicalize(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, SerializationError{Cause: err}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, SerializationError{Cause: err}
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, SerializationError{Cause: err}
	}
	return out, nil
}
