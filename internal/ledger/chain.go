package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	id "yatra/pkg/domain"
)

// genesisHash anchors the chain so the first entry has a defined PrevHash.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// hashKYC produces the fixed-length digest of the canonical KYC serialization.
// Struct JSON marshaling is deterministic in field order, which makes the
// serialization canonical without a separate key-sorting step.
func hashKYC(payload KYCPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serialize kyc payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// deriveToken mints the pseudonymous token from the KYC digest and the
// issuance nonce. The nonce guarantees distinct tokens for byte-identical
// payloads (repeat visitors).
func deriveToken(kycHash string, nonce uint64) id.TouristToken {
	sum := sha256.Sum256([]byte(kycHash + strconv.FormatUint(nonce, 10)))
	return id.TouristToken("TID-" + hex.EncodeToString(sum[:])[:24])
}

// entryHash chains an issuance onto its predecessor.
func entryHash(prevHash string, token id.TouristToken, kycHash string, issuedAt time.Time) string {
	sum := sha256.Sum256([]byte(prevHash + string(token) + kycHash + issuedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

// VerifyChain walks the stored issuance log and recomputes every link.
// It returns the sequence number of the first tampered entry, or ok=true when
// the whole chain checks out. An empty chain is trivially valid.
func VerifyChain(entries []ChainEntry) (ok bool, badSeq uint64) {
	prev := genesisHash
	for _, e := range entries {
		if e.PrevHash != prev || entryHash(prev, e.Token, e.KYCHash, e.IssuedAt) != e.Hash {
			return false, e.Seq
		}
		prev = e.Hash
	}
	return true, 0
}
