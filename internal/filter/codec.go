package filter

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
)

/*
 * Embedded blob codec.
 *
 * A rule's conflicts, requirements, and actions are persisted as one encoded
 * blob per column, not as separate rows. The encoding is a CBOR envelope
 * with an explicit version so future schema changes can decode old rows.
 *
 * Decode failure is never fatal: a corrupt or future-versioned blob yields
 * an empty sequence (the rule then never matches as a group condition and
 * emits nothing), logged at warn.
 */

// blobVersion is the current envelope schema version.
const blobVersion = 1

type conditionBlob struct {
	Version    uint        `cbor:"v"`
	Conditions []Condition `cbor:"conditions,omitempty"`
}

type actionBlob struct {
	Version uint     `cbor:"v"`
	Actions []Action `cbor:"actions,omitempty"`
}

// EncodeConditions encodes a condition sequence into a versioned blob.
func EncodeConditions(conds []Condition) ([]byte, error) {
	b, err := cbor.Marshal(conditionBlob{Version: blobVersion, Conditions: conds})
	if err != nil {
		return nil, fmt.Errorf("encode conditions: %w", err)
	}
	return b, nil
}

// DecodeConditions decodes a condition blob. Nil input, corrupt data, or an
// unknown envelope version all decode to an empty sequence.
func DecodeConditions(data []byte, log zerolog.Logger) []Condition {
	if len(data) == 0 {
		return nil
	}
	var blob conditionBlob
	if err := cbor.Unmarshal(data, &blob); err != nil {
		log.Warn().Err(err).Msg("corrupt condition blob; treating as empty")
		return nil
	}
	if blob.Version > blobVersion {
		log.Warn().Uint("version", blob.Version).Msg("condition blob from a newer schema; treating as empty")
		return nil
	}
	return blob.Conditions
}

// EncodeActions encodes an action sequence into a versioned blob.
func EncodeActions(acts []Action) ([]byte, error) {
	b, err := cbor.Marshal(actionBlob{Version: blobVersion, Actions: acts})
	if err != nil {
		return nil, fmt.Errorf("encode actions: %w", err)
	}
	return b, nil
}

// DecodeActions decodes an action blob with the same failure policy as
// DecodeConditions.
func DecodeActions(data []byte, log zerolog.Logger) []Action {
	if len(data) == 0 {
		return nil
	}
	var blob actionBlob
	if err := cbor.Unmarshal(data, &blob); err != nil {
		log.Warn().Err(err).Msg("corrupt action blob; treating as empty")
		return nil
	}
	if blob.Version > blobVersion {
		log.Warn().Uint("version", blob.Version).Msg("action blob from a newer schema; treating as empty")
		return nil
	}
	return blob.Actions
}
