package ledger

import (
	"github.com/fxamacker/cbor/v2"
)

// EncodeRoundStart serializes a round announcement for publication.
func EncodeRoundStart(start *RoundStart) ([]byte, error) {
	return cbor.Marshal(start)
}

// DecodeRoundStart parses a published round announcement.
func DecodeRoundStart(data []byte) (*RoundStart, error) {
	start := &RoundStart{}
	if err := cbor.Unmarshal(data, start); err != nil {
		return nil, err
	}
	return start, nil
}

// EncodeSettlement serializes a settlement record for publication.
func EncodeSettlement(settlement *Settlement) ([]byte, error) {
	return cbor.Marshal(settlement)
}

// DecodeSettlement parses a published settlement record.
func DecodeSettlement(data []byte) (*Settlement, error) {
	settlement := &Settlement{}
	if err := cbor.Unmarshal(data, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}
