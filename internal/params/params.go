package params

const (
	SecParam = 256
	SecBytes = SecParam / 8

	// BytesScalar is the length of a serialized secp256k1 scalar.
	BytesScalar = 32

	// BytesPoint is the length of a serialized curve point: 0x04 ‖ x ‖ y.
	// The all-zero string is reserved for the identity element.
	BytesPoint = 65

	// BytesCiphertext is the length of a serialized ElGamal ciphertext (c1 ‖ c2).
	BytesCiphertext = 2 * BytesPoint

	// BytesVRFProof is the length of a serialized VRF proof:
	// gamma ‖ challenge ‖ response ‖ output, 32 bytes each.
	BytesVRFProof = 128

	// PlaintextBits bounds the integers that can be ElGamal-encrypted.
	// Amounts and prices are fixed-point encoded and must fit this range,
	// since decryption recovers them by a bounded discrete-log search.
	PlaintextBits = 32
	MaxPlaintext  = uint64(1) << PlaintextBits

	// FixedPointDecimals is the number of decimal places carried by
	// amounts and prices before encryption.
	FixedPointDecimals = 6

	// RangeBits is the bit width covered by solvency range proofs.
	RangeBits = 64
)
