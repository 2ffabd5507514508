package shield

// Action is the protection applied to fields of a sensitivity class.
type Action string

const (
	// ActionEncrypt reversibly encrypts the field under the rule's key.
	ActionEncrypt Action = "encrypt"

	// ActionMask irreversibly replaces the field with a masked form.
	ActionMask Action = "mask"

	// ActionHash irreversibly replaces the field with a one-way hash.
	ActionHash Action = "hash"
)

// EncryptAlgo represents a supported encryption algorithm.
// Use these constants in protection rules: `algorithm: aes`
type EncryptAlgo string

const (
	// EncryptAES uses AES-GCM symmetric encryption.
	EncryptAES EncryptAlgo = "aes"

	// EncryptChaCha20 uses XChaCha20-Poly1305 symmetric encryption.
	EncryptChaCha20 EncryptAlgo = "chacha20poly1305"

	// EncryptEnvelope uses envelope encryption with per-message data keys.
	EncryptEnvelope EncryptAlgo = "envelope"
)

// HashAlgo represents a supported hashing algorithm.
type HashAlgo string

const (
	// HashArgon2 uses Argon2id (salted, slow). For secrets.
	HashArgon2 HashAlgo = "argon2"

	// HashBcrypt uses bcrypt (salted, slow). For secrets.
	HashBcrypt HashAlgo = "bcrypt"

	// HashSHA256 uses SHA-256 (fast, deterministic). For tokenization
	// where equality matching is needed, NOT for secrets.
	HashSHA256 HashAlgo = "sha256"
)

// MaskType represents a known data format with masking rules.
type MaskType string

const (
	MaskSSN   MaskType = "ssn"   // 123-45-6789 -> ***-**-6789
	MaskEmail MaskType = "email" // alice@example.com -> a***@example.com
	MaskPhone MaskType = "phone" // (555) 123-4567 -> ***-***-4567
	MaskCard  MaskType = "card"  // 4111111111111111 -> ************1111
	MaskName  MaskType = "name"  // John Smith -> J*** S****
)

var validEncryptAlgos = map[EncryptAlgo]bool{
	EncryptAES:      true,
	EncryptChaCha20: true,
	EncryptEnvelope: true,
}

var validHashAlgos = map[HashAlgo]bool{
	HashArgon2: true,
	HashBcrypt: true,
	HashSHA256: true,
}

var validMaskTypes = map[MaskType]bool{
	MaskSSN:   true,
	MaskEmail: true,
	MaskPhone: true,
	MaskCard:  true,
	MaskName:  true,
}

// IsValidEncryptAlgo returns true if the algorithm is a known encryption algorithm.
func IsValidEncryptAlgo(algo EncryptAlgo) bool {
	return validEncryptAlgos[algo]
}

// IsValidHashAlgo returns true if the algorithm is a known hash algorithm.
func IsValidHashAlgo(algo HashAlgo) bool {
	return validHashAlgos[algo]
}

// IsValidMaskType returns true if the type is a known mask type.
func IsValidMaskType(mt MaskType) bool {
	return validMaskTypes[mt]
}
