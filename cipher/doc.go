// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cipher encrypts ballot content and computes the ledger's digests.

# Ballot Encryption

	ct, err := cipher.Encrypt("Alice", "1234", cipher.ElectionSalt(electionID))
	name, err := cipher.Decrypt(ct, "1234")

	key, err := cipher.DeriveKey("1234", cipher.ElectionSalt(electionID))
	name, err = key.Open(ct)

The key is the voter-supplied PIN (4-6 digits). That is a weak confidentiality
boundary, not a cryptographic secret: anyone holding a ciphertext can try all
10^6 PINs offline. PBKDF2-SHA256 only raises the cost of that search.

The PBKDF2 salt is per election, so a tally stretches the PIN once and then
opens every ballot with the same Key. Each ciphertext carries that salt and
its own random AES-GCM nonce, so no nonce is reused across ballots. A wrong key fails GCM authentication and Decrypt
returns ErrInvalidKey rather than a plausible-looking name.

# Digests

	cipher.Digest(ciphertext)                       // vote integrity digest
	cipher.ReceiptDigest(voterHash, electionID, ts) // voter receipt

Both are hex SHA-256 (64 characters). The package keeps no state and never
stores keys.
*/
package cipher
