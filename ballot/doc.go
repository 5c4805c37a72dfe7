// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ballot casts votes.

A cast is one unit:

 1. Guard checks (election ACTIVE, inside the voting window, voter on the
    guest list, not yet voted). A failure has no side effects.
 2. The choice is matched to a candidate name and encrypted with the voter's
    PIN; the integrity digest is the SHA-256 of the ciphertext.
 3. The receipt digest is derived from the voter hash, election id and cast
    time.
 4. The ledger records the ballot and flips the voter's has-voted flag in one
    transaction, re-running the guard checks against what it reads there.

Only the receipt leaves the service. The stored ballot row has no column
linking it to the voter.
*/
package ballot
