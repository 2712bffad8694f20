// Package password implements Argon2id password hashing and a bounded worker pool that
// keeps hashing off the goroutines serving I/O.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The interactive parameter set (m=64MiB, t=2, p=1) is the floor; configurations below
// it are rejected. [Argon2.NeedsUpgrade] reports hashes made with weaker parameters.
//
// # What this package must NOT do
//
//   - Store or look up users; callers supply the stored hash.
//   - Enforce password policy (length, charset); that belongs to the user package.
//   - Log plaintext passwords.
package password
