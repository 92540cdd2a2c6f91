package crypto

// Zero overwrites a byte slice in place. Callers use it to wipe decrypted
// secret payloads and key material once they are done with them.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
