package mysqlwire

import (
	"crypto/sha1"
	"crypto/sha256"
)

// Plugin names advertised in the handshake and AuthSwitchRequest
// packets, matching mysql_protocol.go's AuthNativePassword constant and
// the real caching_sha2_password plugin name.
const (
	pluginCachingSha2 = "caching_sha2_password"
	pluginNative      = "mysql_native_password"
)

// Caching_sha2_password status bytes sent inside an AuthMoreData packet.
const (
	authMoreData       = 0x01
	authSwitchRequest  = 0xfe
	fastAuthSuccess    = 0x03
	performFullAuth    = 0x04
)

// cachingSha2Response computes the client-side auth response
// caching_sha2_password expects for a known password and server nonce:
// SHA256(password) XOR SHA256(SHA256(SHA256(password)) + nonce). The
// server recomputes this itself to check the client's fast-auth attempt
// without ever needing the plaintext password off the wire.
func cachingSha2Response(password string, nonce []byte) []byte {
	if password == "" {
		return nil
	}
	stage1 := sha256.Sum256([]byte(password))
	stage2 := sha256.Sum256(stage1[:])
	h := sha256.New()
	h.Write(stage2[:])
	h.Write(nonce)
	stage3 := h.Sum(nil)
	out := make([]byte, len(stage1))
	for i := range out {
		out[i] = stage1[i] ^ stage3[i]
	}
	return out
}

// nativePasswordScramble computes mysql_native_password's client auth
// response: SHA1(password) XOR SHA1(salt + SHA1(SHA1(password))), the
// legacy fallback verified the same way mysql_protocol.go's
// checkPassword does it (salt+hashedPassword, XOR against client auth,
// re-hash, compare).
func nativePasswordScramble(password string, salt []byte) []byte {
	if password == "" {
		return nil
	}
	pwdHash := sha1.Sum([]byte(password))
	doubleHash := sha1.Sum(pwdHash[:])
	h := sha1.New()
	h.Write(salt)
	h.Write(doubleHash[:])
	mixed := h.Sum(nil)
	out := make([]byte, len(pwdHash))
	for i := range out {
		out[i] = pwdHash[i] ^ mixed[i]
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
