package mysqlwire

import (
	"context"
	"fmt"

	"github.com/memsqld/memsqld/internal/errs"
)

// handshakeV10Payload builds the initial handshake packet, the shape
// makeHandshakeV10Payload in mysql_protocol.go writes: protocol version
// 10, server version string, connection ID, the first 8 nonce bytes,
// capability flags split across two 2-byte fields, and the remaining
// nonce bytes plus the default auth plugin name.
func handshakeV10Payload(connID uint32, nonce []byte) []byte {
	var buf []byte
	buf = append(buf, 10) // protocol version
	buf = putNulStr(buf, serverVersion)
	buf = appendUint32(buf, connID)
	buf = append(buf, nonce[:8]...)
	buf = append(buf, 0) // filler
	buf = appendUint16(buf, uint16(defaultCapability&0xFFFF))
	buf = append(buf, 0x21) // character set: utf8mb4_general_ci-ish placeholder ID used elsewhere in the corpus
	buf = appendUint16(buf, serverStatusAutoCmt)
	buf = appendUint16(buf, uint16((defaultCapability>>16)&0xFFFF))
	buf = append(buf, byte(len(nonce)+1))
	buf = append(buf, make([]byte, 10)...) // reserved
	buf = append(buf, nonce[8:]...)
	buf = append(buf, 0)
	buf = putNulStr(buf, pluginCachingSha2)
	return buf
}

// clientHandshakeResponse is the subset of HandshakeResponse41 this
// server needs: capabilities, chosen username/database, the auth
// response bytes, and the client's requested auth plugin name.
type clientHandshakeResponse struct {
	username   string
	database   string
	authResp   []byte
	pluginName string
}

func parseHandshakeResponse41(data []byte) (clientHandshakeResponse, error) {
	var r clientHandshakeResponse
	if len(data) < 32 {
		return r, fmt.Errorf("mysqlwire: handshake response too short")
	}
	capabilities := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	pos := 32 // capabilities(4) + max_packet(4) + charset(1) + reserved(23)
	username, pos, ok := readNulStr(data, pos)
	if !ok {
		return r, fmt.Errorf("mysqlwire: malformed username in handshake response")
	}
	r.username = username

	if capabilities&clientSecureConn != 0 {
		if pos >= len(data) {
			return r, fmt.Errorf("mysqlwire: missing auth-response length")
		}
		n := int(data[pos])
		pos++
		if pos+n > len(data) {
			return r, fmt.Errorf("mysqlwire: truncated auth-response")
		}
		r.authResp = data[pos : pos+n]
		pos += n
	} else {
		authResp, p2, ok := readNulStr(data, pos)
		if !ok {
			return r, fmt.Errorf("mysqlwire: malformed auth-response")
		}
		r.authResp = []byte(authResp)
		pos = p2
	}

	const clientConnectWithDB = 0x00000008
	if capabilities&clientConnectWithDB != 0 && pos < len(data) {
		// CLIENT_CONNECT_WITH_DB: database name follows, NUL-terminated.
		if db, p3, ok := readNulStr(data, pos); ok {
			r.database = db
			pos = p3
		}
	}

	if capabilities&clientPluginAuth != 0 {
		if name, _, ok := readNulStr(data, pos); ok {
			r.pluginName = name
		}
	}
	if r.pluginName == "" {
		r.pluginName = pluginNative
	}
	return r, nil
}

// authenticate runs the CR2 (caching_sha2_password) exchange by
// default, falling back to the legacy mysql_native_password flow when
// the client's handshake response already names that plugin, matching
// HandleHandshake/analyseHandshakeResponse41's plugin-name branch in
// mysql_protocol.go layered next to the caching_sha2_password path
// described by original_source's mysql_caching_sha2.rs.
func authenticate(ctx context.Context, pr *packetReader, pw *packetWriter, nonce []byte, creds Creds, anonymous bool) (*Session, error) {
	payload, err := pr.readPacket()
	if err != nil {
		return nil, errs.NewIoError(ctx, "read handshake response: %v", err)
	}
	resp, err := parseHandshakeResponse41(payload)
	if err != nil {
		return nil, errs.NewProtocolError(ctx, "%v", err)
	}

	if anonymous {
		// Still run the caching_sha2 full-auth round trip if the client
		// insists on it, so a driver that always expects two round trips
		// doesn't stall; the response itself is not checked against
		// anything.
		if resp.pluginName != pluginNative {
			if err := cachingSha2ExchangeAnonymous(pr, pw, resp.authResp); err != nil {
				return nil, errs.NewIoError(ctx, "caching_sha2 exchange: %v", err)
			}
		}
		return &Session{Username: resp.username, Database: resp.database}, nil
	}

	if resp.username != creds.Username {
		return nil, errs.NewAuthError(ctx, "access denied for user %q", resp.username)
	}

	var ok bool
	switch resp.pluginName {
	case pluginNative:
		ok = bytesEqual(resp.authResp, nativePasswordScramble(creds.Password, nonce))
	default:
		ok, err = cachingSha2Exchange(pr, pw, nonce, creds.Password, resp.authResp)
		if err != nil {
			return nil, errs.NewIoError(ctx, "caching_sha2 exchange: %v", err)
		}
	}
	if !ok {
		return nil, errs.NewAuthError(ctx, "access denied for user %q", resp.username)
	}
	return &Session{Username: resp.username, Database: resp.database}, nil
}

// cachingSha2Exchange implements the fast path (client already sent a
// scrambled response matching the cached password) and the slow path
// (server asks for full authentication and the client sends the
// password in clear text over what is assumed to be a trusted/local
// transport, exactly as original_source's CachingSha2Auth does since
// this server never negotiates TLS for protocol B).
func cachingSha2Exchange(pr *packetReader, pw *packetWriter, nonce []byte, password string, authResp []byte) (bool, error) {
	if len(authResp) > 0 {
		expected := cachingSha2Response(password, nonce)
		if bytesEqual(authResp, expected) {
			return true, pw.writePacket([]byte{authMoreData, fastAuthSuccess})
		}
	}
	if err := pw.writePacket([]byte{authMoreData, performFullAuth}); err != nil {
		return false, err
	}
	pwPacket, err := pr.readPacket()
	if err != nil {
		return false, err
	}
	clear := string(pwPacket)
	if len(clear) > 0 && clear[len(clear)-1] == 0 {
		clear = clear[:len(clear)-1]
	}
	return clear == password, nil
}

// cachingSha2ExchangeAnonymous runs the same two-possible-round-trip
// shape as cachingSha2Exchange without ever rejecting the client: a
// client that already sent a fast-auth attempt is told it succeeded; one
// that sent nothing is asked for a full-auth password, which is read and
// discarded.
func cachingSha2ExchangeAnonymous(pr *packetReader, pw *packetWriter, authResp []byte) error {
	if len(authResp) > 0 {
		return pw.writePacket([]byte{authMoreData, fastAuthSuccess})
	}
	if err := pw.writePacket([]byte{authMoreData, performFullAuth}); err != nil {
		return err
	}
	_, err := pr.readPacket()
	return err
}
