package mysqlwire

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/memsqld/memsqld/internal/engine"
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/mysqlwire/codec"
	"github.com/memsqld/memsqld/internal/parseradapter"
	"github.com/memsqld/memsqld/internal/store"
)

// Capability flags this server advertises, the subset
// mysql_protocol.go's DefaultCapability needs for a CLIENT_PROTOCOL_41
// text-resultset connection with secure auth and plugin auth.
const (
	clientLongPassword  = 0x00000001
	clientProtocol41    = 0x00000200
	clientSecureConn    = 0x00008000
	clientPluginAuth    = 0x00080000
	clientConnAttrs     = 0x00100000
	clientTransactions  = 0x00002000
	serverStatusAutoCmt = 0x0002
)

const defaultCapability = clientLongPassword | clientProtocol41 | clientSecureConn | clientPluginAuth | clientConnAttrs | clientTransactions

const serverVersion = expr.ServerVersion

// Session is one connection's handshake identity and the credentials it
// authenticated against, threaded down into the command loop.
type Session struct {
	ConnectionID uint32
	Username     string
	Database     string
}

// Creds is the CR2/native-password credential pair a connection is
// checked against, read from the active catalog.Database snapshot (or a
// CLI default when the document defines none), per the external
// interfaces design's "database.auth overrides CLI credentials" rule.
type Creds struct {
	Username string
	Password string
}

// resolveCreds implements the external interfaces design's "database.auth
// overrides CLI credentials" rule: when the active snapshot declares an
// AuthConfig, it wins outright; otherwise the CLI-supplied Creds apply,
// and a totally empty CLI credential pair means anonymous mode (any
// username/password accepted).
func resolveCreds(st *store.Store, cli Creds) (Creds, bool) {
	if auth := st.Snapshot().Auth; auth != nil {
		return Creds{Username: auth.Username, Password: auth.Password}, false
	}
	if cli.Username == "" && cli.Password == "" {
		return cli, true
	}
	return cli, false
}

// Serve runs the full protocol-B connection lifecycle: handshake, auth
// exchange, then the query-dispatch loop, until the client disconnects
// or sends COM_QUIT. It never returns a non-nil error for an orderly
// client-initiated close.
func Serve(ctx context.Context, conn net.Conn, connID uint32, creds Creds, st *store.Store, log *zap.Logger) error {
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)
	pr := newPacketReader(br)
	pw := newPacketWriter(bw)

	nonce := make([]byte, 20)
	if _, err := rand.Read(nonce); err != nil {
		return errs.NewIoError(ctx, "generate auth nonce: %v", err)
	}

	if err := pw.writePacket(handshakeV10Payload(connID, nonce)); err != nil {
		return err
	}

	effCreds, anonymous := resolveCreds(st, creds)
	sess, err := authenticate(ctx, pr, pw, nonce, effCreds, anonymous)
	if err != nil {
		aerr, _ := errs.As(err)
		if aerr != nil {
			_ = pw.writePacket(errPacket(aerr))
		}
		return err
	}
	sess.ConnectionID = connID
	if log != nil {
		log.Debug("mysqlwire: authenticated", zap.String("user", sess.Username))
	}
	if err := pw.writePacket(okPacket(0, 0)); err != nil {
		return err
	}

	for {
		pr.resetSeq()
		pw.resetSeq()
		payload, err := pr.readPacket()
		if err != nil {
			return nil // client closed the socket; an orderly end of session.
		}
		if len(payload) == 0 {
			continue
		}
		cmd, body := payload[0], payload[1:]
		if err := ctx.Err(); err != nil {
			return nil
		}
		switch cmd {
		case comQuit:
			return nil
		case comPing, comInitDB:
			if err := pw.writePacket(okPacket(0, 0)); err != nil {
				return err
			}
		case comQuery:
			if err := handleQuery(ctx, pw, st, string(body)); err != nil {
				return err
			}
		default:
			// Unknown-command leniency: acknowledge with OK rather than
			// closing the connection, the same permissive stance taken
			// before even inspecting the query text for @@-variable probes.
			if err := pw.writePacket(okPacket(0, 0)); err != nil {
				return err
			}
		}
	}
}

const (
	comQuit   = 0x01
	comInitDB = 0x02
	comQuery  = 0x03
	comPing   = 0x0e
)

// probe is a bare server-variable answer: the column label the client
// expects back (normally the @@-expression text itself, unaliased) and
// the rendered value.
type probe struct {
	column string
	value  string
}

// systemVariableProbeResponse recognizes the narrow "SELECT @@var"
// shape mainstream MySQL drivers issue right after
// connecting, without running it through the real parser/evaluator.
// Only single-variable probes are answered this way; anything else
// (joins, WHERE, multiple variables) falls through to the normal
// execution path, where expr.SystemVariable's table still answers a
// @@-reference used inside an ordinary SELECT's column list.
func systemVariableProbeResponse(sql string) (probe, bool) {
	s := strings.TrimSpace(sql)
	if !strings.HasPrefix(strings.ToUpper(s), "SELECT ") {
		return probe{}, false
	}
	variable := strings.TrimSpace(s[len("SELECT "):])
	if strings.ContainsAny(variable, ",() \t") || !strings.HasPrefix(variable, "@@") {
		return probe{}, false
	}
	val, ok := expr.SystemVariable(variable)
	if !ok {
		return probe{}, false
	}
	text, isNull := codec.EncodeText(val)
	if isNull {
		return probe{column: variable, value: ""}, true
	}
	return probe{column: variable, value: text}, true
}

func handleQuery(ctx context.Context, pw *packetWriter, st *store.Store, sql string) error {
	sql = strings.TrimRight(strings.TrimSpace(sql), ";")
	if probe, ok := systemVariableProbeResponse(sql); ok {
		return writeSingleRowResult(pw, probe.column, probe.value)
	}
	stmts, perr := parseradapter.Parse(ctx, sql)
	if perr != nil {
		aerr, _ := errs.As(perr)
		return pw.writePacket(errPacket(aerr))
	}
	if len(stmts) == 0 {
		return pw.writePacket(okPacket(0, 0))
	}
	ex := engine.New(st.Snapshot())
	var res *engine.ExecResult
	var err error
	for _, stmt := range stmts {
		res, err = ex.Execute(ctx, stmt)
		if err != nil {
			break
		}
	}
	if err != nil {
		aerr, ok := errs.As(err)
		if !ok {
			aerr = errs.NewFeatureError(ctx, "%v", err)
		}
		return pw.writePacket(errPacket(aerr))
	}
	if !res.IsQuery {
		return pw.writePacket(okPacket(uint64(len(res.Rows)), 0))
	}
	return writeResultSet(pw, res)
}

func writeResultSet(pw *packetWriter, res *engine.ExecResult) error {
	cols := codec.Describe(res.Columns)
	if err := pw.writePacket(lenencIntPacket(uint64(len(cols)))); err != nil {
		return err
	}
	for _, c := range cols {
		if err := pw.writePacket(columnDefPacket(c)); err != nil {
			return err
		}
	}
	if err := pw.writePacket(eofPacket()); err != nil {
		return err
	}
	for _, row := range res.Rows {
		texts, nulls := codec.EncodeRow(row)
		if err := pw.writePacket(textRowPacket(texts, nulls)); err != nil {
			return err
		}
	}
	return pw.writePacket(eofPacket())
}

func writeSingleRowResult(pw *packetWriter, colName, value string) error {
	if err := pw.writePacket(lenencIntPacket(1)); err != nil {
		return err
	}
	if err := pw.writePacket(columnDefPacket(codec.ColumnInfo{Name: colName, Type: codec.TypeVarString, Length: 255, Charset: codec.MysqlCharsetUTF8})); err != nil {
		return err
	}
	if err := pw.writePacket(eofPacket()); err != nil {
		return err
	}
	if err := pw.writePacket(textRowPacket([]string{value}, []bool{false})); err != nil {
		return err
	}
	return pw.writePacket(eofPacket())
}

func lenencIntPacket(v uint64) []byte {
	return putLenencInt(nil, v)
}

// columnDefPacket writes Protocol41's 41-style column-definition packet.
func columnDefPacket(c codec.ColumnInfo) []byte {
	var buf []byte
	buf = putLenencStr(buf, "def") // catalog
	buf = putLenencStr(buf, "")    // schema
	buf = putLenencStr(buf, "")    // table
	buf = putLenencStr(buf, "")    // org_table
	buf = putLenencStr(buf, c.Name)
	buf = putLenencStr(buf, c.Name) // org_name
	buf = putLenencInt(buf, 0x0c)   // length of fixed fields
	buf = appendUint16(buf, c.Charset)
	buf = appendUint32(buf, c.Length)
	buf = append(buf, byte(c.Type))
	buf = appendUint16(buf, 0) // flags
	buf = append(buf, 0)       // decimals
	buf = appendUint16(buf, 0) // filler
	return buf
}

func eofPacket() []byte {
	buf := []byte{0xfe}
	buf = appendUint16(buf, 0) // warning count
	buf = appendUint16(buf, serverStatusAutoCmt)
	return buf
}

func okPacket(affectedRows, lastInsertID uint64) []byte {
	buf := []byte{0x00}
	buf = putLenencInt(buf, affectedRows)
	buf = putLenencInt(buf, lastInsertID)
	buf = appendUint16(buf, serverStatusAutoCmt)
	buf = appendUint16(buf, 0) // warning count
	return buf
}

func errPacket(e *errs.Error) []byte {
	if e == nil {
		e = errs.NewFeatureError(context.Background(), "internal error")
	}
	buf := []byte{0xff}
	buf = appendUint16(buf, e.MySQLCode)
	buf = append(buf, '#')
	buf = append(buf, e.SQLState...)
	buf = append(buf, e.Error()...)
	return buf
}

func textRowPacket(texts []string, nulls []bool) []byte {
	var buf []byte
	for i, t := range texts {
		if nulls[i] {
			buf = append(buf, 0xfb)
			continue
		}
		buf = putLenencStr(buf, t)
	}
	return buf
}

func appendUint16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return append(buf, b...)
}

func appendUint32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return append(buf, b...)
}
