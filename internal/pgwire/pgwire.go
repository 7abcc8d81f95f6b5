package pgwire

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/memsqld/memsqld/internal/engine"
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/parseradapter"
	"github.com/memsqld/memsqld/internal/pgwire/codec"
	"github.com/memsqld/memsqld/internal/pgwire/oid"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/store"
)

// Creds is the CLI-level fallback username/password pair checked when
// the active snapshot declares no AuthConfig of its own; an empty pair
// means anonymous mode, matching mysqlwire's identical rule.
type Creds struct {
	Username string
	Password string
}

// conn bundles everything the extended-query handlers need so they can
// live in their own file without an ever-growing argument list.
type conn struct {
	ctx context.Context
	br  *bufio.Reader
	bw  *bufio.Writer
	st  *store.Store
	ext *extendedState
	log *zap.Logger
}

// Serve runs one protocol-A connection's full lifecycle: SSL refusal,
// startup, authentication, then Simple/Extended query dispatch, until
// the client sends Terminate or disconnects.
func Serve(ctx context.Context, nc net.Conn, connID int32, creds Creds, st *store.Store, log *zap.Logger) error {
	br := bufio.NewReader(nc)
	bw := bufio.NewWriter(nc)

	username, err := negotiateStartup(ctx, br, bw)
	if err != nil {
		return err
	}

	if err := authenticate(ctx, br, bw, st, creds, username); err != nil {
		aerr, ok := errs.As(err)
		if ok {
			_ = writeErrorResponse(bw, aerr)
			_ = bw.Flush()
		}
		return err
	}

	if err := sendBackendReady(bw, connID); err != nil {
		return err
	}
	if log != nil {
		log.Debug("pgwire: authenticated", zap.String("user", username), zap.Int32("conn_id", connID))
	}

	c := &conn{ctx: ctx, br: br, bw: bw, st: st, ext: newExtendedState(), log: log}
	return c.loop()
}

// negotiateStartup consumes the SSL-negotiation probe a stock driver
// sends first (refused with a single 'N' byte, which asks the client to
// resend in cleartext) and then the real StartupMessage.
func negotiateStartup(ctx context.Context, br *bufio.Reader, bw *bufio.Writer) (username string, err error) {
	code, payload, err := readStartupMessage(br)
	if err != nil {
		return "", errs.NewIoError(ctx, "read startup message: %v", err)
	}
	if code == sslRequestCode {
		if _, err := bw.Write([]byte{'N'}); err != nil {
			return "", errs.NewIoError(ctx, "refuse SSL request: %v", err)
		}
		if err := bw.Flush(); err != nil {
			return "", errs.NewIoError(ctx, "refuse SSL request: %v", err)
		}
		code, payload, err = readStartupMessage(br)
		if err != nil {
			return "", errs.NewIoError(ctx, "read startup message: %v", err)
		}
	}
	if code == cancelRequestCode {
		// A cancel request on a fresh connection has nothing to cancel;
		// the client expects the server to simply close the socket.
		return "", errs.NewProtocolError(ctx, "unexpected cancel request on new connection")
	}
	if code != protocolVersion30 {
		return "", errs.NewProtocolError(ctx, "unsupported startup protocol version %d", code)
	}
	return startupParams(payload)["user"], nil
}

// authenticate runs the cleartext-password challenge: AuthenticationCleartextPassword,
// then validates the client's PasswordMessage against the resolved
// credentials (document AuthConfig, else CLI Creds, else anonymous).
func authenticate(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, st *store.Store, cli Creds, username string) error {
	if err := writeAuthCleartextPassword(bw); err != nil {
		return errs.NewIoError(ctx, "write auth challenge: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return errs.NewIoError(ctx, "flush auth challenge: %v", err)
	}

	msgType, body, err := readMessage(br)
	if err != nil {
		return errs.NewIoError(ctx, "read password message: %v", err)
	}
	if msgType != cmdPasswordMessage {
		return errs.NewProtocolError(ctx, "expected PasswordMessage, got %q", msgType)
	}
	fr := &fieldReader{data: body}
	password, _ := fr.cstring()

	snap := st.Snapshot()
	if snap.Auth != nil {
		if !snap.Authenticate(username, password) {
			return errs.NewAuthError(ctx, "password authentication failed for user %q", username)
		}
		return nil
	}
	if cli.Username == "" && cli.Password == "" {
		return nil // anonymous mode: any password accepted
	}
	if username != cli.Username || password != cli.Password {
		return errs.NewAuthError(ctx, "password authentication failed for user %q", username)
	}
	return nil
}

func sendBackendReady(bw *bufio.Writer, connID int32) error {
	if err := writeAuthOk(bw); err != nil {
		return err
	}
	params := map[string]string{
		"server_version":  expr.ServerVersion,
		"server_encoding": "UTF8",
		"client_encoding": "UTF8",
		"DateStyle":       "ISO, MDY",
		"TimeZone":        "UTC",
	}
	for k, v := range params {
		if err := writeParameterStatus(bw, k, v); err != nil {
			return err
		}
	}
	if err := writeBackendKeyData(bw, connID, connID); err != nil {
		return err
	}
	if err := writeReadyForQuery(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// loop drives Ready -> (Simple | Extended*) -> Ready until Terminate or
// a read error ends the connection.
func (c *conn) loop() error {
	for {
		msgType, body, err := readMessage(c.br)
		if err != nil {
			return nil // orderly close or reset; nothing more to report
		}
		if err := c.ctx.Err(); err != nil {
			return nil
		}
		switch msgType {
		case cmdTerminate:
			return nil
		case cmdQuery:
			if err := c.handleSimpleQuery(body); err != nil {
				return err
			}
		case cmdParse:
			if err := c.dispatchExtended(c.handleParse(body)); err != nil {
				return err
			}
		case cmdBind:
			if err := c.dispatchExtended(c.handleBind(body)); err != nil {
				return err
			}
		case cmdDescribe:
			if err := c.dispatchExtended(c.handleDescribe(body)); err != nil {
				return err
			}
		case cmdExecute:
			if err := c.dispatchExtended(c.handleExecute(body)); err != nil {
				return err
			}
		case cmdClose:
			if err := c.dispatchExtended(c.handleClose(body)); err != nil {
				return err
			}
		case cmdSync:
			if err := writeReadyForQuery(c.bw); err != nil {
				return err
			}
			if err := c.bw.Flush(); err != nil {
				return err
			}
		case cmdFlush:
			if err := c.bw.Flush(); err != nil {
				return err
			}
		default:
			if err := c.protocolError(errs.NewProtocolError(c.ctx, "unsupported frontend message %q", msgType)); err != nil {
				return err
			}
		}
	}
}

// dispatchExtended turns an extended-flow step's error (if any) into an
// ErrorResponse on the wire, per the design's "errors in any step elicit
// an error-response and require Sync to reset to Ready" rule; it never
// itself sends ReadyForQuery.
func (c *conn) dispatchExtended(err error) error {
	if err == nil {
		return nil
	}
	return c.protocolError(err)
}

func (c *conn) protocolError(err error) error {
	aerr, ok := errs.As(err)
	if !ok {
		aerr = errs.NewFeatureError(c.ctx, "%v", err)
	}
	if werr := writeErrorResponse(c.bw, aerr); werr != nil {
		return werr
	}
	return c.bw.Flush()
}

// handleSimpleQuery runs every semicolon-separated statement the client
// sent in one Query message, replying row-description/data-rows/
// command-complete per statement and a single ReadyForQuery once the
// whole batch finishes or the first error short-circuits it.
func (c *conn) handleSimpleQuery(body []byte) error {
	fr := &fieldReader{data: body}
	sql, _ := fr.cstring()
	sql = strings.TrimSpace(sql)

	if sql == "" {
		if err := writeEmptyQueryResponse(c.bw); err != nil {
			return err
		}
		return c.flushReady()
	}

	stmts, perr := parseradapter.Parse(c.ctx, sql)
	if perr != nil {
		if err := c.protocolError(perr); err != nil {
			return err
		}
		return c.flushReady()
	}
	if len(stmts) == 0 {
		if err := writeEmptyQueryResponse(c.bw); err != nil {
			return err
		}
		return c.flushReady()
	}

	ex := engine.New(c.st.Snapshot())
	for _, stmt := range stmts {
		res, err := ex.Execute(c.ctx, stmt)
		if err != nil {
			if werr := c.protocolError(err); werr != nil {
				return werr
			}
			return c.flushReady()
		}
		if err := c.writeResultOrComplete(res); err != nil {
			return err
		}
	}
	return c.flushReady()
}

func (c *conn) writeResultOrComplete(res *engine.ExecResult) error {
	if !res.IsQuery {
		return writeCommandComplete(c.bw, res.Tag)
	}
	fields := codec.Describe(res.Columns)
	if err := writeRowDescription(c.bw, fields, nil); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := writeDataRow(c.bw, codec.EncodeRow(row, nil)); err != nil {
			return err
		}
	}
	return writeCommandComplete(c.bw, commandTag(res))
}

func commandTag(res *engine.ExecResult) string {
	if res.IsQuery {
		return "SELECT " + strconv.Itoa(len(res.Rows))
	}
	return res.Tag
}

func (c *conn) flushReady() error {
	if err := writeReadyForQuery(c.bw); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *conn) handleDescribe(body []byte) error {
	if len(body) < 1 {
		return errs.NewProtocolError(c.ctx, "malformed Describe message")
	}
	kindByte := body[0]
	name, ok := (&fieldReader{data: body[1:]}).cstring()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Describe message")
	}
	switch kindByte {
	case 'S':
		ps, ok := c.ext.statements[name]
		if !ok {
			return errs.NewProtocolError(c.ctx, "unknown prepared statement %q", name)
		}
		oids := make([]uint32, ps.paramCount)
		for i := range oids {
			if i < len(ps.paramOIDs) && ps.paramOIDs[i] != 0 {
				oids[i] = ps.paramOIDs[i]
			} else {
				oids[i] = uint32(oid.T_unknown)
			}
		}
		if err := writeParameterDescription(c.bw, oids); err != nil {
			return err
		}
		return c.describeRowShape(ps.stmt, nil)
	case 'P':
		p, ok := c.ext.portals[name]
		if !ok {
			return errs.NewProtocolError(c.ctx, "unknown portal %q", name)
		}
		return c.describeRowShape(p.stmt, p.resultFormats)
	default:
		return errs.NewProtocolError(c.ctx, "malformed Describe message")
	}
}

func (c *conn) describeRowShape(stmt sqlast.Statement, resultFormats []int16) error {
	sel, ok := stmt.(*sqlast.SelectStatement)
	if !ok {
		return writeNoData(c.bw)
	}
	cols, err := engine.New(c.st.Snapshot()).DescribeColumns(c.ctx, sel)
	if err != nil {
		return err
	}
	return writeRowDescription(c.bw, codec.Describe(cols), codec.ResolveFormats(cols, resultFormats))
}

func (c *conn) handleExecute(body []byte) error {
	fr := &fieldReader{data: body}
	portalName, ok := fr.cstring()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Execute message")
	}
	maxRows, ok := fr.int32()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Execute message")
	}
	p, ok := c.ext.portals[portalName]
	if !ok {
		return errs.NewProtocolError(c.ctx, "unknown portal %q", portalName)
	}

	ex := engine.New(c.st.Snapshot())
	res, err := ex.ExecuteParams(c.ctx, p.stmt, p.params)
	if err != nil {
		return err
	}
	if !res.IsQuery {
		return writeCommandComplete(c.bw, res.Tag)
	}

	rows := res.Rows
	suspended := false
	if maxRows > 0 && len(rows) > int(maxRows) {
		rows = rows[:maxRows]
		suspended = true
	}
	// No RowDescription here: in the extended-query flow the row shape is
	// delivered by Describe, and Execute streams only DataRow/CommandComplete.
	formats := codec.ResolveFormats(res.Columns, p.resultFormats)
	for _, row := range rows {
		if err := writeDataRow(c.bw, codec.EncodeRow(row, formats)); err != nil {
			return err
		}
	}
	if suspended {
		return writePortalSuspended(c.bw)
	}
	return writeCommandComplete(c.bw, "SELECT "+strconv.Itoa(len(rows)))
}

func (c *conn) handleClose(body []byte) error {
	if len(body) < 1 {
		return errs.NewProtocolError(c.ctx, "malformed Close message")
	}
	kindByte := body[0]
	name, ok := (&fieldReader{data: body[1:]}).cstring()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Close message")
	}
	switch kindByte {
	case 'S':
		delete(c.ext.statements, name)
	case 'P':
		delete(c.ext.portals, name)
	default:
		return errs.NewProtocolError(c.ctx, "malformed Close message")
	}
	return writeCloseComplete(c.bw)
}
