package backend

import (
	"context"
	"net"
	"strconv"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

const defaultOraclePort = 1521

type oracleAdapter struct {
	details registry.Connection
	secrets Decryptor
}

func (a *oracleAdapter) Kind() string { return registry.RDBMSOracle }

// Open dials an Oracle session using go-ora and pins a single connection.
func (a *oracleAdapter) Open(ctx context.Context) (Conn, error) {
	password, err := a.secrets.Decrypt(a.details.Password)
	if err != nil {
		return nil, err
	}

	log := logging.New("backend:oracle")
	log.Debugf("Opening Oracle connection %q", a.details.Name)

	session, err := openPinned(ctx, "oracle", oracleURL(a.details, password), a.details.Name)
	if err != nil {
		return nil, err
	}

	log.Debugf("Oracle connection %q established", a.details.Name)
	return &oracleConn{sqlSession: session}, nil
}

// oracleURL builds a go-ora connection URL. An explicit dsn wins over the
// server/port/service-name fields; "lob fetch=pre" makes LOB columns come
// back as values instead of locators.
func oracleURL(details registry.Connection, password string) string {
	options := map[string]string{"lob fetch": "pre"}

	server := details.Server
	port := details.Port.IntOr(defaultOraclePort)
	service := details.ServiceName
	if details.DSN != "" {
		server, port, service = splitEasyConnect(details.DSN, defaultOraclePort)
	}

	return go_ora.BuildUrl(server, port, service, details.Username, password, options)
}

// splitEasyConnect parses an easy-connect string of the form
// "host[:port][/service]".
func splitEasyConnect(dsn string, defaultPort int) (string, int, string) {
	host := dsn
	service := ""
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host, service = host[:i], host[i+1:]
	}

	server, portStr, err := net.SplitHostPort(host)
	if err != nil {
		return host, defaultPort, service
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return server, port, service
}

// oracleConn runs statements on a pinned Oracle session. The driver cannot
// report after the fact whether a statement produced a result set, so
// routing happens up front on the leading keyword: queries go through Query
// for their rows, everything else through Exec for its affected-row tally.
type oracleConn struct {
	*sqlSession
}

func (c *oracleConn) Execute(ctx context.Context, statement string) (*Rowset, error) {
	tx, err := c.ensureTx(ctx)
	if err != nil {
		return nil, err
	}

	switch leadingKeyword(statement) {
	case "SELECT", "WITH":
		rows, err := tx.QueryContext(ctx, statement)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to execute query", err)
		}
		defer rows.Close()
		return scanRows(rows)
	default:
		res, err := tx.ExecContext(ctx, statement)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to execute statement", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			count = 0
		}
		return Affected(count), nil
	}
}

// leadingKeyword returns the first SQL token uppercased, skipping line and
// block comments. An unterminated comment yields the empty string.
func leadingKeyword(statement string) string {
	s := strings.TrimSpace(statement)
	for {
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = strings.TrimSpace(s[i+1:])
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = strings.TrimSpace(s[i+2:])
		default:
			end := len(s)
			for i := 0; i < len(s); i++ {
				if c := s[i]; c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '(' || c == ';' {
					end = i
					break
				}
			}
			return strings.ToUpper(s[:end])
		}
	}
}
