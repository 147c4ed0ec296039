package sqlstore

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/couchcryptid/bird-observation-dashboard/internal/config"
	"github.com/go-sql-driver/mysql"
)

// DSN assembles the driver connection string from configuration. DB_DSN,
// when set, is used verbatim.
func DSN(cfg *config.Config) (string, error) {
	if cfg.DBDSN != "" {
		return cfg.DBDSN, nil
	}

	switch cfg.DBDriver {
	case config.DriverMySQL:
		return mysqlDSN(cfg), nil
	case config.DriverPostgres:
		return postgresDSN(cfg), nil
	case config.DriverSQLite:
		return cfg.DBName, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}
}

func mysqlDSN(cfg *config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.Timeout = cfg.DBConnectTimeout

	switch cfg.DBAuthPlugin {
	case "mysql_native_password":
		mc.AllowNativePasswords = true
	case "mysql_clear_password":
		mc.AllowCleartextPasswords = true
	}
	return mc.FormatDSN()
}

func postgresDSN(cfg *config.Config) string {
	q := url.Values{}
	q.Set("sslmode", cfg.DBSSLMode)
	if cfg.DBConnectTimeout > 0 {
		// lib/pq takes whole seconds; round up so sub-second values still bound the dial.
		secs := int((cfg.DBConnectTimeout + 999_999_999) / 1_000_000_000)
		q.Set("connect_timeout", strconv.Itoa(secs))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:     net.JoinHostPort(cfg.DBHost, cfg.DBPort),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}
