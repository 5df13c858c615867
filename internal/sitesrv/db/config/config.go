package config

import (
	"fmt"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/config"
)

type dbconncfg struct {
	host     string
	port     int
	dbname   string
	user     string
	password string
	sslmode  string
}

var platformDbConn *dbconncfg

func init() {
	platformDbConn = &dbconncfg{
		host:     "localhost",
		port:     5432,
		user:     "sites_api",
		password: "abc@123",
		dbname:   "lunasites",
		sslmode:  "disable",
	}
	Apply(config.Config())
}

// Apply overrides the platform connection facts from the loaded config file.
func Apply(cfg *config.ConfigParam) {
	if cfg == nil {
		return
	}
	p := cfg.PlatformDB
	if p.Host != "" {
		platformDbConn.host = p.Host
	}
	if p.Port != 0 {
		platformDbConn.port = p.Port
	}
	if p.User != "" {
		platformDbConn.user = p.User
	}
	if p.Password != "" {
		platformDbConn.password = p.Password
	}
	if p.DBName != "" {
		platformDbConn.dbname = p.DBName
	}
	if p.SSLMode != "" {
		platformDbConn.sslmode = p.SSLMode
	}
}

// PlatformDsn is the DSN of the shared platform database holding the master
// routing registry. It is also the admin connection used for database-level
// create/clone/drop, which must run outside any tenant database.
func PlatformDsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		platformDbConn.host, platformDbConn.port, platformDbConn.user, platformDbConn.password, platformDbConn.dbname, platformDbConn.sslmode)
}

// TenantDsn is the DSN for a tenant database on the same cluster.
func TenantDsn(dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		platformDbConn.host, platformDbConn.port, platformDbConn.user, platformDbConn.password, dbname, platformDbConn.sslmode)
}

// Host returns the cluster host as seen from inside the platform.
func Host() string {
	return platformDbConn.host
}

// Port returns the cluster port.
func Port() int {
	return platformDbConn.port
}

// User returns the database role tenant databases are owned by.
func User() string {
	return platformDbConn.user
}

// Password returns the credential for User.
func Password() string {
	return platformDbConn.password
}
