package models

import (
	"time"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

/*
   Column        |          Type           | Collation | Nullable |      Default
-----------------+-------------------------+-----------+----------+--------------------
 tenant_id       | character varying(64)   |           | not null |
 domain          | character varying(255)  |           | not null |
 name            | character varying(255)  |           | not null |
 db_host         | character varying(255)  |           | not null |
 db_port         | integer                 |           | not null |
 db_name         | character varying(128)  |           | not null |
 db_user         | character varying(128)  |           | not null |
 db_password     | character varying(255)  |           | not null |
 owner_id        | character varying(128)  |           | not null |
 owner_email     | character varying(255)  |           |          |
 signing_secret  | character varying(64)   |           | not null |
 status          | character varying(32)   |           | not null | 'provisioning'
 is_active       | boolean                 |           | not null | true
 is_bootstrapped | boolean                 |           | not null | false
 created_at      | timestamptz             |           | not null | now()
 updated_at      | timestamptz             |           | not null | now()
Indexes:
    "sites_pkey" PRIMARY KEY, btree (tenant_id)
    "sites_domain_key" UNIQUE, btree (domain)
*/

// Site is the master routing record for one tenant. The request-routing layer
// resolves incoming domains against it; this core owns its lifecycle.
type Site struct {
	TenantID       types.TenantId   `db:"tenant_id"`
	Domain         string           `db:"domain"`
	Name           string           `db:"name"`
	DBHost         string           `db:"db_host"`
	DBPort         int              `db:"db_port"`
	DBName         string           `db:"db_name"`
	DBUser         string           `db:"db_user"`
	DBPassword     string           `db:"db_password"`
	OwnerID        types.UserId     `db:"owner_id"`
	OwnerEmail     string           `db:"owner_email"`
	SigningSecret  string           `db:"signing_secret"`
	Status         types.SiteStatus `db:"status"`
	IsActive       bool             `db:"is_active"`
	IsBootstrapped bool             `db:"is_bootstrapped"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`
}

// DatabaseDescriptor is the connection form of a tenant database handed back
// to callers after create/clone.
type DatabaseDescriptor struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
}

// Descriptor derives the connection descriptor recorded on the site.
func (s *Site) Descriptor() DatabaseDescriptor {
	return DatabaseDescriptor{
		Host:     s.DBHost,
		Port:     s.DBPort,
		DBName:   s.DBName,
		User:     s.DBUser,
		Password: s.DBPassword,
	}
}
