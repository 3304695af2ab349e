package database

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDataSourceCarriesSessionSettings(t *testing.T) {
	c := qt.New(t)

	dsn, err := Config{DSN: "postgres://u:p@db:5432/users?sslmode=disable"}.dataSource()
	c.Assert(err, qt.IsNil)
	c.Assert(dsn, qt.Equals, "postgres://u:p@db:5432/users?sslmode=disable")

	dsn, err = Config{
		DSN:            "postgres://u:p@db:5432/users?sslmode=disable",
		TimeZone:       "Asia/Shanghai",
		ClientEncoding: "UTF8",
	}.dataSource()
	c.Assert(err, qt.IsNil)
	c.Assert(dsn, qt.Equals, "postgres://u:p@db:5432/users?client_encoding=UTF8&sslmode=disable&timezone=Asia%2FShanghai")

	dsn, err = Config{DSN: "host=db dbname=users", TimeZone: "UTC", ClientEncoding: "it's"}.dataSource()
	c.Assert(err, qt.IsNil)
	c.Assert(dsn, qt.Equals, `host=db dbname=users timezone='UTC' client_encoding='it\'s'`)

	_, err = Config{DSN: "postgres://u:p@db:bad/users", TimeZone: "UTC"}.dataSource()
	c.Assert(err, qt.ErrorMatches, "parse dsn: .*")
}
