package database_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
)

func TestWhere(t *testing.T) {
	c := qt.New(t)

	var empty database.Where
	c.Assert(empty.SQL(), qt.Equals, "")
	c.Assert(empty.Args(), qt.HasLen, 0)

	var w database.Where
	w.And("status = ?", 1).And("name ILIKE ?", "%adm%")
	c.Assert(w.SQL(), qt.Equals, " WHERE status = ? AND name ILIKE ?")
	c.Assert(w.Args(), qt.DeepEquals, []any{1, "%adm%"})
}

func TestEscapeLike(t *testing.T) {
	c := qt.New(t)
	c.Assert(database.EscapeLike(`50%_off\`), qt.Equals, `50\%\_off\\`)
	c.Assert(database.EscapeLike("plain"), qt.Equals, "plain")
}
